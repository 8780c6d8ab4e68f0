package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"

	"gochip8/pkg/cpu"
	"gochip8/pkg/machine"
)

const title = "gochip8"

type Game struct {
	m   *machine.Machine
	log *logrus.Logger

	scale     int
	statePath string
	shotDir   string

	canvas *ebiten.Image // reused 64x32 framebuffer image
	pixels []byte
	paused bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	for key, hex := range keypad {
		if inpututil.IsKeyJustPressed(key) {
			_ = g.m.PressKey(hex)
		}
		if inpututil.IsKeyJustReleased(key) {
			_ = g.m.ReleaseKey(hex)
		}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.paused = !g.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		g.m.Reset()
	case inpututil.IsKeyJustPressed(ebiten.KeyF2):
		g.saveScreenshot()
	case inpututil.IsKeyJustPressed(ebiten.KeyF3):
		g.copyScreenshot()
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		g.saveState()
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		g.loadState()
	}

	g.updateTitle()
	if g.paused || !g.m.Running() {
		return nil
	}
	// the machine logs the failure and keeps it until reset
	_ = g.m.RunFrame()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvas == nil {
		g.canvas = ebiten.NewImage(cpu.DisplayWidth, cpu.DisplayHeight)
		g.pixels = make([]byte, cpu.DisplaySize*4)
	}

	fb, _ := g.m.Frame()
	fillRGBA(g.pixels, &fb)
	g.canvas.WritePixels(g.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.canvas, op)

	if g.paused {
		ebitenutil.DebugPrint(screen, "PAUSED  P resume  F5 save  F9 load")
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.DisplayWidth * g.scale, cpu.DisplayHeight * g.scale
}

// fillRGBA expands a framebuffer into dst, four bytes per pixel.
func fillRGBA(dst []byte, fb *[cpu.DisplaySize]byte) {
	for i, p := range fb {
		c := cpu.ColorOff
		if p != 0 {
			c = cpu.ColorOn
		}
		dst[i*4] = c.R
		dst[i*4+1] = c.G
		dst[i*4+2] = c.B
		dst[i*4+3] = c.A
	}
}

func (g *Game) updateTitle() {
	status := title
	switch {
	case g.m.Err() != nil:
		status += " [stopped]"
	case !g.m.Running():
		status += " [exited]"
	case g.paused:
		status += " [paused]"
	}
	ebiten.SetWindowTitle(status)
}

func (g *Game) saveScreenshot() {
	name := filepath.Join(g.shotDir, time.Now().Format("chip8-20060102-150405.png"))
	f, err := os.Create(name)
	if err != nil {
		g.log.WithField("error", err).Warn("screenshot failed")
		return
	}
	defer f.Close()
	if err := g.m.Screenshot(f, g.scale); err != nil {
		g.log.WithField("error", err).Warn("screenshot failed")
		return
	}
	g.log.WithField("file", name).Info("screenshot saved")
}

func (g *Game) copyScreenshot() {
	g.clipboardOnce.Do(func() {
		g.clipboardOK = clipboard.Init() == nil
	})
	if !g.clipboardOK {
		g.log.Warn("clipboard unavailable")
		return
	}
	var buf bytes.Buffer
	if err := g.m.Screenshot(&buf, g.scale); err != nil {
		g.log.WithField("error", err).Warn("screenshot failed")
		return
	}
	clipboard.Write(clipboard.FmtImage, buf.Bytes())
	g.log.Info("screenshot copied to clipboard")
}

func (g *Game) saveState() {
	data, err := g.m.Snapshot()
	if err == nil {
		err = os.WriteFile(g.statePath, data, 0o644)
	}
	if err != nil {
		g.log.WithField("error", err).Warn("save failed")
	}
}

func (g *Game) loadState() {
	data, err := os.ReadFile(g.statePath)
	if err != nil {
		g.log.WithField("error", err).Warn("load failed")
		return
	}
	// Restore logs its own failure
	_ = g.m.Restore(data)
}
