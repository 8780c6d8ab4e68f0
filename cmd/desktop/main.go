package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sirupsen/logrus"

	"gochip8/pkg/cpu"
	"gochip8/pkg/machine"
	"gochip8/pkg/sound"
	"gochip8/pkg/utils"
)

func main() {
	scale := flag.Int("scale", 10, "window scale")
	cycles := flag.Int("cycles", machine.DefaultCyclesPerFrame, "instructions per 60 Hz frame")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	mute := flag.Bool("mute", false, "disable the beeper")
	resume := flag.Bool("resume", false, "load the save state on start")
	autosave := flag.Duration("autosave", 0, "write the save state at this interval (0 disables)")
	verbose := flag.Bool("v", false, "trace every instruction")
	quiet := flag.Bool("q", false, "only log warnings and errors")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] program.ch8|program.asm\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := logrus.New()
	switch {
	case *verbose:
		logger.SetLevel(logrus.DebugLevel)
	case *quiet:
		logger.SetLevel(logrus.WarnLevel)
	}

	fullPath, baseDir, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		logger.Fatalf("bad path: %v", err)
	}
	program, err := utils.LoadProgram(fullPath)
	if err != nil {
		logger.Fatalf("failed to load program: %v", err)
	}

	m, err := machine.New(program, machine.Config{
		CyclesPerFrame: *cycles,
		Seed:           *seed,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal(err)
	}

	statePath := utils.StatePath(fullPath)
	if *resume {
		if data, err := os.ReadFile(statePath); err == nil {
			_ = m.Restore(data)
		}
	}

	if !*mute {
		audioCtx := audio.NewContext(sound.DefaultSampleRate)
		tone := sound.NewTone(sound.DefaultSampleRate, m.SoundOn)
		tone.Channels = 2
		beeper, err := audioCtx.NewPlayer(tone)
		if err != nil {
			logger.WithField("error", err).Warn("audio unavailable")
		} else {
			beeper.SetBufferSize(50 * time.Millisecond)
			beeper.Play()
		}
	}

	// Start background state syncer
	stopSyncer := make(chan struct{})
	if *autosave > 0 {
		go utils.SyncState(m.Snapshot, statePath, *autosave, stopSyncer)
	}

	ebiten.SetTPS(sound.FrameRate)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game := &Game{
		m:         m,
		log:       logger,
		scale:     max(*scale, 1),
		statePath: statePath,
		shotDir:   baseDir,
	}
	ebiten.SetWindowSize(cpu.DisplayWidth*game.scale, cpu.DisplayHeight*game.scale)
	ebiten.SetWindowTitle(title)

	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal(err)
	}

	close(stopSyncer)
	if *autosave > 0 {
		if data, err := m.Snapshot(); err == nil {
			_ = os.WriteFile(statePath, data, 0o644)
		}
	}
}
