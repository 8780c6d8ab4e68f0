package machine

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"gochip8/pkg/asm"
	"gochip8/pkg/cpu"
	"gochip8/pkg/rom"
)

// newMachine assembles code and starts a session with a silent logger.
func newMachine(t *testing.T, code string, cycles int) (*Machine, *test.Hook) {
	t.Helper()
	program, _, err := asm.Assemble(code)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	logger, hook := test.NewNullLogger()
	m, err := New(program, Config{CyclesPerFrame: cycles, Seed: 7, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, hook
}

const countingLoop = `
    ld V0, 10
    ld V1, 0
loop:
    add V1, 1
    se V1, V0
    jp loop
    exit
`

func TestNewRejectsBadROM(t *testing.T) {
	if _, err := New(nil, Config{}); !errors.Is(err, rom.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := New(make([]byte, 5000), Config{}); !errors.Is(err, rom.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestRunFrameUntilExit(t *testing.T) {
	m, hook := newMachine(t, countingLoop, 10)
	frames := 0
	for m.Running() {
		if err := m.RunFrame(); err != nil {
			t.Fatalf("RunFrame: %v", err)
		}
		frames++
		if frames > 100 {
			t.Fatal("program did not exit")
		}
	}
	// 32 instructions at 10 per frame
	if frames != 4 {
		t.Errorf("expected 4 frames, got %d", frames)
	}
	if got := m.Stats(); got.Cycles != 32 || got.Frames != 4 {
		t.Errorf("Stats: expected 32 cycles over 4 frames, got %+v", got)
	}
	v1, _ := m.RegisterState(cpu.V1)
	if v1 != 10 {
		t.Errorf("V1: expected 10, got %d", v1)
	}
	if last := hook.LastEntry(); last == nil || last.Message != "program exited" {
		t.Errorf("expected exit to be logged, got %v", last)
	}
}

func TestRunFrameTicksTimers(t *testing.T) {
	m, _ := newMachine(t, `
    ld V0, 3
    ld ST, V0
spin:
    jp spin
`, 2)
	if err := m.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if !m.SoundOn() {
		t.Fatal("expected sound after the first frame")
	}
	for i := 0; i < 2; i++ {
		if err := m.RunFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if m.SoundOn() {
		t.Error("expected sound timer to run out after three ticks")
	}
}

func TestErrorIsSticky(t *testing.T) {
	m, hook := newMachine(t, `
    ret
`, 10)
	err := m.RunFrame()
	if !errors.Is(err, cpu.ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}
	if m.Running() {
		t.Error("expected machine to stop after an error")
	}
	if err := m.Step(); !errors.Is(err, cpu.ErrStackUnderflow) {
		t.Errorf("expected the same error on the next step, got %v", err)
	}
	if !errors.Is(m.Err(), cpu.ErrStackUnderflow) {
		t.Errorf("Err: expected ErrStackUnderflow, got %v", m.Err())
	}

	var logged *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			logged = e
		}
	}
	if logged == nil {
		t.Fatal("expected an error to be logged")
	}
	if logged.Data["pc"] != uint16(0x200) {
		t.Errorf("expected pc field 0x200, got %v", logged.Data["pc"])
	}

	m.Reset()
	if m.Err() != nil || !m.Running() {
		t.Error("expected Reset to clear the error")
	}
}

func TestKeysAndFrame(t *testing.T) {
	m, _ := newMachine(t, `
    ld V0, K
    ld F, V0
    drw V1, V1, 5
    exit
`, 10)
	if err := m.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if _, updated := m.Frame(); updated {
		t.Error("expected no drawing while waiting for a key")
	}

	if err := m.PressKey(0x8); err != nil {
		t.Fatal(err)
	}
	if err := m.RunFrame(); err != nil {
		t.Fatal(err)
	}
	fb, updated := m.Frame()
	if !updated {
		t.Fatal("expected the glyph to be drawn")
	}
	// glyph 8 has a full top row
	for x := 0; x < 4; x++ {
		if fb[x] != 1 {
			t.Errorf("expected pixel (%d, 0) set", x)
		}
	}
	if _, updated := m.Frame(); updated {
		t.Error("expected Frame to acknowledge the update")
	}
	if m.Pixel(0, 4) != 1 {
		t.Error("expected bottom row of glyph 8 set")
	}

	if err := m.ReleaseKey(0x8); err != nil {
		t.Fatal(err)
	}
	if err := m.PressKey(16); !errors.Is(err, cpu.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	m, _ := newMachine(t, countingLoop, 5)
	if err := m.RunFrame(); err != nil {
		t.Fatal(err)
	}
	state, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	before, _ := m.RegisterState(cpu.V1)

	for m.Running() {
		if err := m.RunFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Restore(state); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after, _ := m.RegisterState(cpu.V1)
	if after != before || !m.Running() {
		t.Errorf("expected V1=%d and running after restore, got V1=%d running=%t", before, after, m.Running())
	}

	if err := m.Restore([]byte("junk")); err == nil {
		t.Error("expected Restore to reject junk")
	}
}

func TestDumpAndScreenshot(t *testing.T) {
	m, _ := newMachine(t, countingLoop, 10)
	var sb strings.Builder
	m.Dump(&sb)
	if !strings.Contains(sb.String(), "PC=200") {
		t.Errorf("Dump: expected PC=200 in %q", sb.String())
	}

	var buf bytes.Buffer
	if err := m.Screenshot(&buf, 2); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != cpu.DisplayWidth*2 || cfg.Height != cpu.DisplayHeight*2 {
		t.Errorf("expected %dx%d, got %dx%d", cpu.DisplayWidth*2, cpu.DisplayHeight*2, cfg.Width, cfg.Height)
	}
}

func TestConcurrentInput(t *testing.T) {
	m, _ := newMachine(t, `
loop:
    sknp V0
    add V1, 1
    jp loop
`, 10)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := m.RunFrame(); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = m.PressKey(0)
			_ = m.ReleaseKey(0)
		}
	}()
	wg.Wait()

	if got := m.Stats().Frames; got != 200 {
		t.Errorf("expected 200 frames, got %d", got)
	}
}
