//go:build unix

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"gochip8/pkg/cpu"
	"gochip8/pkg/machine"
	"gochip8/pkg/sound"
	"gochip8/pkg/utils"
)

const escape = 0x1B

func main() {
	cycles := flag.Int("cycles", machine.DefaultCyclesPerFrame, "instructions per 60 Hz frame")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	hold := flag.Int("hold", 6, "frames a key stays down after it is typed")
	mute := flag.Bool("mute", false, "disable the beeper")
	logFile := flag.String("log", "", "write the log to this file")
	verbose := flag.Bool("v", false, "trace every instruction (needs -log)")
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

	// the screen belongs to the display, so logs go to a file or nowhere
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	switch {
	case *verbose:
		logger.SetLevel(logrus.DebugLevel)
	case *quiet:
		logger.SetLevel(logrus.WarnLevel)
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatal(err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
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

	t, err := openTerminal()
	if err != nil {
		logger.Fatal(err)
	}
	if !t.Fits(cpu.DisplayWidth, cellRows+1) {
		_ = t.Close()
		logger.Fatalf("terminal must be at least %dx%d", cpu.DisplayWidth, cellRows+1)
	}
	if *logFile == "" {
		logger.SetOutput(io.Discard)
	}

	if !*mute {
		tone := sound.NewTone(sound.DefaultSampleRate, m.SoundOn)
		if player, err := sound.NewPlayer(tone); err != nil {
			logger.WithField("error", err).Warn("audio unavailable")
		} else {
			player.Start()
			defer player.Close()
		}
	}

	status := run(m, t, newKeyHolder(*hold))

	_ = t.Close()
	fmt.Print(showCursor)
	if status != "" {
		fmt.Println(status)
	}
	if m.Err() != nil {
		os.Exit(1)
	}
}

// run drives the machine at 60 Hz until the program stops, Esc is typed or
// the process is signalled.
func run(m *machine.Machine, t *terminal, keys *keyHolder) string {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(time.Second / sound.FrameRate)
	defer ticker.Stop()

	fmt.Print(clearScreen, hideCursor)
	for {
		select {
		case <-sigs:
			return "interrupted"
		case <-ticker.C:
		}

		for _, b := range t.ReadKeys() {
			if b == escape {
				return ""
			}
			if key, pressed, ok := keys.Press(b); ok && pressed {
				_ = m.PressKey(key)
			}
		}

		// the machine logs the failure and keeps it
		_ = m.RunFrame()

		for _, key := range keys.Tick() {
			_ = m.ReleaseKey(key)
		}

		if fb, updated := m.Frame(); updated {
			_ = render(os.Stdout, &fb)
		}

		if !m.Running() {
			fb, _ := m.Frame()
			_ = render(os.Stdout, &fb)
			if err := m.Err(); err != nil {
				return err.Error()
			}
			return "program exited"
		}
	}
}
