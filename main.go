//go:build !js

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/asm"
	"gochip8/pkg/cpu"
	"gochip8/pkg/diag"
	"gochip8/pkg/machine"
	"gochip8/pkg/script"
	"gochip8/pkg/sound"
	"gochip8/pkg/utils"
)

type options struct {
	frames     int
	cycles     int
	seed       uint64
	scriptPath string
	wavPath    string
	pngPath    string
	dotPath    string
}

func main() {
	inPath := flag.String("in", "", "input assembly file path")
	outPath := flag.String("out", "", "output ROM file path (default: input with .ch8 extension)")
	runProgram := flag.Bool("run", false, "run the assembled program headless")
	runBinPath := flag.String("run-bin", "", "run an existing ROM headless")
	frames := flag.Int("frames", 600, "maximum 60 Hz frames to run")
	cycles := flag.Int("cycles", machine.DefaultCyclesPerFrame, "instructions per frame")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	scriptPath := flag.String("script", "", "drive the machine from this Lua script instead of running frames")
	wavPath := flag.String("wav", "", "record the beeper to this WAV file")
	pngPath := flag.String("png", "", "write the final display to this PNG file")
	dotPath := flag.String("memviz", "", "write a Graphviz dump of the final registers")
	stats := flag.Bool("statsview", false, "serve runtime stats at "+diag.DefaultStatsAddress)
	verbose := flag.Bool("v", false, "trace every instruction")
	quiet := flag.Bool("q", false, "only log warnings and errors")
	flag.Parse()

	logger := logrus.New()
	switch {
	case *verbose:
		logger.SetLevel(logrus.DebugLevel)
	case *quiet:
		logger.SetLevel(logrus.WarnLevel)
	}

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}
	if *stats {
		diag.LaunchStats(diag.DefaultStatsAddress, logger)
	}

	assembledOutput := ""
	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		code, _, err := asm.Assemble(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}
		if err := os.WriteFile(output, code, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write ROM file %q: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("assembled %d bytes -> %s\n", len(code), output)
		assembledOutput = output
	}

	if *inPath == "" && *runBinPath == "" && !*runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to assemble, -run to run assembled output, or -run-bin <file> to run an existing ROM")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case *runBinPath != "":
		runTarget = *runBinPath
	case *runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	opts := options{
		frames:     *frames,
		cycles:     *cycles,
		seed:       *seed,
		scriptPath: *scriptPath,
		wavPath:    *wavPath,
		pngPath:    *pngPath,
		dotPath:    *dotPath,
	}
	if err := runHeadless(runTarget, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", runTarget, err)
		os.Exit(1)
	}
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".ch8"
	}
	return strings.TrimSuffix(inPath, ext) + ".ch8"
}

// runHeadless loads path and runs it without a display, then prints the
// register dump.
func runHeadless(path string, opts options, logger *logrus.Logger) error {
	program, err := utils.LoadProgram(path)
	if err != nil {
		return err
	}
	m, err := machine.New(program, machine.Config{
		CyclesPerFrame: opts.cycles,
		Seed:           opts.seed,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.scriptPath != "" {
		err = script.New(m, os.Stdout, logger).RunFile(ctx, opts.scriptPath)
	} else {
		err = runFrames(ctx, m, opts)
	}

	m.Dump(os.Stdout)
	if outErr := writeOutputs(m, opts); err == nil {
		err = outErr
	}
	return err
}

// runFrames runs up to opts.frames frames, recording the beeper when asked.
func runFrames(ctx context.Context, m *machine.Machine, opts options) error {
	var rec *sound.Recorder
	if opts.wavPath != "" {
		f, err := os.Create(opts.wavPath)
		if err != nil {
			return err
		}
		defer f.Close()
		rec = sound.NewRecorder(f, sound.DefaultSampleRate)
		defer rec.Close()
	}

	for i := 0; i < opts.frames && m.Running(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.RunFrame(); err != nil {
			return err
		}
		if rec != nil {
			if err := rec.AddFrame(m.SoundOn()); err != nil {
				return err
			}
		}
	}
	return nil
}

// registers is the value written by -memviz.
type registers struct {
	PC, I, SP, DT, ST uint16
	V                 [cpu.NumRegisters]uint16
}

func writeOutputs(m *machine.Machine, opts options) error {
	if opts.pngPath != "" {
		f, err := os.Create(opts.pngPath)
		if err != nil {
			return err
		}
		if err := m.Screenshot(f, 1); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if opts.dotPath != "" {
		var regs registers
		for _, r := range []struct {
			reg cpu.Register
			dst *uint16
		}{
			{cpu.PC, &regs.PC},
			{cpu.I, &regs.I},
			{cpu.SP, &regs.SP},
			{cpu.DT, &regs.DT},
			{cpu.ST, &regs.ST},
		} {
			*r.dst, _ = m.RegisterState(r.reg)
		}
		for i := range regs.V {
			regs.V[i], _ = m.RegisterState(cpu.Register(i))
		}
		if err := diag.WriteStructure(opts.dotPath, &regs); err != nil {
			return err
		}
	}
	return nil
}
