package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gochip8/pkg/asm"
	"gochip8/pkg/rom"
)

func main() {
	source := flag.Bool("source", false, "print assembler source instead of a listing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-source] file.ch8|dir\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(os.Stdout, flag.Arg(0), *source); err != nil {
		fmt.Fprintln(os.Stderr, "disasm:", err)
		os.Exit(1)
	}
}

// run disassembles path, or every ROM in it when it is a directory.
func run(w io.Writer, path string, source bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		program, err := rom.Load(path)
		if err != nil {
			return err
		}
		return write(w, program, source)
	}

	lib := rom.NewLibrary()
	if _, err := lib.LoadFrom(path); err != nil {
		return err
	}
	for i, name := range lib.List() {
		program, err := lib.Get(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "; %s (%d bytes)\n", name, len(program))
		if err := write(w, program, source); err != nil {
			return err
		}
	}
	return nil
}

func write(w io.Writer, program []byte, source bool) error {
	lines := asm.Disassemble(program)
	if source {
		_, err := io.WriteString(w, asm.Source(lines))
		return err
	}
	return asm.WriteListing(w, lines)
}
