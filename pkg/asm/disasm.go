package asm

import (
	"fmt"
	"io"

	"gochip8/pkg/memory"
	"gochip8/pkg/opcode"
)

// Line is one disassembled instruction or data word.
type Line struct {
	Addr uint16
	Word uint16
	Text string
	Data bool
}

// Disassemble decodes program as if loaded at memory.ProgramStart. Words that
// do not decode become .WORD directives and a trailing odd byte becomes a
// .BYTE, so the listing assembles back to the same bytes.
func Disassemble(program []byte) []Line {
	lines := make([]Line, 0, len(program)/2+1)
	for off := 0; off < len(program); off += 2 {
		addr := uint16(memory.ProgramStart + off)
		if off+1 >= len(program) {
			lines = append(lines, Line{
				Addr: addr,
				Word: uint16(program[off]),
				Text: fmt.Sprintf(".byte $%02X", program[off]),
				Data: true,
			})
			break
		}

		upper, lower := program[off], program[off+1]
		line := Line{Addr: addr, Word: opcode.Word(upper, lower)}
		if text, err := opcode.Disassemble(upper, lower); err == nil {
			line.Text = text
		} else {
			line.Text = fmt.Sprintf(".word $%04X", line.Word)
			line.Data = true
		}
		lines = append(lines, line)
	}
	return lines
}

// WriteListing prints lines as "ADDR: WORD  text".
func WriteListing(w io.Writer, lines []Line) error {
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%03X: %04X  %s\n", l.Addr, l.Word, l.Text); err != nil {
			return err
		}
	}
	return nil
}

// Source joins the text of lines into assembler input.
func Source(lines []Line) string {
	var out []byte
	for _, l := range lines {
		out = append(out, "    "...)
		out = append(out, l.Text...)
		out = append(out, '\n')
	}
	return string(out)
}
