package main

import (
	"io"
	"strings"

	"gochip8/pkg/cpu"
	"gochip8/pkg/grid"
)

const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

// cellRows is the terminal height of the display; each cell covers two
// pixel rows.
const cellRows = cpu.DisplayHeight / 2

var halfBlocks = [4]string{" ", "▀", "▄", "█"}

// render draws fb with half-block characters, one terminal row per pair of
// pixel rows, starting at the cursor home position.
func render(w io.Writer, fb *[cpu.DisplaySize]byte) error {
	var sb strings.Builder
	sb.Grow(cpu.DisplayWidth*cellRows*3 + cellRows*2 + len(cursorHome))
	sb.WriteString(cursorHome)

	for i := 0; i < cpu.DisplayWidth*cellRows; i++ {
		x, y := grid.GetGridCoords(i, cpu.DisplayWidth)
		top := fb[grid.GetIndex(x, y*2, cpu.DisplayWidth)]
		bottom := fb[grid.GetIndex(x, y*2+1, cpu.DisplayWidth)]
		sb.WriteString(halfBlocks[int(top&1)|int(bottom&1)<<1])
		if x == cpu.DisplayWidth-1 {
			sb.WriteString("\r\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
