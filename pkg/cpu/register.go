package cpu

import (
	"fmt"
	"io"
	"strings"
)

// Register names a CPU register for diagnostic reads.
type Register uint8

const (
	V0 Register = iota
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9
	VA
	VB
	VC
	VD
	VE
	VF
	ST
	DT
	PC
	I
	SP
)

var registerNames = [...]string{
	"V0", "V1", "V2", "V3", "V4", "V5", "V6", "V7",
	"V8", "V9", "VA", "VB", "VC", "VD", "VE", "VF",
	"ST", "DT", "PC", "I", "SP",
}

func (r Register) String() string {
	if int(r) >= len(registerNames) {
		return fmt.Sprintf("Register(%d)", uint8(r))
	}
	return registerNames[r]
}

// ParseRegister looks up a register by name, ignoring case.
func ParseRegister(name string) (Register, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range registerNames {
		if n == upper {
			return Register(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRegister, name)
}

// RegisterState returns the value of any register widened to 16 bits.
func (c *CPU) RegisterState(r Register) (uint16, error) {
	switch {
	case r <= VF:
		return uint16(c.V[r]), nil
	case r == ST:
		return uint16(c.ST), nil
	case r == DT:
		return uint16(c.DT), nil
	case r == PC:
		return c.PC, nil
	case r == I:
		return c.I, nil
	case r == SP:
		return uint16(c.SP), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidRegister, r)
}

// Dump writes a register and stack listing to w.
func (c *CPU) Dump(w io.Writer) {
	fmt.Fprintf(w, "PC=%03X I=%03X SP=%X DT=%02X ST=%02X halted=%t\n", c.PC, c.I, c.SP, c.DT, c.ST, c.Halted)
	for row := 0; row < NumRegisters; row += 8 {
		for r := row; r < row+8; r++ {
			if r > row {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "V%X=%02X", r, c.V[r])
		}
		fmt.Fprintln(w)
	}
	if c.SP > 0 {
		fmt.Fprint(w, "stack:")
		for i := 0; i < int(c.SP); i++ {
			fmt.Fprintf(w, " %03X", c.Stack[i])
		}
		fmt.Fprintln(w)
	}
}

func (c *CPU) String() string {
	var sb strings.Builder
	c.Dump(&sb)
	return sb.String()
}
