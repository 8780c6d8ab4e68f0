package opcode

import (
	"fmt"
	"strings"
)

// Instruction is a decoded opcode together with its operand fields. N holds
// the address, constant or nibble, whichever the opcode's syntax uses.
type Instruction struct {
	Op Opcode
	X  byte
	Y  byte
	N  uint16
}

// Parse decodes an instruction and extracts the fields its syntax uses.
func Parse(upper, lower byte) (Instruction, error) {
	op, err := Decode(upper, lower)
	if err != nil {
		return Instruction{}, err
	}

	ins := Instruction{Op: op}
	for _, operand := range op.Syntax() {
		switch operand {
		case OperandVx:
			ins.X = byte(Arg(ArgX, upper, lower))
		case OperandVy:
			ins.Y = byte(Arg(ArgY, upper, lower))
		case OperandAddr:
			ins.N = Arg(ArgAddress, upper, lower)
		case OperandByte:
			ins.N = Arg(ArgConstant, upper, lower)
		case OperandNibble:
			ins.N = Arg(ArgNibble, upper, lower)
		}
	}
	return ins, nil
}

// Encode assembles the instruction into its 16-bit word. Fields the syntax
// does not use are ignored, values wider than their field are masked.
func (ins Instruction) Encode() uint16 {
	if ins.Op >= Count {
		return 0
	}
	word := table[ins.Op].base
	for _, operand := range ins.Op.Syntax() {
		switch operand {
		case OperandVx:
			word |= uint16(ins.X&0x0F) << 8
		case OperandVy:
			word |= uint16(ins.Y&0x0F) << 4
		case OperandAddr:
			word |= ins.N & 0x0FFF
		case OperandByte:
			word |= ins.N & 0x00FF
		case OperandNibble:
			word |= ins.N & 0x000F
		}
	}
	return word
}

// Encode is a shorthand for Instruction{op, x, y, n}.Encode().
func Encode(op Opcode, x, y byte, n uint16) uint16 {
	return Instruction{Op: op, X: x, Y: y, N: n}.Encode()
}

// String formats the instruction in assembler syntax, e.g. "drw V0, V1, $5".
func (ins Instruction) String() string {
	syntax := ins.Op.Syntax()
	if len(syntax) == 0 {
		return ins.Op.Mnemonic()
	}

	operands := make([]string, 0, len(syntax))
	for _, operand := range syntax {
		operands = append(operands, ins.formatOperand(operand))
	}
	return ins.Op.Mnemonic() + " " + strings.Join(operands, ", ")
}

func (ins Instruction) formatOperand(operand Operand) string {
	switch operand {
	case OperandVx:
		return fmt.Sprintf("V%X", ins.X)
	case OperandVy:
		return fmt.Sprintf("V%X", ins.Y)
	case OperandAddr:
		return fmt.Sprintf("$%03X", ins.N)
	case OperandByte:
		return fmt.Sprintf("$%02X", ins.N)
	case OperandNibble:
		return fmt.Sprintf("$%X", ins.N)
	case OperandV0:
		return "V0"
	case OperandI:
		return "I"
	case OperandIndirect:
		return "[I]"
	case OperandDT:
		return "DT"
	case OperandST:
		return "ST"
	case OperandK:
		return "K"
	case OperandF:
		return "F"
	case OperandB:
		return "B"
	}
	return "?"
}

// Disassemble formats the instruction held in upper and lower.
func Disassemble(upper, lower byte) (string, error) {
	ins, err := Parse(upper, lower)
	if err != nil {
		return "", err
	}
	return ins.String(), nil
}
