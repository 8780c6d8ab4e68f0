// Package opcode decodes CHIP-8 instruction words into a closed set of opcode
// tags and extracts their arguments. It holds no state.
package opcode

import "fmt"

// Opcode identifies a decoded instruction.
type Opcode uint8

const (
	Exit    Opcode = iota // 0000
	Sys                   // 0nnn
	Cls                   // 00E0
	Ret                   // 00EE
	Jp                    // 1nnn
	Call                  // 2nnn
	SeImm                 // 3xnn
	SneImm                // 4xnn
	SeReg                 // 5xy0
	LdImm                 // 6xnn
	AddImm                // 7xnn
	LdReg                 // 8xy0
	Or                    // 8xy1
	And                   // 8xy2
	Xor                   // 8xy3
	AddReg                // 8xy4
	Sub                   // 8xy5
	Shr                   // 8xy6
	Subn                  // 8xy7
	Shl                   // 8xyE
	SneReg                // 9xy0
	LdI                   // Annn
	JpV0                  // Bnnn
	Rnd                   // Cxnn
	Drw                   // Dxyn
	Skp                   // Ex9E
	Sknp                  // ExA1
	LdVxDT                // Fx07
	LdVxK                 // Fx0A
	LdDTVx                // Fx15
	LdSTVx                // Fx18
	AddIVx                // Fx1E
	LdFVx                 // Fx29
	LdBVx                 // Fx33
	LdMemVx               // Fx55
	LdVxMem               // Fx65

	// Count is the number of opcodes.
	Count = iota
)

// Operand describes one operand slot of an instruction's assembly syntax.
type Operand uint8

const (
	OperandVx       Operand = iota // register in bits 8-11
	OperandVy                      // register in bits 4-7
	OperandAddr                    // 12-bit address
	OperandByte                    // 8-bit constant
	OperandNibble                  // 4-bit constant
	OperandV0                      // literal V0
	OperandI                       // literal I
	OperandIndirect                // literal [I]
	OperandDT                      // literal DT
	OperandST                      // literal ST
	OperandK                       // literal K
	OperandF                       // literal F
	OperandB                       // literal B
)

type info struct {
	name     string
	mnemonic string
	base     uint16
	syntax   []Operand
}

var table = [Count]info{
	Exit:    {"EXIT", "exit", 0x0000, nil},
	Sys:     {"SYS_A", "sys", 0x0000, []Operand{OperandAddr}},
	Cls:     {"CLS", "cls", 0x00E0, nil},
	Ret:     {"RET", "ret", 0x00EE, nil},
	Jp:      {"JP_A", "jp", 0x1000, []Operand{OperandAddr}},
	Call:    {"CALL_A", "call", 0x2000, []Operand{OperandAddr}},
	SeImm:   {"SE_RC", "se", 0x3000, []Operand{OperandVx, OperandByte}},
	SneImm:  {"SNE_RC", "sne", 0x4000, []Operand{OperandVx, OperandByte}},
	SeReg:   {"SE_RR", "se", 0x5000, []Operand{OperandVx, OperandVy}},
	LdImm:   {"LD_RC", "ld", 0x6000, []Operand{OperandVx, OperandByte}},
	AddImm:  {"ADD_RC", "add", 0x7000, []Operand{OperandVx, OperandByte}},
	LdReg:   {"LD_RR", "ld", 0x8000, []Operand{OperandVx, OperandVy}},
	Or:      {"OR_RR", "or", 0x8001, []Operand{OperandVx, OperandVy}},
	And:     {"AND_RR", "and", 0x8002, []Operand{OperandVx, OperandVy}},
	Xor:     {"XOR_RR", "xor", 0x8003, []Operand{OperandVx, OperandVy}},
	AddReg:  {"ADD_RR", "add", 0x8004, []Operand{OperandVx, OperandVy}},
	Sub:     {"SUB_RR", "sub", 0x8005, []Operand{OperandVx, OperandVy}},
	Shr:     {"SHR_RR", "shr", 0x8006, []Operand{OperandVx, OperandVy}},
	Subn:    {"SUBN_RR", "subn", 0x8007, []Operand{OperandVx, OperandVy}},
	Shl:     {"SHL_RR", "shl", 0x800E, []Operand{OperandVx, OperandVy}},
	SneReg:  {"SNE_RR", "sne", 0x9000, []Operand{OperandVx, OperandVy}},
	LdI:     {"LD_IA", "ld", 0xA000, []Operand{OperandI, OperandAddr}},
	JpV0:    {"JP_V0A", "jp", 0xB000, []Operand{OperandV0, OperandAddr}},
	Rnd:     {"RND_RC", "rnd", 0xC000, []Operand{OperandVx, OperandByte}},
	Drw:     {"DRW_RRC", "drw", 0xD000, []Operand{OperandVx, OperandVy, OperandNibble}},
	Skp:     {"SKP_R", "skp", 0xE09E, []Operand{OperandVx}},
	Sknp:    {"SKNP_R", "sknp", 0xE0A1, []Operand{OperandVx}},
	LdVxDT:  {"LD_RD", "ld", 0xF007, []Operand{OperandVx, OperandDT}},
	LdVxK:   {"LD_RK", "ld", 0xF00A, []Operand{OperandVx, OperandK}},
	LdDTVx:  {"LD_DR", "ld", 0xF015, []Operand{OperandDT, OperandVx}},
	LdSTVx:  {"LD_SR", "ld", 0xF018, []Operand{OperandST, OperandVx}},
	AddIVx:  {"ADD_IR", "add", 0xF01E, []Operand{OperandI, OperandVx}},
	LdFVx:   {"LD_FR", "ld", 0xF029, []Operand{OperandF, OperandVx}},
	LdBVx:   {"LD_BR", "ld", 0xF033, []Operand{OperandB, OperandVx}},
	LdMemVx: {"LD_IAR", "ld", 0xF055, []Operand{OperandIndirect, OperandVx}},
	LdVxMem: {"LD_RAI", "ld", 0xF065, []Operand{OperandVx, OperandIndirect}},
}

// String returns the opcode's tag name, e.g. "DRW_RRC".
func (o Opcode) String() string {
	if o >= Count {
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
	return table[o].name
}

// Mnemonic returns the assembly mnemonic shared by all forms of the
// instruction, e.g. "ld".
func (o Opcode) Mnemonic() string {
	if o >= Count {
		return ""
	}
	return table[o].mnemonic
}

// Syntax returns the operand layout used by the assembler and disassembler.
func (o Opcode) Syntax() []Operand {
	if o >= Count {
		return nil
	}
	return table[o].syntax
}

// IsControlTransfer reports whether the opcode sets the program counter itself.
func (o Opcode) IsControlTransfer() bool {
	switch o {
	case Jp, JpV0, Call, Ret:
		return true
	}
	return false
}

// IsSkip reports whether the opcode conditionally skips the next instruction.
func (o Opcode) IsSkip() bool {
	switch o {
	case SeImm, SneImm, SeReg, SneReg, Skp, Sknp:
		return true
	}
	return false
}

// Opcodes returns every opcode in tag order.
func Opcodes() []Opcode {
	out := make([]Opcode, Count)
	for i := range out {
		out[i] = Opcode(i)
	}
	return out
}
