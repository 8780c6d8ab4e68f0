// Package asm is a two-pass assembler for CHIP-8 programs. Output is the ROM
// image that gets loaded at memory.ProgramStart; labels and source map
// addresses are absolute.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/memory"
	"gochip8/pkg/opcode"
)

// candidates groups opcodes by mnemonic, in opcode order.
var candidates = func() map[string][]opcode.Opcode {
	m := make(map[string][]opcode.Opcode)
	for _, op := range opcode.Opcodes() {
		key := strings.ToUpper(op.Mnemonic())
		m[key] = append(m[key], op)
	}
	return m
}()

// literal operands and the token that spells them.
var literals = map[opcode.Operand]string{
	opcode.OperandV0:       "V0",
	opcode.OperandI:        "I",
	opcode.OperandIndirect: "[I]",
	opcode.OperandDT:       "DT",
	opcode.OperandST:       "ST",
	opcode.OperandK:        "K",
	opcode.OperandF:        "F",
	opcode.OperandB:        "B",
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble returns the program bytes and a map from instruction address to
// source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")
	clear(a.labels)

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// Labels returns the addresses resolved by the last Assemble call.
func (a *Assembler) Labels() map[string]uint16 {
	out := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

func (a *Assembler) pass1(lines []string) error {
	address := uint32(memory.ProgramStart)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if address > memory.ProgramEnd {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		var length uint32
		switch p.mnemonic {
		case ".ORG":
			target, err := parseOrigin(p, uint16(min(address, 0xFFFF)))
			if err != nil {
				return err
			}
			address = uint32(target)
			continue
		case ".BYTE":
			if len(p.operands) == 0 {
				return fmt.Errorf(".BYTE expects at least one operand on line %d", lineNo)
			}
			length = uint32(len(p.operands))
		case ".WORD":
			if len(p.operands) == 0 {
				return fmt.Errorf(".WORD expects at least one operand on line %d", lineNo)
			}
			length = uint32(len(p.operands) * 2)
		default:
			if _, ok := candidates[p.mnemonic]; !ok {
				return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
			}
			length = 2
		}

		if address+length > memory.Size {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		address := uint16(memory.ProgramStart + len(program))

		switch p.mnemonic {
		case ".ORG":
			target, err := parseOrigin(p, address)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, make([]byte, int(target-address))...)
			continue
		case ".BYTE":
			sourceMap[address] = lineNo
			for _, op := range p.operands {
				val, err := a.parseValue(op, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val))
			}
			continue
		case ".WORD":
			sourceMap[address] = lineNo
			for _, op := range p.operands {
				val, err := a.parseValue(op, 0xFFFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val>>8), byte(val))
			}
			continue
		}

		ins, err := a.encode(p)
		if err != nil {
			return nil, nil, err
		}
		sourceMap[address] = lineNo
		word := ins.Encode()
		program = append(program, byte(word>>8), byte(word))
	}

	return program, sourceMap, nil
}

// encode picks the first form of the mnemonic whose operand layout matches.
func (a *Assembler) encode(p parsedLine) (opcode.Instruction, error) {
	var lastErr error
	for _, op := range candidates[p.mnemonic] {
		ins, err := a.match(op, p)
		if err == nil {
			return ins, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}
	return opcode.Instruction{}, lastErr
}

func (a *Assembler) match(op opcode.Opcode, p parsedLine) (opcode.Instruction, error) {
	syntax := op.Syntax()
	if len(p.operands) != len(syntax) {
		return opcode.Instruction{}, fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, len(syntax), p.lineNo)
	}

	ins := opcode.Instruction{Op: op}
	for i, kind := range syntax {
		token := p.operands[i]
		switch kind {
		case opcode.OperandVx, opcode.OperandVy:
			reg, err := parseRegister(token, p.lineNo)
			if err != nil {
				return ins, err
			}
			if kind == opcode.OperandVx {
				ins.X = reg
			} else {
				ins.Y = reg
			}
		case opcode.OperandAddr, opcode.OperandByte, opcode.OperandNibble:
			if _, err := parseRegister(token, p.lineNo); err == nil {
				return ins, fmt.Errorf("%s: unexpected register '%s' on line %d", p.mnemonic, token, p.lineNo)
			}
			val, err := a.parseValue(token, operandLimit(kind), p.lineNo)
			if err != nil {
				return ins, err
			}
			ins.N = val
		default:
			if !strings.EqualFold(token, literals[kind]) {
				return ins, fmt.Errorf("%s: expected '%s', got '%s' on line %d", p.mnemonic, literals[kind], token, p.lineNo)
			}
		}
	}
	return ins, nil
}

func operandLimit(kind opcode.Operand) uint16 {
	switch kind {
	case opcode.OperandAddr:
		return 0xFFF
	case opcode.OperandByte:
		return 0xFF
	}
	return 0xF
}

func parseOrigin(p parsedLine, current uint16) (uint16, error) {
	if len(p.operands) != 1 {
		return 0, fmt.Errorf(".ORG expects exactly one operand on line %d", p.lineNo)
	}
	target, err := parseNumber(p.operands[0])
	if err != nil {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", p.lineNo, p.operands[0])
	}
	if target < memory.ProgramStart || target > memory.ProgramEnd {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", p.lineNo, p.operands[0])
	}
	if uint16(target) < current {
		return 0, fmt.Errorf("cannot move origin backward on line %d", p.lineNo)
	}
	return uint16(target), nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
		mnemonic, rest = line[:sp], strings.TrimSpace(line[sp:])
	}
	p.mnemonic = strings.ToUpper(mnemonic)

	if rest == "" {
		return p, nil
	}
	for _, op := range strings.Split(rest, ",") {
		op = strings.Join(strings.Fields(op), "")
		if op == "" {
			return p, fmt.Errorf("empty operand on line %d", lineNo)
		}
		p.operands = append(p.operands, op)
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// parseRegister accepts V0-VF in either case.
func parseRegister(token string, lineNo int) (byte, error) {
	if len(token) == 2 && (token[0] == 'V' || token[0] == 'v') {
		if n, err := strconv.ParseUint(token[1:], 16, 8); err == nil {
			return byte(n), nil
		}
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

// parseNumber understands $FF and #FF hex as well as Go integer literals.
func parseNumber(token string) (uint64, error) {
	if strings.HasPrefix(token, "$") || strings.HasPrefix(token, "#") {
		return strconv.ParseUint(token[1:], 16, 32)
	}
	return strconv.ParseUint(token, 0, 32)
}

func (a *Assembler) parseValue(token string, limit uint16, lineNo int) (uint16, error) {
	if value, err := parseNumber(token); err == nil {
		if value > uint64(limit) {
			return 0, fmt.Errorf("value out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	label := normalizeLabel(token)
	if addr, ok := a.labels[label]; ok {
		if addr > limit {
			return 0, fmt.Errorf("label '%s' does not fit operand on line %d", token, lineNo)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid value '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
