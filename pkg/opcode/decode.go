package opcode

import (
	"errors"
	"fmt"
)

// ErrUnknownOpcode is returned for words that match no known instruction.
var ErrUnknownOpcode = errors.New("unknown opcode")

// DecodeError carries the raw word that failed to decode.
type DecodeError struct {
	Word uint16
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode 0x%04X: %v", e.Word, ErrUnknownOpcode)
}

func (e *DecodeError) Unwrap() error {
	return ErrUnknownOpcode
}

// Decode maps the upper and lower byte of an instruction to its opcode. The
// high nibble of upper selects the group; groups 0x0, 0x5, 0x8, 0x9, 0xE and
// 0xF are narrowed down by the lower byte.
func Decode(upper, lower byte) (Opcode, error) {
	group := upper >> 4
	variant := lower & 0x0F

	switch group {
	case 0x0:
		switch {
		case upper == 0x00 && lower == 0x00:
			return Exit, nil
		case upper == 0x00 && lower == 0xE0:
			return Cls, nil
		case upper == 0x00 && lower == 0xEE:
			return Ret, nil
		}
		return Sys, nil
	case 0x1:
		return Jp, nil
	case 0x2:
		return Call, nil
	case 0x3:
		return SeImm, nil
	case 0x4:
		return SneImm, nil
	case 0x5:
		if variant == 0x0 {
			return SeReg, nil
		}
	case 0x6:
		return LdImm, nil
	case 0x7:
		return AddImm, nil
	case 0x8:
		switch variant {
		case 0x0:
			return LdReg, nil
		case 0x1:
			return Or, nil
		case 0x2:
			return And, nil
		case 0x3:
			return Xor, nil
		case 0x4:
			return AddReg, nil
		case 0x5:
			return Sub, nil
		case 0x6:
			return Shr, nil
		case 0x7:
			return Subn, nil
		case 0xE:
			return Shl, nil
		}
	case 0x9:
		if variant == 0x0 {
			return SneReg, nil
		}
	case 0xA:
		return LdI, nil
	case 0xB:
		return JpV0, nil
	case 0xC:
		return Rnd, nil
	case 0xD:
		return Drw, nil
	case 0xE:
		switch lower {
		case 0x9E:
			return Skp, nil
		case 0xA1:
			return Sknp, nil
		}
	case 0xF:
		switch lower {
		case 0x07:
			return LdVxDT, nil
		case 0x0A:
			return LdVxK, nil
		case 0x15:
			return LdDTVx, nil
		case 0x18:
			return LdSTVx, nil
		case 0x1E:
			return AddIVx, nil
		case 0x29:
			return LdFVx, nil
		case 0x33:
			return LdBVx, nil
		case 0x55:
			return LdMemVx, nil
		case 0x65:
			return LdVxMem, nil
		}
	}

	return 0, &DecodeError{Word: Word(upper, lower)}
}

// DecodeWord is Decode for a 16-bit big-endian instruction word.
func DecodeWord(word uint16) (Opcode, error) {
	return Decode(byte(word>>8), byte(word))
}

// Word joins the upper and lower byte of an instruction.
func Word(upper, lower byte) uint16 {
	return uint16(upper)<<8 | uint16(lower)
}

// Argument selects which field Arg extracts.
type Argument uint8

const (
	ArgX        Argument = iota // bits 8-11
	ArgY                        // bits 4-7
	ArgAddress                  // bits 0-11
	ArgConstant                 // bits 0-7
	ArgNibble                   // bits 0-3
)

// Arg extracts an argument from the raw instruction bytes.
func Arg(kind Argument, upper, lower byte) uint16 {
	switch kind {
	case ArgX:
		return uint16(upper & 0x0F)
	case ArgY:
		return uint16(lower >> 4)
	case ArgAddress:
		return uint16(upper&0x0F)<<8 | uint16(lower)
	case ArgConstant:
		return uint16(lower)
	case ArgNibble:
		return uint16(lower & 0x0F)
	}
	return 0
}
