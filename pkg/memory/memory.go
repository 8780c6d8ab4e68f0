package memory

import (
	"errors"
	"fmt"
)

// Memory map.
//
//	0x000-0x04F: built-in font (read-only)
//	0x050-0x1FF: reserved, not accessible to programs
//	0x200-0xFFF: program and data
const (
	Size         = 0x1000
	FontStart    = 0x000
	FontEnd      = FontStart + len(Font) - 1
	ProgramStart = 0x200
	ProgramEnd   = Size - 1

	// MaxProgramSize is the number of bytes that fit in the program region.
	MaxProgramSize = Size - ProgramStart
)

// ErrOutOfRange is returned for any access outside the permitted window.
var ErrOutOfRange = errors.New("address out of range")

// AccessError describes a rejected read or write.
type AccessError struct {
	Op   string
	Addr uint16
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s 0x%04X: %v", e.Op, e.Addr, ErrOutOfRange)
}

func (e *AccessError) Unwrap() error {
	return ErrOutOfRange
}

// AddressSpace is the 4 KiB memory of a session. The font is written once at
// construction; only the program region can be changed afterwards.
type AddressSpace struct {
	contents [Size]byte
}

// New creates an address space holding the font and up to MaxProgramSize bytes
// of program, copied to ProgramStart. Extra program bytes are ignored.
func New(program []byte) *AddressSpace {
	a := &AddressSpace{}
	copy(a.contents[FontStart:], Font[:])
	copy(a.contents[ProgramStart:], program)
	return a
}

// Valid reports whether addr lies in the program region.
func (a *AddressSpace) Valid(addr uint16) bool {
	return within(addr, ProgramStart, ProgramEnd)
}

// Readable reports whether addr may be read: the program region or the font.
func (a *AddressSpace) Readable(addr uint16) bool {
	return a.Valid(addr) || within(addr, FontStart, FontEnd)
}

// Read returns the byte at addr.
func (a *AddressSpace) Read(addr uint16) (byte, error) {
	if !a.Readable(addr) {
		return 0, &AccessError{Op: "read", Addr: addr}
	}
	return a.contents[addr], nil
}

// Write stores val at addr. Only the program region is writable.
func (a *AddressSpace) Write(addr uint16, val byte) error {
	if !a.Valid(addr) {
		return &AccessError{Op: "write", Addr: addr}
	}
	a.contents[addr] = val
	return nil
}

// Program returns a copy of the program region.
func (a *AddressSpace) Program() []byte {
	out := make([]byte, MaxProgramSize)
	copy(out, a.contents[ProgramStart:])
	return out
}

// LoadProgram overwrites the whole program region with data, zero filling
// whatever data does not cover.
func (a *AddressSpace) LoadProgram(data []byte) {
	region := a.contents[ProgramStart:]
	clear(region)
	copy(region, data)
}

func within(addr uint16, begin, end int) bool {
	return int(addr) >= begin && int(addr) <= end
}
