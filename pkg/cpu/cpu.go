package cpu

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gochip8/pkg/grid"
	"gochip8/pkg/memory"
	"gochip8/pkg/opcode"
)

const (
	NumRegisters  = 16
	StackSize     = 16
	NumKeys       = 16
	DisplayWidth  = 64
	DisplayHeight = 32
	DisplaySize   = DisplayWidth * DisplayHeight

	// FlagRegister is VF, written by arithmetic, shift and draw instructions.
	FlagRegister = 0xF
)

var (
	ErrHalted          = errors.New("cpu halted")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidRegister = errors.New("invalid register")
)

// StepError reports a failed step together with the instruction address.
type StepError struct {
	PC   uint16
	Word uint16
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step at 0x%03X (0x%04X): %v", e.PC, e.Word, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CPU holds all processor-visible state and executes one instruction per
// Step. Memory is borrowed from the session that created it.
type CPU struct {
	V [NumRegisters]byte

	DT byte
	ST byte

	PC uint16
	I  uint16
	SP uint8

	Stack [StackSize]uint16

	// Display is row-major, one byte per pixel, values 0 or 1.
	Display [DisplaySize]byte
	Dirty   bool

	Keys [NumKeys]bool

	Halted bool

	mem *memory.AddressSpace
	rng *rand.Rand
}

// Option configures a CPU.
type Option func(*CPU)

// WithRand uses r as the source for the random instruction.
func WithRand(r *rand.Rand) Option {
	return func(c *CPU) {
		c.rng = r
	}
}

// WithSeed makes the random instruction deterministic.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)))
}

// New creates a CPU bound to mem with PC at the first program byte.
func New(mem *memory.AddressSpace, opts ...Option) *CPU {
	c := &CPU{
		PC:  memory.ProgramStart,
		mem: mem,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Memory returns the address space the CPU executes from.
func (c *CPU) Memory() *memory.AddressSpace {
	return c.mem
}

// Step fetches, decodes and executes one instruction. On error the CPU state
// is left as it was before the step.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}

	pc := c.PC
	upper, err := c.mem.Read(pc)
	if err != nil {
		return &StepError{PC: pc, Err: err}
	}
	lower, err := c.mem.Read(pc + 1)
	if err != nil {
		return &StepError{PC: pc, Err: err}
	}

	op, err := opcode.Decode(upper, lower)
	if err != nil {
		return &StepError{PC: pc, Word: opcode.Word(upper, lower), Err: err}
	}

	// Control transfers overwrite PC and skips add to it, so the default
	// advance happens before dispatch.
	c.PC = pc + 2
	if err := handlers[op](c, upper, lower); err != nil {
		c.PC = pc
		return &StepError{PC: pc, Word: opcode.Word(upper, lower), Err: err}
	}
	return nil
}

// Run steps until the CPU halts or a step fails.
func (c *CPU) Run() error {
	for !c.Halted {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Tick decrements each nonzero timer by one. Hosts call it at 60 Hz.
func (c *CPU) Tick() {
	if c.DT > 0 {
		c.DT--
	}
	if c.ST > 0 {
		c.ST--
	}
}

func (c *CPU) Running() bool {
	return !c.Halted
}

// SoundIssued reports whether the sound timer is active.
func (c *CPU) SoundIssued() bool {
	return c.ST > 0
}

// DelayIssued reports whether the delay timer is active.
func (c *CPU) DelayIssued() bool {
	return c.DT > 0
}

// DisplayUpdated reports whether the framebuffer changed since the last
// AcknowledgeDisplay.
func (c *CPU) DisplayUpdated() bool {
	return c.Dirty
}

func (c *CPU) AcknowledgeDisplay() {
	c.Dirty = false
}

// Framebuffer returns a copy of the display.
func (c *CPU) Framebuffer() [DisplaySize]byte {
	return c.Display
}

// Pixel returns the pixel at (x, y), wrapping both coordinates.
func (c *CPU) Pixel(x, y int) byte {
	return c.Display[pixelIndex(x, y)]
}

func (c *CPU) PressKey(key int) error {
	return c.setKey(key, true)
}

func (c *CPU) ReleaseKey(key int) error {
	return c.setKey(key, false)
}

func (c *CPU) setKey(key int, down bool) error {
	if key < 0 || key >= NumKeys {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	c.Keys[key] = down
	return nil
}

func pixelIndex(x, y int) int {
	x %= DisplayWidth
	if x < 0 {
		x += DisplayWidth
	}
	y %= DisplayHeight
	if y < 0 {
		y += DisplayHeight
	}
	return grid.GetIndex(x, y, DisplayWidth)
}
