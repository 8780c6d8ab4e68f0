// Package machine wraps an address space and CPU into a session that hosts
// can drive from any goroutine.
package machine

import (
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/cpu"
	"gochip8/pkg/memory"
	"gochip8/pkg/opcode"
	"gochip8/pkg/rom"
)

// DefaultCyclesPerFrame gives 600 instructions per second at 60 Hz.
const DefaultCyclesPerFrame = 10

type Config struct {
	// CyclesPerFrame is the number of instructions RunFrame executes before
	// ticking the timers.
	CyclesPerFrame int

	// Seed makes the random instruction deterministic when non-zero.
	Seed uint64

	Logger *logrus.Logger
}

// Stats counts work done since the last Reset.
type Stats struct {
	Frames uint64
	Cycles uint64
}

type Machine struct {
	mu sync.Mutex

	cfg     Config
	log     *logrus.Entry
	program []byte

	mem *memory.AddressSpace
	cpu *cpu.CPU
	err error

	stats Stats
}

// New validates program and builds a session with it loaded.
func New(program []byte, cfg Config) (*Machine, error) {
	if err := rom.Validate(program); err != nil {
		return nil, err
	}
	if cfg.CyclesPerFrame <= 0 {
		cfg.CyclesPerFrame = DefaultCyclesPerFrame
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	m := &Machine{
		cfg:     cfg,
		log:     cfg.Logger.WithField("component", "machine"),
		program: append([]byte(nil), program...),
	}
	m.reset()
	m.log.WithFields(logrus.Fields{
		"size":   len(program),
		"cycles": cfg.CyclesPerFrame,
	}).Info("program loaded")
	return m, nil
}

func (m *Machine) reset() {
	var opts []cpu.Option
	if m.cfg.Seed != 0 {
		opts = append(opts, cpu.WithSeed(m.cfg.Seed))
	}
	m.mem = memory.New(m.program)
	m.cpu = cpu.New(m.mem, opts...)
	m.err = nil
	m.stats = Stats{}
}

// Reset reloads the original program and clears all CPU state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.log.Info("reset")
}

// Step executes one instruction. Once a step has failed the same error is
// returned until Reset or Restore.
func (m *Machine) Step() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step()
}

func (m *Machine) step() error {
	if m.err != nil {
		return m.err
	}
	if m.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		m.trace()
	}
	if err := m.cpu.Step(); err != nil {
		if errors.Is(err, cpu.ErrHalted) {
			return err
		}
		m.err = err
		fields := logrus.Fields{"error": err}
		var stepErr *cpu.StepError
		if errors.As(err, &stepErr) {
			fields["pc"] = stepErr.PC
			fields["word"] = stepErr.Word
		}
		m.log.WithFields(fields).Error("emulation stopped")
		return err
	}
	m.stats.Cycles++
	if !m.cpu.Running() {
		m.log.WithField("pc", m.cpu.PC).Info("program exited")
	}
	return nil
}

func (m *Machine) trace() {
	upper, errU := m.mem.Read(m.cpu.PC)
	lower, errL := m.mem.Read(m.cpu.PC + 1)
	if errU != nil || errL != nil {
		return
	}
	text, err := opcode.Disassemble(upper, lower)
	if err != nil {
		text = "?"
	}
	m.log.WithFields(logrus.Fields{
		"pc":     m.cpu.PC,
		"opcode": text,
	}).Debug("step")
}

// RunFrame executes up to CyclesPerFrame instructions, stopping early on halt
// or error, then ticks the timers once.
func (m *Machine) RunFrame() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for i := 0; i < m.cfg.CyclesPerFrame && m.cpu.Running(); i++ {
		if err = m.step(); err != nil {
			break
		}
	}
	m.cpu.Tick()
	m.stats.Frames++
	return err
}

// Tick decrements the timers without executing anything.
func (m *Machine) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpu.Tick()
}

func (m *Machine) PressKey(key int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.PressKey(key)
}

func (m *Machine) ReleaseKey(key int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.ReleaseKey(key)
}

// Running reports whether the program can still make progress.
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.Running() && m.err == nil
}

// Err returns the error that stopped emulation, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Frame returns the framebuffer and whether it changed since the previous
// call.
func (m *Machine) Frame() ([cpu.DisplaySize]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := m.cpu.DisplayUpdated()
	m.cpu.AcknowledgeDisplay()
	return m.cpu.Framebuffer(), updated
}

func (m *Machine) Pixel(x, y int) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.Pixel(x, y)
}

// SoundOn reports whether the beeper should be audible.
func (m *Machine) SoundOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.SoundIssued()
}

func (m *Machine) RegisterState(r cpu.Register) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.RegisterState(r)
}

func (m *Machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Machine) Dump(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpu.Dump(w)
}

func (m *Machine) Screenshot(w io.Writer, scale int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.Screenshot(w, scale)
}

// Snapshot captures the session as an in-memory save state.
func (m *Machine) Snapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.cpu.Snapshot()
	if err != nil {
		return nil, err
	}
	m.log.WithField("bytes", len(data)).Info("state saved")
	return data, nil
}

// Restore applies a save state and clears any stopping error.
func (m *Machine) Restore(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cpu.Restore(data); err != nil {
		m.log.WithField("error", err).Warn("restore failed")
		return err
	}
	m.err = nil
	m.log.WithField("pc", m.cpu.PC).Info("state restored")
	return nil
}
