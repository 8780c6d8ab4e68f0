package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gochip8/pkg/memory"
)

// ErrBadSnapshot is returned when a snapshot archive is incomplete.
var ErrBadSnapshot = errors.New("bad snapshot")

// savedState is the JSON part of a snapshot.
type savedState struct {
	V      [NumRegisters]byte `json:"v"`
	DT     byte               `json:"dt"`
	ST     byte               `json:"st"`
	PC     uint16             `json:"pc"`
	I      uint16             `json:"i"`
	SP     uint8              `json:"sp"`
	Stack  [StackSize]uint16  `json:"stack"`
	Halted bool               `json:"halted"`
}

// Snapshot serialises the CPU and the program region of its memory into an
// in-memory ZIP archive. The key matrix is not saved.
func (c *CPU) Snapshot() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := savedState{
		V:      c.V,
		DT:     c.DT,
		ST:     c.ST,
		PC:     c.PC,
		I:      c.I,
		SP:     c.SP,
		Stack:  c.Stack,
		Halted: c.Halted,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", c.mem.Program()); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "framebuffer.bin", c.Display[:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore applies a snapshot produced by Snapshot. Nothing is changed unless
// the whole archive is valid.
func (c *CPU) Restore(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state savedState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}
	if int(state.SP) > StackSize {
		return fmt.Errorf("%w: stack pointer %d", ErrBadSnapshot, state.SP)
	}

	program, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return err
	}
	if len(program) != memory.MaxProgramSize {
		return fmt.Errorf("%w: memory.bin has %d bytes", ErrBadSnapshot, len(program))
	}

	display, err := readZipEntry(fileMap, "framebuffer.bin")
	if err != nil {
		return err
	}
	if len(display) != DisplaySize {
		return fmt.Errorf("%w: framebuffer.bin has %d bytes", ErrBadSnapshot, len(display))
	}

	c.V = state.V
	c.DT = state.DT
	c.ST = state.ST
	c.PC = state.PC
	c.I = state.I
	c.SP = state.SP
	c.Stack = state.Stack
	c.Halted = state.Halted
	c.mem.LoadProgram(program)
	for i, p := range display {
		c.Display[i] = p & 1
	}
	c.Dirty = true
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("%w: zip entry %q not found", ErrBadSnapshot, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
