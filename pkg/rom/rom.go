// Package rom loads CHIP-8 program images from disk.
package rom

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gochip8/pkg/memory"
)

var (
	ErrEmpty    = errors.New("rom is empty")
	ErrTooLarge = errors.New("rom does not fit in program memory")
	ErrNotFound = errors.New("rom not found")
)

// Validate checks that data can be loaded at memory.ProgramStart.
func Validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > memory.MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), memory.MaxProgramSize)
	}
	return nil
}

// Read reads and validates a ROM image from r.
func Read(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, memory.MaxProgramSize+1))
	if err != nil {
		return nil, err
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Load reads the ROM at path.
func Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	data, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return data, nil
}
