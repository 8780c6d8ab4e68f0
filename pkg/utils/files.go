// Package utils has small helpers shared by the command-line front ends.
package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gochip8/pkg/asm"
	"gochip8/pkg/rom"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// IsSource reports whether path names assembly source rather than a ROM.
func IsSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".s", ".src":
		return true
	}
	return false
}

// LoadProgram returns the bytes to load at 0x200: the ROM image itself, or
// the assembled output when path is source.
func LoadProgram(path string) ([]byte, error) {
	if !IsSource(path) {
		return rom.Load(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, _, err := asm.Assemble(string(src))
	if err != nil {
		return nil, err
	}
	if err := rom.Validate(code); err != nil {
		return nil, err
	}
	return code, nil
}

// StatePath is the save-state file kept next to a program.
func StatePath(programPath string) string {
	return strings.TrimSuffix(programPath, filepath.Ext(programPath)) + ".state"
}

// SyncState calls save every interval and writes the result to path until
// stop is closed. Unchanged states are not rewritten and errors skip that
// round.
func SyncState(save func() ([]byte, error), path string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last []byte
	for {
		select {
		case <-ticker.C:
			data, err := save()
			if err != nil || bytes.Equal(data, last) {
				continue
			}
			if err := os.WriteFile(path, data, 0o644); err == nil {
				last = data
			}
		case <-stop:
			return
		}
	}
}
