package main

import (
	"testing"

	"gochip8/pkg/cpu"
)

func TestKeypadCoversEveryKey(t *testing.T) {
	seen := make(map[int]bool)
	for _, hex := range keypad {
		if hex < 0 || hex >= cpu.NumKeys {
			t.Errorf("key %X out of range", hex)
		}
		if seen[hex] {
			t.Errorf("key %X mapped twice", hex)
		}
		seen[hex] = true
	}
	if len(seen) != cpu.NumKeys {
		t.Errorf("expected %d keys, got %d", cpu.NumKeys, len(seen))
	}
}

func TestFillRGBA(t *testing.T) {
	var fb [cpu.DisplaySize]byte
	fb[1] = 1
	fb[cpu.DisplaySize-1] = 1

	dst := make([]byte, cpu.DisplaySize*4)
	fillRGBA(dst, &fb)

	tests := []struct {
		pixel int
		want  [4]byte
	}{
		{0, [4]byte{cpu.ColorOff.R, cpu.ColorOff.G, cpu.ColorOff.B, cpu.ColorOff.A}},
		{1, [4]byte{cpu.ColorOn.R, cpu.ColorOn.G, cpu.ColorOn.B, cpu.ColorOn.A}},
		{cpu.DisplaySize - 1, [4]byte{cpu.ColorOn.R, cpu.ColorOn.G, cpu.ColorOn.B, cpu.ColorOn.A}},
	}
	for _, tt := range tests {
		var got [4]byte
		copy(got[:], dst[tt.pixel*4:])
		if got != tt.want {
			t.Errorf("pixel %d: expected %v, got %v", tt.pixel, tt.want, got)
		}
	}
}
