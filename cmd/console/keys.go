package main

import "gochip8/pkg/cpu"

// keypad uses the same QWERTY block as the desktop front end.
var keypad = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// keyHolder turns terminal key presses, which have no release event, into
// presses held for a fixed number of frames. Auto-repeat extends the hold.
type keyHolder struct {
	hold int
	left [cpu.NumKeys]int
}

func newKeyHolder(frames int) *keyHolder {
	return &keyHolder{hold: max(frames, 1)}
}

// Press returns the hex key for b and whether it was not already held.
// ok is false for bytes outside the keypad.
func (h *keyHolder) Press(b byte) (key int, pressed bool, ok bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	key, ok = keypad[b]
	if !ok {
		return 0, false, false
	}
	pressed = h.left[key] == 0
	h.left[key] = h.hold
	return key, pressed, true
}

// Tick advances one frame and returns the keys whose hold ran out.
func (h *keyHolder) Tick() []int {
	var released []int
	for k := range h.left {
		if h.left[k] == 0 {
			continue
		}
		h.left[k]--
		if h.left[k] == 0 {
			released = append(released, k)
		}
	}
	return released
}
