//go:build unix

package main

import (
	"errors"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// terminal puts stdin into non-canonical mode with non-blocking reads.
// Signals stay enabled so Ctrl-C still reaches the process.
type terminal struct {
	fd  int
	old unix.Termios
	buf []byte
}

func openTerminal() (*terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	t := &terminal{fd: fd, buf: make([]byte, 64)}
	if err := termios.Tcgetattr(uintptr(fd), &t.old); err != nil {
		return nil, err
	}
	raw := t.old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &raw); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadKeys returns whatever bytes are waiting without blocking.
func (t *terminal) ReadKeys() []byte {
	n, err := unix.Read(t.fd, t.buf)
	if err != nil || n <= 0 {
		return nil
	}
	return t.buf[:n]
}

// Fits reports whether stdout is large enough for the display.
func (t *terminal) Fits(cols, rows int) bool {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return true
	}
	return w >= cols && h >= rows
}

func (t *terminal) Close() error {
	return termios.Tcsetattr(uintptr(t.fd), termios.TCSANOW, &t.old)
}
