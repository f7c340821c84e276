//go:build !windows

package interp

import (
	"os"
	"syscall"

	"golang.org/x/term"
)

// getKey implements GETKEY: a non-blocking keypress read. Per spec
// §4.8 it temporarily places stdin into non-canonical, non-echo,
// non-blocking mode, attempts a single-byte read, then restores the
// terminal - rather than leaving it raw for the process lifetime, the
// way an interactive frontend might (compare terminal_host.go's
// Start/Stop pairing for a persistent raw-mode session).
func getKey() (int64, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return -1, nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return -1, nil
	}
	defer term.Restore(fd, old) //nolint:errcheck

	if err := syscall.SetNonblock(fd, true); err != nil {
		return -1, nil
	}
	defer syscall.SetNonblock(fd, false) //nolint:errcheck

	var buf [1]byte
	n, err := syscall.Read(fd, buf[:])
	if n <= 0 || err != nil {
		return -1, nil
	}
	return int64(buf[0]), nil
}
