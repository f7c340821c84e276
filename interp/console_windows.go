//go:build windows

package interp

import "os"

// getKey is GETKEY's Windows fallback. x/term's raw-mode support on
// Windows governs the console's line/echo mode but not non-blocking
// reads the way syscall.SetNonblock does on POSIX; without a console
// API wrapper in the example pack to ground a fuller implementation
// against, this conservatively reports "no key available" rather than
// risk blocking the interpreter loop.
func getKey() (int64, error) {
	_ = os.Stdin
	return -1, nil
}
