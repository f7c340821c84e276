//go:build windows

package interp

import (
	"crypto/rand"
	"encoding/binary"
)

// randomU64 uses crypto/rand on Windows, which itself calls into
// BCryptGenRandom — the same CSPRNG original_source's get_true_random()
// calls directly; there's no narrower third-party wrapper in the pack
// for this, so the stdlib call is used here (see DESIGN.md).
func randomU64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
