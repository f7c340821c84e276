//go:build !windows

package interp

import (
	"encoding/binary"
	"fmt"
	"os"
)

// randomU64 reads 8 bytes straight from /dev/urandom, matching
// original_source's get_true_random() on POSIX rather than going
// through a higher-level abstraction.
func randomU64() (uint64, error) {
	f, err := os.Open("/dev/urandom")
	if err != nil {
		return 0, fmt.Errorf("open /dev/urandom: %w", err)
	}
	defer f.Close()

	var buf [8]byte
	if _, err := readFull(f, buf[:]); err != nil {
		return 0, fmt.Errorf("read /dev/urandom: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
