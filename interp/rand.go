package interp

import "math"

// randomU64 is supplied per-platform (rand_unix.go reads /dev/urandom
// directly; rand_other.go falls back to crypto/rand), grounded in
// original_source's get_true_random(): BCryptGenRandom on Windows,
// a direct /dev/urandom read elsewhere.

// rollRand implements RAND r, min, max: uniform in [min,max], swapping
// if min>max, and returning raw 64-bit entropy when the requested range
// spans the full uint64 domain.
func (vm *VM) rollRand(min, max int64) (int64, error) {
	if min > max {
		min, max = max, min
	}
	span := uint64(max) - uint64(min)
	if span == math.MaxUint64 {
		v, err := randomU64()
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	v, err := randomU64()
	if err != nil {
		return 0, err
	}
	// span+1 never overflows here since span < MaxUint64.
	return min + int64(v%(span+1)), nil
}
