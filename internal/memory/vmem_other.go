//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package memory

import (
	"fmt"
	"math"
)

// Reserve falls back to a zeroed heap slice on platforms without mmap.
func Reserve(capacity uint64) ([]byte, error) {
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}
	if capacity > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes", ErrReservationTooLarge, capacity)
	}
	return make([]byte, capacity), nil
}

// Release is a no-op; the garbage collector reclaims the slice.
func Release(mem []byte) error {
	return nil
}
