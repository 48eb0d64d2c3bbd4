//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package memory

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// Reserve maps capacity bytes of anonymous private memory. Fresh pages are
// zero-filled by the kernel.
func Reserve(capacity uint64) ([]byte, error) {
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}
	if capacity > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes", ErrReservationTooLarge, capacity)
	}
	mem, err := unix.Mmap(-1, 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("memory: reserve %d bytes: %w", capacity, err)
	}
	return mem, nil
}

// Release unmaps a region previously returned by Reserve.
func Release(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("memory: release %d bytes: %w", len(mem), err)
	}
	return nil
}
