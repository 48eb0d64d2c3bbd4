package memory

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfMemory         = errors.New("memory: out of memory")
	ErrZeroCapacity        = errors.New("memory: zero capacity")
	ErrReservationTooLarge = errors.New("memory: reservation too large")
	ErrStaleSpan           = errors.New("memory: span used after arena clear")
	ErrArenaClosed         = errors.New("memory: arena closed")
)

// Span is an arena-relative byte range. It stays resolvable only within the
// epoch it was allocated in.
type Span struct {
	Offset uint64
	Size   uint64
	epoch  uint64
}

// End returns the offset one past the last byte of the span.
func (s Span) End() uint64 {
	return s.Offset + s.Size
}

// Arena is a fixed-capacity bump allocator over one contiguous region.
//
// An Arena is not safe for concurrent use; owners guard it with their own
// lock.
type Arena struct {
	base     []byte
	capacity uint64
	offset   uint64
	epoch    uint64
	release  func([]byte) error
	closed   bool
}

// NewArena reserves capacity bytes of virtual memory for a new arena.
func NewArena(capacity uint64) (*Arena, error) {
	mem, err := Reserve(capacity)
	if err != nil {
		return nil, err
	}
	return &Arena{
		base:     mem,
		capacity: capacity,
		release:  Release,
	}, nil
}

// MustArena is NewArena for start-up paths where a failed reservation is fatal.
func MustArena(capacity uint64) *Arena {
	a, err := NewArena(capacity)
	if err != nil {
		panic(err)
	}
	return a
}

// Wrap returns an arena over b that is already fully allocated. It is meant
// for decoding buffers handed over by another owner; Close releases nothing.
func Wrap(b []byte) *Arena {
	n := uint64(len(b))
	return &Arena{base: b[:n:n], capacity: n, offset: n}
}

// Sub carves a child arena of size bytes out of a. The child shares a's
// reservation, so a must not be cleared while the child is alive. Closing
// the child releases nothing.
func (a *Arena) Sub(size uint64) (*Arena, error) {
	span, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	end := span.End()
	return &Arena{
		base:     a.base[span.Offset:end:end],
		capacity: size,
	}, nil
}

// Alloc advances the arena by size bytes. On failure the offset is left
// unchanged.
func (a *Arena) Alloc(size uint64) (Span, error) {
	if a.closed {
		return Span{}, ErrArenaClosed
	}
	if size > a.capacity-a.offset {
		return Span{}, fmt.Errorf("%w: need %d bytes, %d of %d free", ErrOutOfMemory, size, a.capacity-a.offset, a.capacity)
	}
	span := Span{Offset: a.offset, Size: size, epoch: a.epoch}
	a.offset += size
	return span, nil
}

// Emplace copies b into freshly allocated arena memory. The arena owns the
// copy; b may be reused by the caller immediately.
func (a *Arena) Emplace(b []byte) (Span, error) {
	span, err := a.Alloc(uint64(len(b)))
	if err != nil {
		return Span{}, err
	}
	copy(a.base[span.Offset:span.End()], b)
	return span, nil
}

// Clear rewinds the arena to offset zero. Memory is neither zeroed nor
// released; every span handed out before the call becomes stale.
func (a *Arena) Clear() {
	a.offset = 0
	a.epoch++
}

// Bytes resolves span to the arena memory it covers. It panics with
// ErrStaleSpan when span predates the last Clear.
func (a *Arena) Bytes(span Span) []byte {
	if span.epoch != a.epoch {
		panic(fmt.Errorf("%w: span epoch %d, arena epoch %d", ErrStaleSpan, span.epoch, a.epoch))
	}
	return a.base[span.Offset:span.End():span.End()]
}

// Slice returns size bytes starting at offset without bounds checks against
// the allocated region. Bytes past Offset are unspecified.
func (a *Arena) Slice(offset, size uint64) []byte {
	return a.base[offset : offset+size : offset+size]
}

// View returns the allocated prefix of the arena.
func (a *Arena) View() []byte {
	return a.base[:a.offset:a.offset]
}

func (a *Arena) Offset() uint64 {
	return a.offset
}

func (a *Arena) Capacity() uint64 {
	return a.capacity
}

func (a *Arena) Remaining() uint64 {
	return a.capacity - a.offset
}

// Epoch counts how many times the arena has been cleared.
func (a *Arena) Epoch() uint64 {
	return a.epoch
}

// Close releases the reservation. The arena must not be used afterwards.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	mem := a.base
	a.base = nil
	a.offset = 0
	if a.release == nil {
		return nil
	}
	return a.release(mem)
}
