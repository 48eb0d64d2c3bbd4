package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
)

var ErrUnknownByteOrder = errors.New("wire: unknown byte order")

// Encodable is implemented by payload types that know their wire layout.
type Encodable interface {
	Encode(w *Writer)
}

// Decodable is the reading half of Encodable.
type Decodable interface {
	Decode(r *Reader)
}

// Writer appends fixed-width values to an arena.
//
// Errors are sticky: after the first failed allocation every later write is
// a no-op and Err reports the failure. The arena itself never holds a
// partially written value because allocation is all-or-nothing.
type Writer struct {
	arena  *memory.Arena
	order  binary.ByteOrder
	cursor uint64
	err    error
}

// NewWriter returns a writer positioned at offset 0 of arena. A nil order
// selects little-endian.
func NewWriter(arena *memory.Arena, order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{arena: arena, order: order}
}

// NewPair builds the writer/reader pair that shares one arena.
func NewPair(arena *memory.Arena, order binary.ByteOrder) (*Writer, *Reader) {
	w := NewWriter(arena, order)
	return w, NewReader(arena, w.order)
}

func (w *Writer) next(size uint64) []byte {
	if w.err != nil {
		return nil
	}
	span, err := w.arena.Alloc(size)
	if err != nil {
		w.err = err
		return nil
	}
	w.cursor = span.End()
	return w.arena.Bytes(span)
}

func (w *Writer) WriteUint8(v uint8) {
	if b := w.next(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) WriteUint32(v uint32) {
	if b := w.next(4); b != nil {
		w.order.PutUint32(b, v)
	}
}

func (w *Writer) WriteUint64(v uint64) {
	if b := w.next(8); b != nil {
		w.order.PutUint64(b, v)
	}
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteBool(v bool) {
	b := uint8(0)
	if v {
		b = 1
	}
	w.WriteUint8(b)
}

// WriteBytes appends raw bytes with no length prefix.
func (w *Writer) WriteBytes(p []byte) {
	if b := w.next(uint64(len(p))); b != nil {
		copy(b, p)
	}
}

// WriteString appends a u64 length followed by the string bytes.
func (w *Writer) WriteString(s string) {
	w.WriteUint64(uint64(len(s)))
	if b := w.next(uint64(len(s))); b != nil {
		copy(b, s)
	}
}

// Write implements io.Writer on top of WriteBytes.
func (w *Writer) Write(p []byte) (int, error) {
	w.WriteBytes(p)
	if w.err != nil {
		return 0, w.err
	}
	return len(p), nil
}

// WriteUint64At overwrites 8 already-written bytes at offset without moving
// the cursor.
func (w *Writer) WriteUint64At(offset, v uint64) {
	if offset+8 > w.cursor {
		protocol.Violatef("wire.WriteUint64At", "patch [%d,%d) beyond written region %d", offset, offset+8, w.cursor)
	}
	w.order.PutUint64(w.arena.Slice(offset, 8), v)
}

// Encode writes every value in order.
func (w *Writer) Encode(values ...Encodable) {
	for _, v := range values {
		v.Encode(w)
	}
}

func (w *Writer) Err() error {
	return w.err
}

// ResetErr returns the sticky error and clears it so the writer can be used
// again from its current offset.
func (w *Writer) ResetErr() error {
	err := w.err
	w.err = nil
	return err
}

func (w *Writer) Offset() uint64 {
	return w.cursor
}

func (w *Writer) Order() binary.ByteOrder {
	return w.order
}

// Reset rewinds the cursor to 0 and forgets any sticky error. Call it after
// the arena is cleared.
func (w *Writer) Reset() {
	w.cursor = 0
	w.err = nil
}

// ParseByteOrder accepts "little"/"le" and "big"/"be".
func ParseByteOrder(raw string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "little", "le", "little-endian":
		return binary.LittleEndian, nil
	case "big", "be", "big-endian":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownByteOrder, raw)
	}
}
