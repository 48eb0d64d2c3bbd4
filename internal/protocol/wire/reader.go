package wire

import (
	"encoding/binary"
	"math"

	"github.com/tech-paws/vm/internal/memory"
)

// Reader decodes values written by a Writer over the same arena.
//
// Reader does no bounds checking against the written region; framing is the
// command log's job. Reading beyond the arena capacity panics.
type Reader struct {
	arena  *memory.Arena
	order  binary.ByteOrder
	cursor uint64
}

// NewReader returns a reader positioned at offset 0 of arena. A nil order
// selects little-endian.
func NewReader(arena *memory.Arena, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{arena: arena, order: order}
}

func (r *Reader) next(size uint64) []byte {
	b := r.arena.Slice(r.cursor, size)
	r.cursor += size
	return b
}

func (r *Reader) ReadUint8() uint8 {
	return r.next(1)[0]
}

func (r *Reader) ReadUint32() uint32 {
	return r.order.Uint32(r.next(4))
}

func (r *Reader) ReadUint64() uint64 {
	return r.order.Uint64(r.next(8))
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

// ReadBytes returns a borrowed view of the next n bytes. The view is only
// valid until the arena is cleared.
func (r *Reader) ReadBytes(n uint64) []byte {
	return r.next(n)
}

// ReadString reads a u64 length and copies that many bytes into a string.
func (r *Reader) ReadString() string {
	n := r.ReadUint64()
	return string(r.next(n))
}

// ReadUint64At reads 8 bytes at offset without moving the cursor.
func (r *Reader) ReadUint64At(offset uint64) uint64 {
	return r.order.Uint64(r.arena.Slice(offset, 8))
}

// Decode reads every value in order.
func (r *Reader) Decode(values ...Decodable) {
	for _, v := range values {
		v.Decode(r)
	}
}

// Skip advances the cursor by n bytes without reading.
func (r *Reader) Skip(n uint64) {
	r.cursor += n
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset uint64) {
	r.cursor = offset
}

func (r *Reader) Offset() uint64 {
	return r.cursor
}

func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

func (r *Reader) Reset() {
	r.cursor = 0
}
