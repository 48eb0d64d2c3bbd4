package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/testutil/testlog"
)

func newArena(t *testing.T, capacity uint64) *memory.Arena {
	t.Helper()
	a, err := memory.NewArena(capacity)
	if err != nil {
		t.Fatalf("new arena: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type point struct {
	X, Y float32
	Tag  string
}

func (p point) Encode(w *Writer) {
	w.WriteFloat32(p.X)
	w.WriteFloat32(p.Y)
	w.WriteString(p.Tag)
}

func (p *point) Decode(r *Reader) {
	p.X = r.ReadFloat32()
	p.Y = r.ReadFloat32()
	p.Tag = r.ReadString()
}

func TestWriterReaderRoundTrip(t *testing.T) {
	testlog.Start(t)
	w, r := NewPair(newArena(t, 256), nil)

	w.WriteUint8(0xAB)
	w.WriteUint32(91)
	w.WriteUint64(1 << 40)
	w.WriteBool(true)
	w.WriteString("tech.paws.tests")
	w.Encode(point{X: 1.5, Y: -2.25, Tag: "p"})
	if err := w.Err(); err != nil {
		t.Fatalf("writer err: %v", err)
	}
	want := uint64(1 + 4 + 8 + 1 + 8 + 15 + 4 + 4 + 8 + 1)
	if w.Offset() != want {
		t.Fatalf("writer offset=%d want=%d", w.Offset(), want)
	}

	if v := r.ReadUint8(); v != 0xAB {
		t.Fatalf("u8=%x", v)
	}
	if v := r.ReadUint32(); v != 91 {
		t.Fatalf("u32=%d", v)
	}
	if v := r.ReadUint64(); v != 1<<40 {
		t.Fatalf("u64=%d", v)
	}
	if !r.ReadBool() {
		t.Fatalf("bool=false")
	}
	if s := r.ReadString(); s != "tech.paws.tests" {
		t.Fatalf("string=%q", s)
	}
	var p point
	r.Decode(&p)
	if p != (point{X: 1.5, Y: -2.25, Tag: "p"}) {
		t.Fatalf("point=%+v", p)
	}
	if r.Offset() != w.Offset() {
		t.Fatalf("reader offset=%d writer offset=%d", r.Offset(), w.Offset())
	}
}

func TestWriterByteOrder(t *testing.T) {
	testlog.Start(t)
	a := newArena(t, 16)
	w := NewWriter(a, binary.BigEndian)
	w.WriteUint32(0x01020304)
	if !bytes.Equal(a.View(), []byte{1, 2, 3, 4}) {
		t.Fatalf("big endian layout: %v", a.View())
	}

	a.Clear()
	w = NewWriter(a, nil)
	w.WriteUint32(0x01020304)
	if !bytes.Equal(a.View(), []byte{4, 3, 2, 1}) {
		t.Fatalf("little endian layout: %v", a.View())
	}
}

func TestWriterErrorIsSticky(t *testing.T) {
	testlog.Start(t)
	a := newArena(t, 10)
	w := NewWriter(a, nil)
	w.WriteUint64(1)
	w.WriteUint32(2)
	if !errors.Is(w.Err(), memory.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", w.Err())
	}
	w.WriteUint8(3)
	if a.Offset() != 8 || w.Offset() != 8 {
		t.Fatalf("writes after failure moved offsets: arena=%d writer=%d", a.Offset(), w.Offset())
	}
	if _, err := w.Write([]byte{1}); !errors.Is(err, memory.ErrOutOfMemory) {
		t.Fatalf("io.Writer path err=%v", err)
	}

	a.Clear()
	w.Reset()
	w.WriteUint8(3)
	if w.Err() != nil || w.Offset() != 1 {
		t.Fatalf("reset writer err=%v offset=%d", w.Err(), w.Offset())
	}
}

func TestWriteUint64AtPatchesInPlace(t *testing.T) {
	testlog.Start(t)
	w, r := NewPair(newArena(t, 64), nil)
	w.WriteUint64(0)
	w.WriteUint32(7)
	w.WriteUint64At(0, 42)
	if w.Offset() != 12 {
		t.Fatalf("patch moved cursor to %d", w.Offset())
	}
	if v := r.ReadUint64At(0); v != 42 {
		t.Fatalf("patched value=%d", v)
	}
	if r.Offset() != 0 {
		t.Fatalf("ReadUint64At moved cursor to %d", r.Offset())
	}
}

func TestWriteUint64AtRejectsUnwrittenRegion(t *testing.T) {
	testlog.Start(t)
	w := NewWriter(newArena(t, 64), nil)
	w.WriteUint32(1)
	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, protocol.ErrProtocolViolation) {
			t.Fatalf("expected protocol violation panic, got %v", err)
		}
	}()
	w.WriteUint64At(0, 1)
}

func TestReaderSkipAndSeek(t *testing.T) {
	testlog.Start(t)
	w, r := NewPair(newArena(t, 64), nil)
	for _, v := range []uint32{5, 9, 2, 4} {
		w.WriteUint32(v)
	}
	r.Skip(8)
	if v := r.ReadUint32(); v != 2 {
		t.Fatalf("after skip=%d", v)
	}
	r.Seek(4)
	if v := r.ReadUint32(); v != 9 {
		t.Fatalf("after seek=%d", v)
	}
	r.Reset()
	if got := r.ReadBytes(4); !bytes.Equal(got, []byte{5, 0, 0, 0}) {
		t.Fatalf("read bytes=%v", got)
	}
}

func TestParseByteOrder(t *testing.T) {
	testlog.Start(t)
	cases := map[string]binary.ByteOrder{
		"":       binary.LittleEndian,
		"little": binary.LittleEndian,
		"LE":     binary.LittleEndian,
		"big":    binary.BigEndian,
		" be ":   binary.BigEndian,
	}
	for raw, want := range cases {
		got, err := ParseByteOrder(raw)
		if err != nil || got != want {
			t.Fatalf("ParseByteOrder(%q)=%v,%v", raw, got, err)
		}
	}
	if _, err := ParseByteOrder("middle"); !errors.Is(err, ErrUnknownByteOrder) {
		t.Fatalf("expected ErrUnknownByteOrder, got %v", err)
	}
}
