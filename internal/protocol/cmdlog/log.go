package cmdlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

var (
	ErrClosed          = errors.New("cmdlog: log closed")
	ErrReservedCommand = errors.New("cmdlog: reserved command id")
)

const (
	countSize        uint64 = 8
	RecordHeaderSize uint64 = 16
)

// PayloadFunc streams one command payload into w.
type PayloadFunc func(w *wire.Writer)

// Buffer is a raw view of a log handed to a consumer. Bytes is only valid
// for the duration of the consumer call.
type Buffer struct {
	Bytes []byte
	Size  uint64
}

// Commands returns the record count stored in the buffer header. A nil
// order selects little-endian.
func (b Buffer) Commands(order binary.ByteOrder) uint64 {
	if b.Size < countSize {
		return 0
	}
	if order == nil {
		order = binary.LittleEndian
	}
	return order.Uint64(b.Bytes[:countSize])
}

// Log is one owner's command log over a dedicated arena.
//
// Every operation holds the log mutex for its whole duration. Begin keeps
// the mutex locked until the matching End, so a Begin without End blocks
// every later producer and the consumer.
type Log struct {
	mu     sync.Mutex
	owner  string
	arena  *memory.Arena
	writer *wire.Writer
	reader *wire.Reader

	open        atomic.Bool
	openID      uint64
	sizeOffset  uint64
	startOffset uint64

	closed  bool
	dropped atomic.Uint64
}

// New writes an empty header for owner into arena and returns the log. The
// arena is cleared first; the log owns it from here on.
func New(owner string, arena *memory.Arena, order binary.ByteOrder) (*Log, error) {
	w, r := wire.NewPair(arena, order)
	l := &Log{owner: owner, arena: arena, writer: w, reader: r}
	arena.Clear()
	if err := l.writeHeader(); err != nil {
		return nil, fmt.Errorf("cmdlog: %s header: %w", owner, err)
	}
	return l, nil
}

func (l *Log) writeHeader() error {
	l.writer.WriteUint64(0)
	l.writer.WriteString(l.owner)
	return l.writer.ResetErr()
}

// Push appends one record. payload may be nil for an empty command. On
// arena exhaustion the record is either not started (header did not fit) or
// sealed as dropped, and the returned error wraps memory.ErrOutOfMemory.
// A panicking payload seals the record as dropped before the panic
// continues.
func (l *Log) Push(commandID uint64, payload PayloadFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.openRecord(commandID); err != nil {
		return err
	}
	if payload != nil {
		defer func() {
			if r := recover(); r != nil {
				l.abort()
				panic(r)
			}
		}()
		payload(l.writer)
	}
	_, err := l.seal(commandID)
	return err
}

// Begin opens a record and returns the writer for its payload. The log stays
// locked until End.
func (l *Log) Begin(commandID uint64) (*wire.Writer, error) {
	l.mu.Lock()
	if err := l.openRecord(commandID); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.openID = commandID
	l.open.Store(true)
	return l.writer, nil
}

// End patches the payload length of the record opened by Begin, unlocks
// the log and returns the payload length. End without Begin panics with a
// protocol.Violation.
func (l *Log) End() (uint64, error) {
	if !l.open.CompareAndSwap(true, false) {
		protocol.Violatef("cmdlog.End", "%s: end without begin", l.owner)
	}
	defer l.mu.Unlock()
	return l.seal(l.openID)
}

func (l *Log) openRecord(commandID uint64) error {
	if l.closed {
		return fmt.Errorf("%w: %s", ErrClosed, l.owner)
	}
	if commandID == schema.Dropped {
		return fmt.Errorf("%w: %s: %#x marks dropped records", ErrReservedCommand, l.owner, commandID)
	}
	if l.arena.Remaining() < RecordHeaderSize {
		l.dropped.Add(1)
		return fmt.Errorf("cmdlog: %s: command %s: %w", l.owner, schema.Name(commandID), memory.ErrOutOfMemory)
	}
	l.writer.WriteUint64At(0, l.reader.ReadUint64At(0)+1)
	l.writer.WriteUint64(commandID)
	l.sizeOffset = l.writer.Offset()
	l.writer.WriteUint64(0)
	l.startOffset = l.writer.Offset()
	return nil
}

func (l *Log) seal(commandID uint64) (uint64, error) {
	length := l.writer.Offset() - l.startOffset
	l.writer.WriteUint64At(l.sizeOffset, length)
	if err := l.writer.ResetErr(); err != nil {
		l.writer.WriteUint64At(l.sizeOffset-8, schema.Dropped)
		l.dropped.Add(1)
		return length, fmt.Errorf("cmdlog: %s: command %s: %w", l.owner, schema.Name(commandID), err)
	}
	return length, nil
}

// abort seals the open record as dropped with whatever payload was written.
func (l *Log) abort() {
	l.writer.WriteUint64At(l.sizeOffset, l.writer.Offset()-l.startOffset)
	l.writer.WriteUint64At(l.sizeOffset-8, schema.Dropped)
	_ = l.writer.ResetErr()
	l.dropped.Add(1)
}

// Read walks the log with a CommandsReader under the lock. The log is left
// untouched.
func (l *Log) Read(fn func(*CommandsReader) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("%w: %s", ErrClosed, l.owner)
	}
	l.reader.Reset()
	return fn(NewCommandsReader(l.reader))
}

// Drain is Read followed by Clear under a single lock hold.
func (l *Log) Drain(fn func(*CommandsReader) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("%w: %s", ErrClosed, l.owner)
	}
	defer l.clearLocked()
	l.reader.Reset()
	return fn(NewCommandsReader(l.reader))
}

// Consume hands the raw log bytes to fn and clears the log afterwards.
func (l *Log) Consume(fn func(Buffer) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("%w: %s", ErrClosed, l.owner)
	}
	defer l.clearLocked()
	return fn(Buffer{Bytes: l.arena.View(), Size: l.arena.Offset()})
}

// Clear drops every record and rewrites an empty header. It is a no-op on a
// closed log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.clearLocked()
}

// Close marks the log closed and closes its arena. It waits for an open
// Begin to be ended. Every later append, read or drain returns ErrClosed, so
// the memory behind the arena can be released afterwards.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.arena.Close()
}

func (l *Log) clearLocked() {
	l.arena.Clear()
	l.writer.Reset()
	l.reader.Reset()
	if err := l.writeHeader(); err != nil {
		// The same header fit when the log was created.
		panic(err)
	}
}

// Open reports whether a Begin is waiting for its End.
func (l *Log) Open() bool {
	return l.open.Load()
}

// Count returns the number of records in the log.
func (l *Log) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}
	return l.reader.ReadUint64At(0)
}

// Size returns the bytes used, header included.
func (l *Log) Size() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}
	return l.arena.Offset()
}

func (l *Log) Capacity() uint64 {
	return l.arena.Capacity()
}

func (l *Log) Owner() string {
	return l.owner
}

// Dropped counts records that could not be completed since the log was
// created.
func (l *Log) Dropped() uint64 {
	return l.dropped.Load()
}
