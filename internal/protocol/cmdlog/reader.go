package cmdlog

import (
	"encoding/binary"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

// Command is one record yielded by a CommandsReader. Payload is positioned at
// the first payload byte and is shared with the reader; it is only valid
// until the next call to Next.
type Command struct {
	ID      uint64
	Len     uint64
	Payload *wire.Reader
}

// CommandsReader walks the records of a log in order.
//
// Callers may read any prefix of a payload; Next skips whatever is left.
// Reading past the end of a payload is a protocol violation and Next panics
// when it sees one.
type CommandsReader struct {
	r          *wire.Reader
	owner      string
	count      uint64
	yielded    uint64
	breakpoint uint64
	commandLen uint64
}

// NewCommandsReader reads the header from r's current position.
func NewCommandsReader(r *wire.Reader) *CommandsReader {
	count := r.ReadUint64()
	owner := r.ReadString()
	return &CommandsReader{
		r:          r,
		owner:      owner,
		count:      count,
		breakpoint: r.Offset(),
	}
}

// Decode reads a raw buffer handed over by Log.Consume.
func Decode(buf Buffer, order binary.ByteOrder) *CommandsReader {
	return NewCommandsReader(wire.NewReader(memory.Wrap(buf.Bytes[:buf.Size]), order))
}

// Next returns the next record, or false once every record was yielded. A
// drained reader stays drained.
func (c *CommandsReader) Next() (Command, bool) {
	end := c.breakpoint + c.commandLen
	if off := c.r.Offset(); off > end {
		protocol.Violatef("cmdlog.Next", "%s: payload read %d bytes past record end at %d", c.owner, off-end, end)
	}
	if c.yielded == c.count {
		return Command{}, false
	}
	c.r.Seek(end)
	id := c.r.ReadUint64()
	length := c.r.ReadUint64()
	c.breakpoint = c.r.Offset()
	c.commandLen = length
	c.yielded++
	return Command{ID: id, Len: length, Payload: c.r}, true
}

// Len returns the record count from the header.
func (c *CommandsReader) Len() uint64 {
	return c.count
}

// Remaining returns how many records Next has yet to yield.
func (c *CommandsReader) Remaining() uint64 {
	return c.count - c.yielded
}

func (c *CommandsReader) Owner() string {
	return c.owner
}
