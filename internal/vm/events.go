package vm

import (
	"fmt"

	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

type MouseButton uint8

const (
	MouseUnknown MouseButton = 0
	MouseLeft    MouseButton = 1
	MouseRight   MouseButton = 2
	MouseMiddle  MouseButton = 3
)

func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "left"
	case MouseRight:
		return "right"
	case MouseMiddle:
		return "middle"
	default:
		return "unknown"
	}
}

type PointerKind uint8

const (
	PointerStart PointerKind = iota + 1
	PointerEnd
	PointerMove
)

func (k PointerKind) String() string {
	switch k {
	case PointerStart:
		return "start"
	case PointerEnd:
		return "end"
	case PointerMove:
		return "move"
	default:
		return fmt.Sprintf("pointer(%d)", uint8(k))
	}
}

func (k PointerKind) commandID() uint64 {
	switch k {
	case PointerStart:
		return schema.CommandTouchStart
	case PointerEnd:
		return schema.CommandTouchEnd
	default:
		return schema.CommandTouchMove
	}
}

// PointerEvent is a touch or mouse event delivered through the logic
// channel. Wire payload: f32 x, f32 y, u8 button.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float32
	Button MouseButton
}

const pointerPayloadSize = 9

func (e PointerEvent) Encode(w *wire.Writer) {
	w.WriteFloat32(e.X)
	w.WriteFloat32(e.Y)
	w.WriteUint8(uint8(e.Button))
}

// pointerEvent decodes a built-in touch command. ok is false for every other
// command id.
func pointerEvent(cmd cmdlog.Command) (PointerEvent, bool, error) {
	var kind PointerKind
	switch cmd.ID {
	case schema.CommandTouchStart:
		kind = PointerStart
	case schema.CommandTouchEnd:
		kind = PointerEnd
	case schema.CommandTouchMove:
		kind = PointerMove
	default:
		return PointerEvent{}, false, nil
	}
	if cmd.Len < pointerPayloadSize {
		return PointerEvent{}, true, fmt.Errorf("vm: %s payload %d bytes, want %d", schema.Name(cmd.ID), cmd.Len, pointerPayloadSize)
	}
	r := cmd.Payload
	return PointerEvent{
		Kind:   kind,
		X:      r.ReadFloat32(),
		Y:      r.ReadFloat32(),
		Button: MouseButton(r.ReadUint8()),
	}, true, nil
}

// PushPointer appends a pointer event to address's logic channel.
func (b *Bus) PushPointer(address string, e PointerEvent) error {
	return b.PushCommand(address, e.Kind.commandID(), protocol.ChannelLogic, e.Encode)
}
