package protocol

import (
	"fmt"
	"strings"
)

// Channel selects one of the two command logs a module owns.
type Channel uint8

const (
	// ChannelRender carries commands produced by a module's render step for
	// the drawing layer.
	ChannelRender Channel = 0
	// ChannelLogic carries input commands consumed by a module's step.
	ChannelLogic Channel = 1
)

// Channels lists every channel in drain order.
func Channels() []Channel {
	return []Channel{ChannelLogic, ChannelRender}
}

func (c Channel) String() string {
	switch c {
	case ChannelRender:
		return "render"
	case ChannelLogic:
		return "logic"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

func (c Channel) Valid() bool {
	return c == ChannelRender || c == ChannelLogic
}

// ParseChannel accepts the channel names used in config and CLI flags.
// "gapi" and "processor" are the historical names of the two logs.
func ParseChannel(raw string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "render", "gapi":
		return ChannelRender, nil
	case "logic", "processor":
		return ChannelLogic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, raw)
	}
}
