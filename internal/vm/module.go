package vm

import (
	"fmt"

	"github.com/tech-paws/vm/internal/protocol/cmdlog"
)

// Module is one unit hosted by the VM.
//
// Init runs once after registration, in registration order. Step runs every
// tick after the module's logic channel was drained and reports whether the
// module wants to render. Render pushes render commands, normally through
// the gapi helpers with the State as target. Shutdown runs once, in reverse
// registration order.
type Module interface {
	ID() string
	Init(s *State) error
	Step(s *State) bool
	Render(s *State)
	Shutdown() error
}

// CommandHandler is implemented by modules that accept logic commands other
// than the built-in pointer events. HandleCommand runs while the module's
// logic log is locked; it must not push into its own logic channel.
type CommandHandler interface {
	HandleCommand(s *State, cmd cmdlog.Command) error
}

// RenderConsumer receives the raw render log of a module once per rendered
// tick. buf is only valid for the duration of the call.
type RenderConsumer interface {
	ConsumeRender(moduleID string, buf cmdlog.Buffer) error
}

// RenderConsumerFunc adapts a function to RenderConsumer.
type RenderConsumerFunc func(moduleID string, buf cmdlog.Buffer) error

func (f RenderConsumerFunc) ConsumeRender(moduleID string, buf cmdlog.Buffer) error {
	return f(moduleID, buf)
}

// DiscardRender drops every render buffer.
var DiscardRender RenderConsumer = RenderConsumerFunc(func(string, cmdlog.Buffer) error { return nil })

// ValidateModuleID reports whether id is a dotted lowercase module id such as
// "tech.paws.client".
func ValidateModuleID(id string) error {
	if !isValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidModuleID, id)
	}
	return nil
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(id)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
