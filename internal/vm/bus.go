package vm

import (
	"errors"
	"fmt"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/observability"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

// Bus appends commands to module command logs by module id. It is safe for
// concurrent use; ordering is only defined per (module, channel).
type Bus struct {
	vm *VM
}

func (b *Bus) log(address string, channel protocol.Channel, commandID uint64) (*cmdlog.Log, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: %d", protocol.ErrUnknownChannel, channel)
	}
	if phase := b.vm.Phase(); phase == PhaseShutdown {
		return nil, phaseError("push", phase)
	}
	if b.vm.cfg.StrictCommands {
		if err := schema.ValidateChannel(commandID, channel); err != nil {
			return nil, err
		}
	}
	s, err := b.vm.state(address)
	if err != nil {
		return nil, err
	}
	return s.Log(channel), nil
}

// PushCommand appends one command to address's channel log. payload may be
// nil. Running out of log space returns an error wrapping
// memory.ErrOutOfMemory and counts the command as dropped.
func (b *Bus) PushCommand(address string, commandID uint64, channel protocol.Channel, payload cmdlog.PayloadFunc) error {
	l, err := b.log(address, channel, commandID)
	if err != nil {
		return err
	}
	if err := l.Push(commandID, payload); err != nil {
		b.dropped(address, channel, commandID, err)
		return closedError("push", err)
	}
	observability.RecordCommandPushed(address, channel.String())
	return nil
}

// BeginCommand opens a command on address's channel log and returns the
// payload writer. The log stays locked until EndCommand for the same address
// and channel; every BeginCommand must be paired with exactly one
// EndCommand.
func (b *Bus) BeginCommand(address string, channel protocol.Channel, commandID uint64) (*wire.Writer, error) {
	l, err := b.log(address, channel, commandID)
	if err != nil {
		return nil, err
	}
	w, err := l.Begin(commandID)
	if err != nil {
		b.dropped(address, channel, commandID, err)
		return nil, closedError("begin", err)
	}
	return w, nil
}

// EndCommand seals the command opened by BeginCommand. A command opened
// before shutdown can still be ended; shutdown waits for it.
func (b *Bus) EndCommand(address string, channel protocol.Channel) error {
	if !channel.Valid() {
		return fmt.Errorf("%w: %d", protocol.ErrUnknownChannel, channel)
	}
	s, err := b.vm.state(address)
	if err != nil {
		return err
	}
	l := s.Log(channel)
	if phase := b.vm.Phase(); phase == PhaseShutdown && !l.Open() {
		return phaseError("end", phase)
	}
	if _, err := l.End(); err != nil {
		b.dropped(address, channel, 0, err)
		return err
	}
	observability.RecordCommandPushed(address, channel.String())
	return nil
}

// closedError reports a push that lost the race with shutdown as a
// lifecycle error.
func closedError(op string, err error) error {
	if errors.Is(err, cmdlog.ErrClosed) {
		return phaseError(op, PhaseShutdown)
	}
	return err
}

func (b *Bus) dropped(address string, channel protocol.Channel, commandID uint64, err error) {
	if !errors.Is(err, memory.ErrOutOfMemory) {
		return
	}
	observability.RecordCommandDropped(address, channel.String())
	event := b.vm.logger.Warn().
		Str("module", address).
		Stringer("channel", channel)
	if commandID != 0 {
		event = event.Str("command", schema.Name(commandID))
	}
	event.Err(err).Msg("vm.Bus command dropped")
}

// Target binds the bus to one module's render channel.
func (b *Bus) Target(address string) Target {
	return Target{bus: b, address: address}
}

// Target pushes render commands to one module through the bus.
type Target struct {
	bus     *Bus
	address string
}

func (t Target) PushRender(commandID uint64, payload cmdlog.PayloadFunc) error {
	return t.bus.PushCommand(t.address, commandID, protocol.ChannelRender, payload)
}
