package vm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
)

// State is the VM-owned state of one module: its two command logs, a
// scratch arena, frame timing and the pointer events of the current tick.
//
// The three arenas are carved out of one reservation that is released when
// the VM shuts down.
type State struct {
	id     string
	bus    *Bus
	logger zerolog.Logger
	clock  func() time.Time

	region *memory.Arena
	render *cmdlog.Log
	logic  *cmdlog.Log

	scratchMu sync.Mutex
	scratch   *memory.Arena

	lastTick time.Time
	delta    time.Duration
	events   []PointerEvent
}

func newState(id string, v *VM) (*State, error) {
	cfg := v.cfg
	region, err := memory.NewArena(cfg.RenderLogBytes + cfg.LogicLogBytes + cfg.ScratchBytes)
	if err != nil {
		return nil, fmt.Errorf("vm: reserve state for %s: %w", id, err)
	}
	s := &State{
		id:     id,
		bus:    v.bus,
		logger: v.logger.With().Str("module", id).Logger(),
		clock:  v.clock,
		region: region,
	}
	if err := s.carve(cfg); err != nil {
		return nil, errors.Join(err, region.Close())
	}
	return s, nil
}

func (s *State) carve(cfg Config) error {
	renderArena, err := s.region.Sub(cfg.RenderLogBytes)
	if err != nil {
		return err
	}
	logicArena, err := s.region.Sub(cfg.LogicLogBytes)
	if err != nil {
		return err
	}
	if s.scratch, err = s.region.Sub(cfg.ScratchBytes); err != nil {
		return err
	}
	if s.render, err = cmdlog.New(s.id, renderArena, cfg.ByteOrder); err != nil {
		return err
	}
	if s.logic, err = cmdlog.New(s.id, logicArena, cfg.ByteOrder); err != nil {
		return err
	}
	return nil
}

func (s *State) ID() string {
	return s.id
}

// Bus returns the bus of the VM that owns this state.
func (s *State) Bus() *Bus {
	return s.bus
}

func (s *State) Logger() zerolog.Logger {
	return s.logger
}

// Log returns the command log of channel.
func (s *State) Log(channel protocol.Channel) *cmdlog.Log {
	if channel == protocol.ChannelLogic {
		return s.logic
	}
	return s.render
}

// Push appends a command to one of this module's own channels.
func (s *State) Push(channel protocol.Channel, commandID uint64, payload cmdlog.PayloadFunc) error {
	return s.bus.PushCommand(s.id, commandID, channel, payload)
}

// PushRender appends a command to this module's render channel.
func (s *State) PushRender(commandID uint64, payload cmdlog.PayloadFunc) error {
	return s.Push(protocol.ChannelRender, commandID, payload)
}

// WithScratch runs fn with the scratch arena locked. Scratch memory lives
// until the start of the next tick.
func (s *State) WithScratch(fn func(*memory.Arena) error) error {
	s.scratchMu.Lock()
	defer s.scratchMu.Unlock()
	return fn(s.scratch)
}

// DeltaTime is the time between the last two rendered ticks. It is zero on
// the first one.
func (s *State) DeltaTime() time.Duration {
	return s.delta
}

// Events returns the pointer events drained in the current tick. The slice
// is reused by the next tick.
func (s *State) Events() []PointerEvent {
	return s.events
}

func (s *State) advanceClock() {
	now := s.clock()
	if !s.lastTick.IsZero() {
		s.delta = now.Sub(s.lastTick)
	}
	s.lastTick = now
}

// drainLogic dispatches the logic log and clears it.
func (s *State) drainLogic(m Module) error {
	s.events = s.events[:0]
	handler, _ := m.(CommandHandler)
	return s.logic.Drain(func(cr *cmdlog.CommandsReader) error {
		var errs []error
		for cmd, ok := cr.Next(); ok; cmd, ok = cr.Next() {
			if err := s.dispatch(handler, cmd); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func (s *State) dispatch(handler CommandHandler, cmd cmdlog.Command) error {
	if cmd.ID == schema.Dropped {
		s.logger.Debug().Uint64("len", cmd.Len).Msg("vm.State skip dropped command")
		return nil
	}
	ev, builtin, err := pointerEvent(cmd)
	if err != nil {
		return err
	}
	if builtin {
		s.events = append(s.events, ev)
		return nil
	}
	if handler == nil {
		s.logger.Debug().Uint64("command_id", cmd.ID).Msg("vm.State no handler for command")
		return nil
	}
	return handler.HandleCommand(s, cmd)
}

func (s *State) resetScratch() {
	s.scratchMu.Lock()
	s.scratch.Clear()
	s.scratchMu.Unlock()
}

// flush clears both logs and the scratch arena.
func (s *State) flush() {
	s.render.Clear()
	s.logic.Clear()
	s.resetScratch()
}

// close shuts both logs and the scratch arena before unmapping the region,
// so producers racing with shutdown see cmdlog.ErrClosed instead of
// touching released memory.
func (s *State) close() error {
	errs := []error{s.render.Close(), s.logic.Close()}
	s.scratchMu.Lock()
	errs = append(errs, s.scratch.Close())
	s.scratchMu.Unlock()
	errs = append(errs, s.region.Close())
	return errors.Join(errs...)
}
