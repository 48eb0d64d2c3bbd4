package vm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tech-paws/vm/internal/observability"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
)

// Config sizes module state and paces the tick loop.
type Config struct {
	Name           string
	RenderLogBytes uint64
	LogicLogBytes  uint64
	ScratchBytes   uint64
	TickInterval   time.Duration
	ByteOrder      binary.ByteOrder
	// StrictCommands rejects catalogued commands pushed into the wrong
	// channel.
	StrictCommands bool
}

func DefaultConfig() Config {
	return Config{
		Name:           "tpvm",
		RenderLogBytes: 1 << 20,
		LogicLogBytes:  256 << 10,
		ScratchBytes:   1 << 20,
		TickInterval:   time.Second / 60,
		ByteOrder:      binary.LittleEndian,
	}
}

func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.RenderLogBytes == 0 || c.LogicLogBytes == 0 || c.ScratchBytes == 0 {
		return fmt.Errorf("%w: arena sizes must be positive", ErrInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	}
	return nil
}

type Option func(*VM)

func WithLogger(logger zerolog.Logger) Option {
	return func(v *VM) { v.logger = logger }
}

// WithClock replaces time.Now for frame timing.
func WithClock(clock func() time.Time) Option {
	return func(v *VM) { v.clock = clock }
}

type entry struct {
	module Module
	state  *State
}

// VM owns registered modules and runs their tick cycle.
type VM struct {
	id     uuid.UUID
	cfg    Config
	logger zerolog.Logger
	clock  func() time.Time
	bus    *Bus

	mu      sync.RWMutex
	phase   LifecyclePhase
	entries []entry
	byID    map[string]*State

	// tickMu serializes Tick, Flush and Shutdown.
	tickMu sync.Mutex
	ticks  atomic.Uint64
}

// New constructs a VM in boot phase.
func New(cfg Config, opts ...Option) (*VM, error) {
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = binary.LittleEndian
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &VM{
		id:    uuid.New(),
		cfg:   cfg,
		clock: time.Now,
		phase: PhaseBoot,
		byID:  make(map[string]*State),
	}
	v.logger = log.Logger
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With().Str("vm", cfg.Name).Str("vm_id", v.id.String()).Logger()
	v.bus = &Bus{vm: v}
	return v, nil
}

// ID is a random per-instance id.
func (v *VM) ID() string {
	return v.id.String()
}

func (v *VM) Name() string {
	return v.cfg.Name
}

func (v *VM) Config() Config {
	return v.cfg
}

func (v *VM) Bus() *Bus {
	return v.bus
}

func (v *VM) Phase() LifecyclePhase {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.phase
}

// Register adds a module and allocates its state. Modules can only be
// registered in boot phase; registration order is tick order.
func (v *VM) Register(m Module) error {
	if m == nil {
		return ErrModuleNil
	}
	id := m.ID()
	if err := ValidateModuleID(id); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseBoot {
		return phaseError("register "+id, v.phase)
	}
	if _, ok := v.byID[id]; ok {
		return fmt.Errorf("%w: %s", ErrModuleExists, id)
	}
	s, err := newState(id, v)
	if err != nil {
		return err
	}
	v.entries = append(v.entries, entry{module: m, state: s})
	v.byID[id] = s
	observability.SetModules(v.cfg.Name, len(v.entries))
	v.logger.Debug().Str("module", id).Int("index", len(v.entries)-1).Msg("vm.Register")
	return nil
}

// Modules returns module ids in registration order.
func (v *VM) Modules() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		ids = append(ids, e.module.ID())
	}
	return ids
}

// State returns the state of a registered module.
func (v *VM) State(id string) (*State, error) {
	return v.state(id)
}

func (v *VM) state(id string) (*State, error) {
	v.mu.RLock()
	s, ok := v.byID[id]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return s, nil
}

func (v *VM) snapshot() []entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]entry(nil), v.entries...)
}

// Init transitions boot->initialized and runs every module's Init in
// registration order. A failing Init leaves the VM in boot phase; modules
// initialized before it are shut down again.
func (v *VM) Init() error {
	v.mu.Lock()
	if v.phase != PhaseBoot {
		defer v.mu.Unlock()
		return transitionError(v.phase, PhaseInitialized)
	}
	entries := append([]entry(nil), v.entries...)
	v.mu.Unlock()

	for i, e := range entries {
		if err := e.module.Init(e.state); err != nil {
			for j := i - 1; j >= 0; j-- {
				if serr := entries[j].module.Shutdown(); serr != nil {
					v.logger.Error().Err(serr).Str("module", entries[j].module.ID()).Msg("vm.Init rollback shutdown failed")
				}
			}
			return fmt.Errorf("vm: init %s: %w", e.module.ID(), err)
		}
	}

	v.mu.Lock()
	v.phase = PhaseInitialized
	v.mu.Unlock()
	v.logger.Info().Int("modules", len(entries)).Msg("vm initialized")
	return nil
}

// Step resets every module's scratch arena, drains its logic channel and runs
// its Step. It returns the ids of modules that asked to render.
func (v *VM) Step() ([]string, error) {
	v.tickMu.Lock()
	defer v.tickMu.Unlock()
	if err := v.requireInitialized("step"); err != nil {
		return nil, err
	}

	var render []string
	var errs []error
	for _, e := range v.snapshot() {
		e.state.resetScratch()
		if err := e.state.drainLogic(e.module); err != nil {
			errs = append(errs, fmt.Errorf("vm: drain %s: %w", e.module.ID(), err))
		}
		if e.module.Step(e.state) {
			render = append(render, e.module.ID())
		}
	}
	return render, errors.Join(errs...)
}

// Render runs Render for the given modules, then hands every non-empty render
// log to consumer and clears it.
func (v *VM) Render(modules []string, consumer RenderConsumer) error {
	v.tickMu.Lock()
	defer v.tickMu.Unlock()
	if err := v.requireInitialized("render"); err != nil {
		return err
	}
	return v.render(modules, consumer)
}

func (v *VM) render(modules []string, consumer RenderConsumer) error {
	want := make(map[string]bool, len(modules))
	for _, id := range modules {
		want[id] = true
	}
	var errs []error
	for _, e := range v.snapshot() {
		id := e.module.ID()
		if want[id] {
			e.state.advanceClock()
			e.module.Render(e.state)
		}
		err := e.state.render.Consume(func(buf cmdlog.Buffer) error {
			if buf.Commands(v.cfg.ByteOrder) == 0 {
				return nil
			}
			observability.RecordRenderBuffer(id, buf.Size)
			return consumer.ConsumeRender(id, buf)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("vm: consume render of %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Tick runs one full cycle: drain logic and step every module, then render
// the modules that asked for it.
func (v *VM) Tick(consumer RenderConsumer) error {
	start := v.clock()
	render, stepErr := v.Step()
	if errors.Is(stepErr, ErrLifecycleOrder) {
		return stepErr
	}
	renderErr := v.Render(render, consumer)
	v.ticks.Add(1)
	observability.RecordTick(v.cfg.Name, v.clock().Sub(start))
	return errors.Join(stepErr, renderErr)
}

// Flush clears both channels and the scratch arena of every module. It
// fails once the VM is shut down.
func (v *VM) Flush() error {
	v.tickMu.Lock()
	defer v.tickMu.Unlock()
	if phase := v.Phase(); phase == PhaseShutdown {
		return phaseError("flush", phase)
	}
	for _, e := range v.snapshot() {
		e.state.flush()
	}
	return nil
}

// Run ticks at the configured interval until ctx is cancelled. Tick errors
// are logged and do not stop the loop.
func (v *VM) Run(ctx context.Context, consumer RenderConsumer) error {
	if err := v.requireInitialized("run"); err != nil {
		return err
	}
	ticker := time.NewTicker(v.cfg.TickInterval)
	defer ticker.Stop()
	v.logger.Info().Dur("interval", v.cfg.TickInterval).Msg("vm run loop started")
	for {
		select {
		case <-ctx.Done():
			v.logger.Info().Uint64("ticks", v.ticks.Load()).Msg("vm run loop stopped")
			return nil
		case <-ticker.C:
			if err := v.Tick(consumer); err != nil {
				if errors.Is(err, ErrLifecycleOrder) {
					return err
				}
				v.logger.Error().Err(err).Msg("vm tick failed")
			}
		}
	}
}

// Shutdown runs every module's Shutdown in reverse registration order and
// releases module memory. It is valid from boot or initialized phase.
func (v *VM) Shutdown() error {
	v.tickMu.Lock()
	defer v.tickMu.Unlock()

	v.mu.Lock()
	if v.phase == PhaseShutdown {
		defer v.mu.Unlock()
		return transitionError(v.phase, PhaseShutdown)
	}
	initialized := v.phase == PhaseInitialized
	v.phase = PhaseShutdown
	entries := v.entries
	v.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if initialized {
			if err := e.module.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("vm: shutdown %s: %w", e.module.ID(), err))
			}
		}
		if err := e.state.close(); err != nil {
			errs = append(errs, err)
		}
	}
	v.logger.Info().Uint64("ticks", v.ticks.Load()).Msg("vm shut down")
	return errors.Join(errs...)
}

func (v *VM) requireInitialized(op string) error {
	if phase := v.Phase(); phase != PhaseInitialized {
		return phaseError(op, phase)
	}
	return nil
}

// StatusReporter is implemented by modules that expose a status snapshot.
type StatusReporter interface {
	Status() (any, error)
}

// ModuleStatus returns the status snapshot of a module that reports one.
func (v *VM) ModuleStatus(id string) (any, bool, error) {
	v.mu.RLock()
	var m Module
	for _, e := range v.entries {
		if e.module.ID() == id {
			m = e.module
			break
		}
	}
	v.mu.RUnlock()
	if m == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	r, ok := m.(StatusReporter)
	if !ok {
		return nil, false, nil
	}
	st, err := r.Status()
	return st, true, err
}

// ModuleStats is a point-in-time view of one module's logs.
type ModuleStats struct {
	ID             string `json:"id"`
	RenderCommands uint64 `json:"render_commands"`
	RenderBytes    uint64 `json:"render_bytes"`
	RenderCapacity uint64 `json:"render_capacity"`
	LogicCommands  uint64 `json:"logic_commands"`
	LogicBytes     uint64 `json:"logic_bytes"`
	LogicCapacity  uint64 `json:"logic_capacity"`
	Dropped        uint64 `json:"dropped"`
}

type Stats struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Phase   LifecyclePhase `json:"phase"`
	Ticks   uint64         `json:"ticks"`
	Modules []ModuleStats  `json:"modules"`
}

// Stats waits for a running tick to finish before reading the logs.
func (v *VM) Stats() Stats {
	v.tickMu.Lock()
	defer v.tickMu.Unlock()
	entries := v.snapshot()
	st := Stats{
		ID:      v.ID(),
		Name:    v.cfg.Name,
		Phase:   v.Phase(),
		Ticks:   v.ticks.Load(),
		Modules: make([]ModuleStats, 0, len(entries)),
	}
	if st.Phase == PhaseShutdown {
		return st
	}
	for _, e := range entries {
		render := e.state.Log(protocol.ChannelRender)
		logic := e.state.Log(protocol.ChannelLogic)
		st.Modules = append(st.Modules, ModuleStats{
			ID:             e.module.ID(),
			RenderCommands: render.Count(),
			RenderBytes:    render.Size(),
			RenderCapacity: render.Capacity(),
			LogicCommands:  logic.Count(),
			LogicBytes:     logic.Size(),
			LogicCapacity:  logic.Capacity(),
			Dropped:        render.Dropped() + logic.Dropped(),
		})
	}
	return st
}
