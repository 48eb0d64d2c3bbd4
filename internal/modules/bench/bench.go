// Package bench is a load driver: a module that renders a field of spinning
// quads every tick, and an input simulator that floods a module with pointer
// events from concurrent producers.
package bench

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tech-paws/vm/internal/gapi"
	"github.com/tech-paws/vm/internal/vm"
)

const ID = "tech.paws.bench"

var ErrInvalidConfig = errors.New("bench: invalid config")

type Config struct {
	Quads   int
	Columns int
	// Speed is the rotation speed in radians per second.
	Speed float32
	Color gapi.Color
}

func DefaultConfig() Config {
	return Config{
		Quads:   256,
		Columns: 16,
		Speed:   math.Pi,
		Color:   gapi.RGBA(0.3, 0.7, 0.9, 1),
	}
}

func (c Config) Validate() error {
	if c.Quads <= 0 || c.Columns <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Status summarizes frame timing since Init.
type Status struct {
	Frames    uint64        `json:"frames"`
	Quads     int           `json:"quads"`
	Dropped   uint64        `json:"dropped"`
	LastDelta time.Duration `json:"last_delta"`
	MaxDelta  time.Duration `json:"max_delta"`
	AvgDelta  time.Duration `json:"avg_delta"`
}

type Module struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.RWMutex
	angle  float32
	total  time.Duration
	status Status
	mvps   []gapi.Mat4f
}

func New(cfg Config) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Module{
		cfg:    cfg,
		status: Status{Quads: cfg.Quads},
		mvps:   make([]gapi.Mat4f, cfg.Quads),
	}, nil
}

func (m *Module) ID() string {
	return ID
}

func (m *Module) Init(s *vm.State) error {
	m.logger = s.Logger()
	m.logger.Info().Int("quads", m.cfg.Quads).Msg("bench.Init")
	return nil
}

func (m *Module) Shutdown() error {
	st := m.Snapshot()
	m.logger.Info().
		Uint64("frames", st.Frames).
		Dur("avg_delta", st.AvgDelta).
		Dur("max_delta", st.MaxDelta).
		Uint64("dropped", st.Dropped).
		Msg("bench.Shutdown")
	return nil
}

// Step always asks for a frame.
func (m *Module) Step(*vm.State) bool {
	return true
}

func (m *Module) Render(s *vm.State) {
	dt := s.DeltaTime()

	m.mu.Lock()
	m.angle += m.cfg.Speed * float32(dt.Seconds())
	m.status.Frames++
	m.status.LastDelta = dt
	if dt > m.status.MaxDelta {
		m.status.MaxDelta = dt
	}
	m.total += dt
	if m.status.Frames > 1 {
		m.status.AvgDelta = m.total / time.Duration(m.status.Frames-1)
	}
	angle := m.angle
	m.mu.Unlock()

	rows := (m.cfg.Quads + m.cfg.Columns - 1) / m.cfg.Columns
	proj := gapi.Ortho(0, float32(m.cfg.Columns), float32(rows), 0, -1, 1)
	for i := range m.mvps {
		x := float32(i%m.cfg.Columns) + 0.5
		y := float32(i/m.cfg.Columns) + 0.5
		m.mvps[i] = proj.
			Mul(gapi.Translation(x, y, 0)).
			Mul(gapi.RotationZ(angle + float32(i)*0.1)).
			Mul(gapi.Scaling(0.8, 0.8, 1))
	}

	err := errors.Join(
		gapi.SetColorPipeline(s, m.cfg.Color),
		gapi.DrawCenteredQuads(s, m.mvps),
	)
	if err != nil {
		m.mu.Lock()
		m.status.Dropped++
		m.mu.Unlock()
		m.logger.Warn().Err(err).Msg("bench frame dropped")
	}
}

func (m *Module) Status() (any, error) {
	return m.Snapshot(), nil
}

func (m *Module) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
