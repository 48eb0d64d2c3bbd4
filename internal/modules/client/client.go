// Package client is the UI client module: it follows pointer input and
// viewport changes and renders a cursor and a status line.
package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tech-paws/vm/internal/gapi"
	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
	"github.com/tech-paws/vm/internal/vm"
)

const ID = "tech.paws.client"

var errViewportPayload = errors.New("client: short update_viewport payload")

// Config sets up the client's look.
type Config struct {
	Width      uint32
	Height     uint32
	Background gapi.Color
	Cursor     gapi.Color
	CursorSize float32
	FontID     uint64
	FontSize   uint32
}

func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     720,
		Background: gapi.RGBA(0.1, 0.1, 0.12, 1),
		Cursor:     gapi.RGBA(0.9, 0.5, 0.2, 1),
		CursorSize: 16,
		FontID:     1,
		FontSize:   14,
	}
}

// Status is a snapshot of the client state.
type Status struct {
	Width    uint32  `json:"width"`
	Height   uint32  `json:"height"`
	PointerX float32 `json:"pointer_x"`
	PointerY float32 `json:"pointer_y"`
	Pressed  bool    `json:"pressed"`
	Button   string  `json:"button"`
	Events   uint64  `json:"events"`
	Frames   uint64  `json:"frames"`
}

// Module implements vm.Module and vm.CommandHandler.
type Module struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.RWMutex
	status  Status
	dirty   bool
}

func New(cfg Config) *Module {
	return &Module{
		cfg: cfg,
		status: Status{
			Width:  cfg.Width,
			Height: cfg.Height,
			Button: vm.MouseUnknown.String(),
		},
	}
}

func (m *Module) ID() string {
	return ID
}

func (m *Module) Init(s *vm.State) error {
	m.logger = s.Logger()
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
	m.logger.Info().Uint32("width", m.cfg.Width).Uint32("height", m.cfg.Height).Msg("client.Init")
	return nil
}

func (m *Module) Shutdown() error {
	m.logger.Info().Uint64("frames", m.Snapshot().Frames).Msg("client.Shutdown")
	return nil
}

// HandleCommand applies viewport updates. Other commands are ignored.
func (m *Module) HandleCommand(_ *vm.State, cmd cmdlog.Command) error {
	if cmd.ID != schema.CommandUpdateViewport {
		return nil
	}
	if cmd.Len < 8 {
		return fmt.Errorf("%w: %d bytes", errViewportPayload, cmd.Len)
	}
	w := cmd.Payload.ReadUint32()
	h := cmd.Payload.ReadUint32()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Width = w
	m.status.Height = h
	m.dirty = true
	m.logger.Debug().Uint32("width", w).Uint32("height", h).Msg("client viewport updated")
	return nil
}

func (m *Module) Step(s *vm.State) bool {
	events := s.Events()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		m.status.PointerX = ev.X
		m.status.PointerY = ev.Y
		m.status.Button = ev.Button.String()
		switch ev.Kind {
		case vm.PointerStart:
			m.status.Pressed = true
		case vm.PointerEnd:
			m.status.Pressed = false
		}
	}
	m.status.Events += uint64(len(events))
	if len(events) > 0 {
		m.dirty = true
	}
	render := m.dirty
	m.dirty = false
	return render
}

func (m *Module) Render(s *vm.State) {
	m.mu.Lock()
	m.status.Frames++
	st := m.status
	m.mu.Unlock()

	proj := gapi.Ortho(0, float32(st.Width), float32(st.Height), 0, -1, 1)
	cursor := proj.
		Mul(gapi.Translation(st.PointerX, st.PointerY, 0)).
		Mul(gapi.Scaling(m.cfg.CursorSize, m.cfg.CursorSize, 1))

	var text string
	_ = s.WithScratch(func(a *memory.Arena) error {
		span, err := a.Alloc(64)
		if err != nil {
			text = "frame"
			return err
		}
		buf := fmt.Appendf(a.Bytes(span)[:0], "frame %d  pointer %.0f,%.0f  %s", st.Frames, st.PointerX, st.PointerY, st.Button)
		text = string(buf)
		return nil
	})

	err := errors.Join(
		gapi.SetViewport(s, 0, 0, st.Width, st.Height),
		gapi.SetColorPipeline(s, m.cfg.Background),
		gapi.DrawQuads(s, []gapi.Mat4f{proj.Mul(gapi.Scaling(float32(st.Width), float32(st.Height), 1))}),
		gapi.SetColorPipeline(s, m.cfg.Cursor),
		gapi.DrawCenteredQuads(s, []gapi.Mat4f{cursor}),
		gapi.DrawTexts(s, []gapi.TextData{{
			FontID:   m.cfg.FontID,
			FontSize: m.cfg.FontSize,
			MVP:      proj.Mul(gapi.Translation(8, 8, 0)),
			Text:     text,
		}}),
	)
	if err != nil {
		m.logger.Warn().Err(err).Msg("client render incomplete")
	}
}

// Status implements vm.StatusReporter.
func (m *Module) Status() (any, error) {
	return m.Snapshot(), nil
}

func (m *Module) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// PushViewport asks the client at address to resize its viewport.
func PushViewport(bus *vm.Bus, address string, width, height uint32) error {
	return bus.PushCommand(address, schema.CommandUpdateViewport, protocol.ChannelLogic, func(w *wire.Writer) {
		w.WriteUint32(width)
		w.WriteUint32(height)
	})
}
