package gapi

import (
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

// Target receives render commands. vm.State and a bus bound to a module
// address both satisfy it.
type Target interface {
	PushRender(commandID uint64, payload cmdlog.PayloadFunc) error
}

func SetColorPipeline(t Target, color Color) error {
	return t.PushRender(schema.CommandSetColorPipeline, color.Encode)
}

func SetTexturePipeline(t Target, textureID uint64) error {
	return t.PushRender(schema.CommandSetTexturePipeline, func(w *wire.Writer) {
		w.WriteUint64(textureID)
	})
}

// SetViewport sets the drawing viewport in pixels.
func SetViewport(t Target, x, y, width, height uint32) error {
	return t.PushRender(schema.CommandSetViewport, func(w *wire.Writer) {
		w.WriteUint32(x)
		w.WriteUint32(y)
		w.WriteUint32(width)
		w.WriteUint32(height)
	})
}

// DrawLines draws a line segment for every consecutive pair of points.
func DrawLines(t Target, points []Vec2f) error {
	return t.PushRender(schema.CommandDrawLines, func(w *wire.Writer) {
		w.WriteUint64(uint64(len(points)))
		for _, p := range points {
			p.Encode(w)
		}
	})
}

// DrawQuads draws one unit quad anchored at its corner per transform.
func DrawQuads(t Target, mvps []Mat4f) error {
	return t.PushRender(schema.CommandDrawQuads, matrices(mvps))
}

// DrawCenteredQuads draws one unit quad centred on the origin per transform.
func DrawCenteredQuads(t Target, mvps []Mat4f) error {
	return t.PushRender(schema.CommandDrawCenteredQuads, matrices(mvps))
}

func matrices(mvps []Mat4f) cmdlog.PayloadFunc {
	return func(w *wire.Writer) {
		w.WriteUint64(uint64(len(mvps)))
		for _, m := range mvps {
			m.Encode(w)
		}
	}
}

func DrawTexts(t Target, texts []TextData) error {
	return t.PushRender(schema.CommandDrawTexts, func(w *wire.Writer) {
		w.WriteUint64(uint64(len(texts)))
		for _, text := range texts {
			text.Encode(w)
		}
	})
}
