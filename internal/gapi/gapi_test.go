package gapi

import (
	"errors"
	"testing"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
	"github.com/tech-paws/vm/internal/testutil/testlog"
)

type logTarget struct {
	*cmdlog.Log
}

func (t logTarget) PushRender(commandID uint64, payload cmdlog.PayloadFunc) error {
	return t.Push(commandID, payload)
}

func newTarget(t *testing.T) logTarget {
	t.Helper()
	arena, err := memory.NewArena(64 * 1024)
	if err != nil {
		t.Fatalf("new arena: %v", err)
	}
	t.Cleanup(func() { _ = arena.Close() })
	l, err := cmdlog.New("tech.paws.client", arena, nil)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	return logTarget{l}
}

func decodeAll(t *testing.T, target logTarget) []Op {
	t.Helper()
	var ops []Op
	err := target.Drain(func(cr *cmdlog.CommandsReader) error {
		for cmd, ok := cr.Next(); ok; cmd, ok = cr.Next() {
			op, err := Decode(cmd)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ops
}

func TestRenderCommandsRoundTrip(t *testing.T) {
	testlog.Start(t)
	target := newTarget(t)
	mvp := Ortho(0, 640, 0, 480, -1, 1).Mul(Translation(10, 20, 0))
	text := TextData{FontID: 3, FontSize: 14, MVP: mvp, Text: "fps: 60"}

	steps := []error{
		SetViewport(target, 0, 0, 640, 480),
		SetColorPipeline(target, RGBA(1, 0, 0, 1)),
		DrawQuads(target, []Mat4f{mvp, Identity()}),
		SetTexturePipeline(target, 7),
		DrawCenteredQuads(target, []Mat4f{mvp}),
		DrawLines(target, []Vec2f{{0, 0}, {1, 1}, {2, 0}}),
		DrawTexts(target, []TextData{text}),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	ops := decodeAll(t, target)
	if len(ops) != len(steps) {
		t.Fatalf("decoded %d ops", len(ops))
	}
	if op := ops[0].(SetViewportOp); op.Width != 640 || op.Height != 480 {
		t.Fatalf("viewport=%+v", op)
	}
	if op := ops[1].(SetColorPipelineOp); op.Color != RGBA(1, 0, 0, 1) {
		t.Fatalf("color=%+v", op)
	}
	if op := ops[2].(DrawQuadsOp); op.Centered || len(op.MVPs) != 2 || op.MVPs[0] != mvp {
		t.Fatalf("quads=%+v", op)
	}
	if op := ops[3].(SetTexturePipelineOp); op.TextureID != 7 {
		t.Fatalf("texture=%+v", op)
	}
	if op := ops[4].(DrawQuadsOp); !op.Centered || op.CommandID() != schema.CommandDrawCenteredQuads {
		t.Fatalf("centered quads=%+v", op)
	}
	if op := ops[5].(DrawLinesOp); len(op.Points) != 3 || op.Points[1] != (Vec2f{1, 1}) {
		t.Fatalf("lines=%+v", op)
	}
	if op := ops[6].(DrawTextsOp); len(op.Texts) != 1 || op.Texts[0] != text {
		t.Fatalf("texts=%+v", op)
	}
}

func TestDecodeRejectsOversizedCount(t *testing.T) {
	testlog.Start(t)
	target := newTarget(t)
	err := target.Push(schema.CommandDrawQuads, func(w *wire.Writer) {
		w.WriteUint64(1 << 40)
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	_ = target.Drain(func(cr *cmdlog.CommandsReader) error {
		cmd, _ := cr.Next()
		if _, err := Decode(cmd); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
		return nil
	})
}

func TestDecodeUnknownCommand(t *testing.T) {
	testlog.Start(t)
	target := newTarget(t)
	_ = target.Push(schema.CommandTouchStart, nil)
	_ = target.Drain(func(cr *cmdlog.CommandsReader) error {
		cmd, _ := cr.Next()
		if _, err := Decode(cmd); !errors.Is(err, ErrUnknownCommand) {
			t.Fatalf("expected ErrUnknownCommand, got %v", err)
		}
		return nil
	})
}

func TestSummarize(t *testing.T) {
	testlog.Start(t)
	target := newTarget(t)
	_ = SetColorPipeline(target, RGBA(0, 0, 0, 1))
	_ = DrawCenteredQuads(target, []Mat4f{Identity(), Identity(), Identity()})
	_ = DrawLines(target, []Vec2f{{0, 0}, {1, 0}, {1, 1}})
	_ = DrawTexts(target, []TextData{{Text: "a"}, {Text: "b"}})
	_ = target.Push(0x00ff_0001, nil)

	var s Stats
	_ = target.Drain(func(cr *cmdlog.CommandsReader) error {
		s = Summarize(cr)
		return nil
	})
	want := Stats{Commands: 5, Pipelines: 1, Quads: 3, Lines: 2, Texts: 2, Skipped: 1}
	if s != want {
		t.Fatalf("stats=%+v want=%+v", s, want)
	}
}

func TestMatrixHelpers(t *testing.T) {
	testlog.Start(t)
	m := Translation(1, 2, 3).Mul(Scaling(2, 2, 2))
	if m.Cols[0].X != 2 || m.Cols[3] != (Vec4f{1, 2, 3, 1}) {
		t.Fatalf("translate*scale=%+v", m)
	}
	if Identity().Mul(m) != m {
		t.Fatalf("identity is not neutral")
	}
	r := RotationZ(0)
	if r != Identity() {
		t.Fatalf("zero rotation=%+v", r)
	}
}
