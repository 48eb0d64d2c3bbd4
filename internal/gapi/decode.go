package gapi

import (
	"errors"
	"fmt"

	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/protocol/schema"
)

var (
	ErrUnknownCommand   = errors.New("gapi: unknown command")
	ErrMalformedPayload = errors.New("gapi: malformed payload")
)

// Op is one decoded render command.
type Op interface {
	CommandID() uint64
}

type SetColorPipelineOp struct{ Color Color }

type SetTexturePipelineOp struct{ TextureID uint64 }

type SetViewportOp struct{ X, Y, Width, Height uint32 }

type DrawLinesOp struct{ Points []Vec2f }

type DrawQuadsOp struct {
	Centered bool
	MVPs     []Mat4f
}

type DrawTextsOp struct{ Texts []TextData }

func (SetColorPipelineOp) CommandID() uint64   { return schema.CommandSetColorPipeline }
func (SetTexturePipelineOp) CommandID() uint64 { return schema.CommandSetTexturePipeline }
func (SetViewportOp) CommandID() uint64        { return schema.CommandSetViewport }
func (DrawLinesOp) CommandID() uint64          { return schema.CommandDrawLines }
func (DrawTextsOp) CommandID() uint64          { return schema.CommandDrawTexts }

func (o DrawQuadsOp) CommandID() uint64 {
	if o.Centered {
		return schema.CommandDrawCenteredQuads
	}
	return schema.CommandDrawQuads
}

// payload tracks how much of a record is left so counts and string lengths
// from the wire cannot walk past the record.
type payload struct {
	cmd   cmdlog.Command
	start uint64
}

func (p payload) left() uint64 {
	return p.cmd.Len - (p.cmd.Payload.Offset() - p.start)
}

func (p payload) need(n uint64) error {
	if n > p.left() {
		return fmt.Errorf("%w: %s needs %d bytes, %d left", ErrMalformedPayload, schema.Name(p.cmd.ID), n, p.left())
	}
	return nil
}

// count reads an element count and checks that count elements of at least
// size bytes fit in what is left.
func (p payload) count(size uint64) (uint64, error) {
	if err := p.need(8); err != nil {
		return 0, err
	}
	n := p.cmd.Payload.ReadUint64()
	if size > 0 && n > p.left()/size {
		return 0, fmt.Errorf("%w: %s count %d does not fit in %d bytes", ErrMalformedPayload, schema.Name(p.cmd.ID), n, p.left())
	}
	return n, nil
}

// Decode reads one render command. Commands outside the graphics family
// return ErrUnknownCommand and leave the payload unread.
func Decode(cmd cmdlog.Command) (Op, error) {
	p := payload{cmd: cmd, start: cmd.Payload.Offset()}
	r := cmd.Payload

	switch cmd.ID {
	case schema.CommandSetColorPipeline:
		if err := p.need(vec4Size); err != nil {
			return nil, err
		}
		var op SetColorPipelineOp
		op.Color.Decode(r)
		return op, nil

	case schema.CommandSetTexturePipeline:
		if err := p.need(8); err != nil {
			return nil, err
		}
		return SetTexturePipelineOp{TextureID: r.ReadUint64()}, nil

	case schema.CommandSetViewport:
		if err := p.need(16); err != nil {
			return nil, err
		}
		return SetViewportOp{X: r.ReadUint32(), Y: r.ReadUint32(), Width: r.ReadUint32(), Height: r.ReadUint32()}, nil

	case schema.CommandDrawLines:
		n, err := p.count(vec2Size)
		if err != nil {
			return nil, err
		}
		op := DrawLinesOp{Points: make([]Vec2f, n)}
		for i := range op.Points {
			op.Points[i].Decode(r)
		}
		return op, nil

	case schema.CommandDrawQuads, schema.CommandDrawCenteredQuads:
		n, err := p.count(mat4Size)
		if err != nil {
			return nil, err
		}
		op := DrawQuadsOp{Centered: cmd.ID == schema.CommandDrawCenteredQuads, MVPs: make([]Mat4f, n)}
		for i := range op.MVPs {
			op.MVPs[i].Decode(r)
		}
		return op, nil

	case schema.CommandDrawTexts:
		n, err := p.count(textFixedSize)
		if err != nil {
			return nil, err
		}
		op := DrawTextsOp{Texts: make([]TextData, n)}
		for i := range op.Texts {
			if err := p.need(textFixedSize); err != nil {
				return nil, err
			}
			t := &op.Texts[i]
			t.FontID = r.ReadUint64()
			t.FontSize = r.ReadUint32()
			t.MVP.Decode(r)
			size := r.ReadUint64()
			if err := p.need(size); err != nil {
				return nil, err
			}
			t.Text = string(r.ReadBytes(size))
		}
		return op, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, schema.Name(cmd.ID))
}

// Stats counts decoded render work in one frame.
type Stats struct {
	Commands  int
	Pipelines int
	Quads     int
	Lines     int
	Texts     int
	Skipped   int
}

// Summarize decodes every record of a render buffer. Records that fail to
// decode are counted as skipped.
func Summarize(cr *cmdlog.CommandsReader) Stats {
	var s Stats
	for cmd, ok := cr.Next(); ok; cmd, ok = cr.Next() {
		s.Commands++
		op, err := Decode(cmd)
		if err != nil {
			s.Skipped++
			continue
		}
		switch op := op.(type) {
		case SetColorPipelineOp, SetTexturePipelineOp:
			s.Pipelines++
		case DrawQuadsOp:
			s.Quads += len(op.MVPs)
		case DrawLinesOp:
			if len(op.Points) > 1 {
				s.Lines += len(op.Points) - 1
			}
		case DrawTextsOp:
			s.Texts += len(op.Texts)
		}
	}
	return s
}
