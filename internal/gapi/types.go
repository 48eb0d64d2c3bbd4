// Package gapi encodes and decodes the render commands modules push into
// their render channel.
package gapi

import (
	"math"

	"github.com/tech-paws/vm/internal/protocol/wire"
)

type Vec2f struct {
	X, Y float32
}

func (v Vec2f) Encode(w *wire.Writer) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
}

func (v *Vec2f) Decode(r *wire.Reader) {
	v.X = r.ReadFloat32()
	v.Y = r.ReadFloat32()
}

type Vec4f struct {
	X, Y, Z, W float32
}

// Color is an RGBA colour in [0,1].
type Color = Vec4f

func RGBA(r, g, b, a float32) Color {
	return Color{X: r, Y: g, Z: b, W: a}
}

func (v Vec4f) Encode(w *wire.Writer) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
	w.WriteFloat32(v.Z)
	w.WriteFloat32(v.W)
}

func (v *Vec4f) Decode(r *wire.Reader) {
	v.X = r.ReadFloat32()
	v.Y = r.ReadFloat32()
	v.Z = r.ReadFloat32()
	v.W = r.ReadFloat32()
}

// Mat4f is a column-major 4x4 matrix.
type Mat4f struct {
	Cols [4]Vec4f
}

const (
	vec2Size = 8
	vec4Size = 16
	mat4Size = 4 * vec4Size
)

func Identity() Mat4f {
	return Mat4f{Cols: [4]Vec4f{
		{X: 1},
		{Y: 1},
		{Z: 1},
		{W: 1},
	}}
}

// Ortho builds an orthographic projection for the given view volume.
func Ortho(left, right, bottom, top, near, far float32) Mat4f {
	m := Identity()
	m.Cols[0].X = 2 / (right - left)
	m.Cols[1].Y = 2 / (top - bottom)
	m.Cols[2].Z = -2 / (far - near)
	m.Cols[3] = Vec4f{
		X: -(right + left) / (right - left),
		Y: -(top + bottom) / (top - bottom),
		Z: -(far + near) / (far - near),
		W: 1,
	}
	return m
}

func Translation(x, y, z float32) Mat4f {
	m := Identity()
	m.Cols[3] = Vec4f{X: x, Y: y, Z: z, W: 1}
	return m
}

func Scaling(x, y, z float32) Mat4f {
	m := Identity()
	m.Cols[0].X = x
	m.Cols[1].Y = y
	m.Cols[2].Z = z
	return m
}

// RotationZ rotates by angle radians around the z axis.
func RotationZ(angle float32) Mat4f {
	s, c := math.Sincos(float64(angle))
	m := Identity()
	m.Cols[0].X = float32(c)
	m.Cols[0].Y = float32(s)
	m.Cols[1].X = float32(-s)
	m.Cols[1].Y = float32(c)
	return m
}

func (m Mat4f) row(i int) Vec4f {
	get := func(v Vec4f) float32 {
		switch i {
		case 0:
			return v.X
		case 1:
			return v.Y
		case 2:
			return v.Z
		default:
			return v.W
		}
	}
	return Vec4f{X: get(m.Cols[0]), Y: get(m.Cols[1]), Z: get(m.Cols[2]), W: get(m.Cols[3])}
}

func dot(a, b Vec4f) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Mul returns m * o.
func (m Mat4f) Mul(o Mat4f) Mat4f {
	rows := [4]Vec4f{m.row(0), m.row(1), m.row(2), m.row(3)}
	var out Mat4f
	for c := 0; c < 4; c++ {
		col := o.Cols[c]
		out.Cols[c] = Vec4f{
			X: dot(rows[0], col),
			Y: dot(rows[1], col),
			Z: dot(rows[2], col),
			W: dot(rows[3], col),
		}
	}
	return out
}

func (m Mat4f) Encode(w *wire.Writer) {
	for _, c := range m.Cols {
		c.Encode(w)
	}
}

func (m *Mat4f) Decode(r *wire.Reader) {
	for i := range m.Cols {
		m.Cols[i].Decode(r)
	}
}

// TextData is one text run for DrawTexts.
type TextData struct {
	FontID   uint64
	FontSize uint32
	MVP      Mat4f
	Text     string
}

func (t TextData) Encode(w *wire.Writer) {
	w.WriteUint64(t.FontID)
	w.WriteUint32(t.FontSize)
	t.MVP.Encode(w)
	w.WriteString(t.Text)
}

func (t *TextData) Decode(r *wire.Reader) {
	t.FontID = r.ReadUint64()
	t.FontSize = r.ReadUint32()
	t.MVP.Decode(r)
	t.Text = r.ReadString()
}

// fixed part of an encoded TextData: font id, size, mvp and string length.
const textFixedSize = 8 + 4 + mat4Size + 8
