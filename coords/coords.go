// Package coords defines the three coordinate spaces of the editor and the
// pure transforms between them.
//
// Native space is the page's intrinsic coordinate system as reported by the
// document engine, origin at the bottom-left. Render space is the live
// editing canvas, origin at the top-left, scaled by a fixed base factor times
// the current zoom. Export space is render space scaled by a supersampling
// factor for output quality.
package coords

import (
	"errors"
	"math"
)

// RenderBase is the fixed multiplier between native and render space at zoom
// 1.0. It is independent of zoom so canvas pixel density stays stable while
// the user zooms.
const RenderBase = 1.5

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. W and H are always non-negative after
// Normalize.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FromCorners builds the normalized rectangle spanned by two drag points.
// Negative drags (dragging up or left of the origin) still produce positive
// width and height.
func FromCorners(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

func (r Rect) Normalize() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// PageSpace carries the native page size needed to flip the Y axis between
// native (origin bottom-left) and render (origin top-left) space.
type PageSpace struct {
	Width  float64
	Height float64
}

// ToRender maps a native-space point into render space at the given zoom.
func (s PageSpace) ToRender(p Point, zoom float64) Point {
	k := RenderBase * zoom
	return Point{X: p.X * k, Y: (s.Height - p.Y) * k}
}

// FromRender is the inverse of ToRender.
func (s PageSpace) FromRender(p Point, zoom float64) Point {
	k := RenderBase * zoom
	return Point{X: p.X / k, Y: s.Height - p.Y/k}
}

// RenderSize returns the render-space pixel dimensions of the page.
func (s PageSpace) RenderSize(zoom float64) (w, h float64) {
	k := RenderBase * zoom
	return s.Width * k, s.Height * k
}

// ToExport maps a render-space point into export space.
func ToExport(p Point, supersample float64) Point {
	return Point{X: p.X * supersample, Y: p.Y * supersample}
}

// FromExport is the inverse of ToExport.
func FromExport(p Point, supersample float64) Point {
	return Point{X: p.X / supersample, Y: p.Y / supersample}
}

// RectToExport scales a render-space rectangle into export space.
func RectToExport(r Rect, supersample float64) Rect {
	return Rect{X: r.X * supersample, Y: r.Y * supersample, W: r.W * supersample, H: r.H * supersample}
}

// Matrix is a row-major 2D affine transform [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}
