package annot

import (
	"math"

	"github.com/shockz09/pdfmark/coords"
)

// hitSlop widens thin strokes so they remain clickable.
const hitSlop = 4.0

// Hit reports whether a render-space point lands on the object. Rectangular
// variants hit-test against their bounds; stroke variants test distance to
// the stroke itself.
func Hit(o Object, p coords.Point) bool {
	switch v := o.(type) {
	case *Line:
		return segmentDistance(v.From, v.To, p) <= v.StrokeWidth/2+hitSlop
	case *Arrow:
		if segmentDistance(v.From, v.To, p) <= v.StrokeWidth/2+hitSlop {
			return true
		}
		return pointInTriangle(p, v.Head)
	case *Path:
		for i := 1; i < len(v.Points); i++ {
			if segmentDistance(v.Points[i-1], v.Points[i], p) <= v.StrokeWidth/2+hitSlop {
				return true
			}
		}
		return false
	default:
		return containsRotated(o.Bounds(), o.Rotation(), p)
	}
}

// containsRotated tests a point against bounds rotated by angle degrees
// about their center, mapping the point into the object frame first.
func containsRotated(r coords.Rect, angle float64, p coords.Point) bool {
	if angle == 0 {
		return r.Contains(p)
	}
	c := r.Center()
	m := coords.Translate(-c.X, -c.Y).
		Multiply(coords.Rotate(-angle * math.Pi / 180)).
		Multiply(coords.Translate(c.X, c.Y))
	return r.Contains(m.Transform(p))
}

// TopmostHit returns the index of the last (topmost) object hit by p, or -1.
func TopmostHit(objs []Object, p coords.Point) int {
	for i := len(objs) - 1; i >= 0; i-- {
		if Hit(objs[i], p) {
			return i
		}
	}
	return -1
}

func segmentDistance(a, b, p coords.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func pointInTriangle(p coords.Point, tri [3]coords.Point) bool {
	sign := func(a, b, c coords.Point) float64 {
		return (a.X-c.X)*(b.Y-c.Y) - (b.X-c.X)*(a.Y-c.Y)
	}
	d1 := sign(p, tri[0], tri[1])
	d2 := sign(p, tri[1], tri[2])
	d3 := sign(p, tri[2], tri[0])
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
