// Package annot defines the annotation object model: plain serializable
// records for every edit a user can place on a page. Objects store their
// geometry in render-space coordinates captured at creation time; the
// coordinate transforms in package coords rescale them for export.
package annot

import (
	"math"

	"github.com/google/uuid"

	"github.com/shockz09/pdfmark/coords"
)

// Kind discriminates the annotation variants.
type Kind string

const (
	KindText      Kind = "text"
	KindPath      Kind = "path"
	KindRect      Kind = "rect"
	KindEllipse   Kind = "ellipse"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindHighlight Kind = "highlight"
	KindWhiteout  Kind = "whiteout"
	KindRedaction Kind = "redaction"
	KindStamp     Kind = "stamp"
	KindSignature Kind = "signature"
	KindImage     Kind = "image"
)

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	Black     = Color{0, 0, 0, 255}
	White     = Color{255, 255, 255, 255}
	Yellow    = Color{255, 235, 59, 102}
	RedactRed = Color{211, 47, 47, 255}
)

// Object is the interface implemented by every annotation variant.
type Object interface {
	ObjectKind() Kind
	ObjectID() string
	SetID(string)
	Bounds() coords.Rect
	SetBounds(coords.Rect)
	Rotation() float64
	SetRotation(float64)
	Clone() Object
}

// Base provides the common fields shared by all variants.
type Base struct {
	ID      string      `json:"id"`
	Rect    coords.Rect `json:"rect"`
	Angle   float64     `json:"angle,omitempty"` // degrees, clockwise
	Opacity float64     `json:"opacity,omitempty"`
}

func (b *Base) ObjectID() string          { return b.ID }
func (b *Base) SetID(id string)           { b.ID = id }
func (b *Base) Bounds() coords.Rect       { return b.Rect }
func (b *Base) SetBounds(r coords.Rect)   { b.Rect = r }
func (b *Base) Rotation() float64         { return b.Angle }
func (b *Base) SetRotation(angle float64) { b.Angle = angle }

// NewID returns a fresh object identifier.
func NewID() string { return uuid.NewString() }

// Text is an editable text annotation.
type Text struct {
	Base
	Text          string  `json:"text"`
	FontSize      float64 `json:"fontSize"`
	Color         Color   `json:"color"`
	Underline     bool    `json:"underline,omitempty"`
	Strikethrough bool    `json:"strikethrough,omitempty"`
}

func (*Text) ObjectKind() Kind { return KindText }

func (t *Text) Clone() Object {
	c := *t
	return &c
}

// Path is a freehand drawing stroke.
type Path struct {
	Base
	Points      []coords.Point `json:"points"`
	StrokeWidth float64        `json:"strokeWidth"`
	Color       Color          `json:"color"`
}

func (*Path) ObjectKind() Kind { return KindPath }

func (p *Path) Clone() Object {
	c := *p
	c.Points = append([]coords.Point(nil), p.Points...)
	return &c
}

// Rect is a stroked, optionally filled rectangle.
type Rect struct {
	Base
	StrokeWidth float64 `json:"strokeWidth"`
	Stroke      Color   `json:"stroke"`
	Fill        *Color  `json:"fill,omitempty"`
}

func (*Rect) ObjectKind() Kind { return KindRect }

func (r *Rect) Clone() Object {
	c := *r
	if r.Fill != nil {
		f := *r.Fill
		c.Fill = &f
	}
	return &c
}

// Ellipse is a stroked, optionally filled ellipse inscribed in its bounds.
type Ellipse struct {
	Base
	StrokeWidth float64 `json:"strokeWidth"`
	Stroke      Color   `json:"stroke"`
	Fill        *Color  `json:"fill,omitempty"`
}

func (*Ellipse) ObjectKind() Kind { return KindEllipse }

func (e *Ellipse) Clone() Object {
	c := *e
	if e.Fill != nil {
		f := *e.Fill
		c.Fill = &f
	}
	return &c
}

// Line is a straight stroke between two points.
type Line struct {
	Base
	From        coords.Point `json:"from"`
	To          coords.Point `json:"to"`
	StrokeWidth float64      `json:"strokeWidth"`
	Color       Color        `json:"color"`
}

func (*Line) ObjectKind() Kind { return KindLine }

func (l *Line) Clone() Object {
	c := *l
	return &c
}

// Arrow is a line with a filled triangular head at its To end.
type Arrow struct {
	Base
	From        coords.Point    `json:"from"`
	To          coords.Point    `json:"to"`
	StrokeWidth float64         `json:"strokeWidth"`
	Color       Color           `json:"color"`
	Head        [3]coords.Point `json:"head"`
}

func (*Arrow) ObjectKind() Kind { return KindArrow }

func (a *Arrow) Clone() Object {
	c := *a
	return &c
}

// Highlight is a translucent filled rectangle.
type Highlight struct {
	Base
	Color Color `json:"color"`
}

func (*Highlight) ObjectKind() Kind { return KindHighlight }

func (h *Highlight) Clone() Object {
	c := *h
	return &c
}

// Whiteout is an opaque white rectangle covering page content.
type Whiteout struct {
	Base
}

func (*Whiteout) ObjectKind() Kind { return KindWhiteout }

func (w *Whiteout) Clone() Object {
	c := *w
	return &c
}

// Redaction marks content for permanent removal. On the live canvas it is
// indistinguishable from an opaque rectangle; the export pipeline substitutes
// a fully opaque fill so the content underneath is unrecoverable.
type Redaction struct {
	Base
}

func (*Redaction) ObjectKind() Kind { return KindRedaction }

func (r *Redaction) Clone() Object {
	c := *r
	return &c
}

// Stamp is a named prefab graphic (e.g. "approved").
type Stamp struct {
	Base
	Name  string  `json:"name"`
	Scale float64 `json:"scale"`
}

func (*Stamp) ObjectKind() Kind { return KindStamp }

func (s *Stamp) Clone() Object {
	c := *s
	return &c
}

// Signature is a placed signature image (PNG bytes).
type Signature struct {
	Base
	PNG []byte `json:"png"`
}

func (*Signature) ObjectKind() Kind { return KindSignature }

func (s *Signature) Clone() Object {
	c := *s
	c.PNG = append([]byte(nil), s.PNG...)
	return &c
}

// Image is a user-inserted picture (PNG bytes).
type Image struct {
	Base
	PNG []byte `json:"png"`
}

func (*Image) ObjectKind() Kind { return KindImage }

func (i *Image) Clone() Object {
	c := *i
	c.PNG = append([]byte(nil), i.PNG...)
	return &c
}

// ArrowHead computes the filled triangular head for an arrow drawn from
// `from` to `to`. The head is sized relative to the stroke width and oriented
// along the drag vector.
func ArrowHead(from, to coords.Point, strokeWidth float64) [3]coords.Point {
	length := math.Max(10, strokeWidth*4)
	width := length * 0.6
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)

	// Build the head in a local frame with the tip at the origin pointing
	// along +X, then rotate and translate into place.
	m := coords.Rotate(angle).Multiply(coords.Translate(to.X, to.Y))
	return [3]coords.Point{
		m.Transform(coords.Point{X: 0, Y: 0}),
		m.Transform(coords.Point{X: -length, Y: -width / 2}),
		m.Transform(coords.Point{X: -length, Y: width / 2}),
	}
}

// Translate moves an object by (dx, dy), shifting endpoint and path geometry
// along with the bounds.
func Translate(o Object, dx, dy float64) {
	o.SetBounds(o.Bounds().Translate(dx, dy))
	switch v := o.(type) {
	case *Line:
		v.From = coords.Point{X: v.From.X + dx, Y: v.From.Y + dy}
		v.To = coords.Point{X: v.To.X + dx, Y: v.To.Y + dy}
	case *Arrow:
		v.From = coords.Point{X: v.From.X + dx, Y: v.From.Y + dy}
		v.To = coords.Point{X: v.To.X + dx, Y: v.To.Y + dy}
		v.Head = ArrowHead(v.From, v.To, v.StrokeWidth)
	case *Path:
		for i := range v.Points {
			v.Points[i].X += dx
			v.Points[i].Y += dy
		}
	}
}

// CountRedactions reports the number of redaction objects across all pages.
// It drives the pre-export confirmation prompt.
func CountRedactions(byPage map[int][]Object) int {
	n := 0
	for _, objs := range byPage {
		for _, o := range objs {
			if o.ObjectKind() == KindRedaction {
				n++
			}
		}
	}
	return n
}
