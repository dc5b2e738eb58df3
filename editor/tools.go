package editor

import (
	"math"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
)

// Tool identifies the active editing tool. Exactly one tool is active at a
// time; selecting a tool replaces the previous one.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolText      Tool = "text"
	ToolFreehand  Tool = "freehand"
	ToolRect      Tool = "rect"
	ToolEllipse   Tool = "ellipse"
	ToolLine      Tool = "line"
	ToolArrow     Tool = "arrow"
	ToolHighlight Tool = "highlight"
	ToolWhiteout  Tool = "whiteout"
	ToolRedact    Tool = "redact"
)

// Defaults for newly created objects.
const (
	defaultStrokeWidth = 2.0
	defaultFontSize    = 16.0
	resizeHandleSlop   = 8.0
	minDragSize        = 2.0
)

type dragMode int

const (
	dragNone dragMode = iota
	dragCreate
	dragMove
	dragResize
)

type dragState struct {
	mode   dragMode
	origin coords.Point
	last   coords.Point
	objID  string
	start  coords.Rect
	moved  bool
}

// SetTool switches the active tool. An in-progress drag is abandoned and any
// half-created object is discarded without a history commit.
func (s *Session) SetTool(tool Tool) {
	if s.drag.mode == dragCreate && s.drag.objID != "" {
		s.removeUncommitted(s.drag.objID)
	}
	s.drag = dragState{}
	s.tool = tool
	if tool != ToolSelect {
		s.selected = ""
	}
}

func (s *Session) ActiveTool() Tool { return s.tool }

// PointerDown starts a gesture at a render-space point on the current page.
// Coordinates arrive at the current zoom and are normalized to zoom 1 before
// they touch stored geometry.
func (s *Session) PointerDown(p coords.Point) {
	if s.closed {
		return
	}
	p = s.normalize(p)
	s.drag = dragState{origin: p, last: p}

	switch s.tool {
	case ToolSelect:
		s.selectDown(p)
	case ToolText:
		s.textDown(p)
	case ToolFreehand:
		s.freehandDown(p)
	case ToolRect, ToolEllipse, ToolHighlight, ToolWhiteout, ToolRedact:
		s.rectDown(p)
	case ToolLine, ToolArrow:
		s.lineDown(p)
	}
}

// PointerMove continues the gesture. Geometry updates live on the canvas but
// nothing is committed to history until PointerUp.
func (s *Session) PointerMove(p coords.Point) {
	if s.closed || s.drag.mode == dragNone {
		return
	}
	p = s.normalize(p)

	switch s.drag.mode {
	case dragMove:
		s.dragMoveTo(p)
	case dragResize:
		s.dragResizeTo(p)
	case dragCreate:
		switch s.tool {
		case ToolFreehand:
			s.freehandMove(p)
		case ToolRect, ToolEllipse, ToolHighlight, ToolWhiteout, ToolRedact:
			s.rectMove(p)
		case ToolLine, ToolArrow:
			s.lineMove(p)
		}
	}
	s.drag.last = p
	s.drag.moved = true
}

// PointerUp completes the gesture. Creation and its history commit happen
// together; a canceled or degenerate gesture leaves no object and no entry.
func (s *Session) PointerUp(p coords.Point) {
	if s.closed || s.drag.mode == dragNone {
		return
	}
	mode, id := s.drag.mode, s.drag.objID
	s.PointerMove(p)
	s.drag = dragState{}

	switch mode {
	case dragMove, dragResize:
		s.commit()
	case dragCreate:
		o, ok := s.findObject(id)
		if !ok {
			return
		}
		if degenerate(o) {
			s.removeUncommitted(id)
			return
		}
		s.selected = id
		s.commit()
	}
}

// normalize converts an incoming pointer point at the current zoom into the
// zoom-1 frame objects are stored in.
func (s *Session) normalize(p coords.Point) coords.Point {
	if s.zoom == 1.0 {
		return p
	}
	return coords.Point{X: p.X / s.zoom, Y: p.Y / s.zoom}
}

func (s *Session) removeUncommitted(id string) {
	objs := s.objects[s.current]
	for i, o := range objs {
		if o.ObjectID() == id {
			s.objects[s.current] = append(objs[:i], objs[i+1:]...)
			if s.canvas != nil {
				s.canvas.Remove(id)
			}
			return
		}
	}
}

// --- select tool ---

func (s *Session) selectDown(p coords.Point) {
	if i := annot.TopmostHit(s.objects[s.current], p); i >= 0 {
		o := s.objects[s.current][i]
		s.selected = o.ObjectID()
		s.drag.objID = o.ObjectID()
		s.drag.start = o.Bounds()
		if nearBottomRight(o.Bounds(), p) && resizable(o) {
			s.drag.mode = dragResize
		} else {
			s.drag.mode = dragMove
		}
		return
	}
	if s.editSourceText(p) {
		return
	}
	s.selected = ""
	s.drag = dragState{}
}

// editSourceText implements click-to-edit on detected source text: clicking
// inside a detected region covers the original glyphs with an opaque patch
// and seeds an editable text object with the region's text and look.
func (s *Session) editSourceText(p coords.Point) bool {
	region, ok := s.regionAt(p)
	if !ok {
		return false
	}
	cover := &annot.Whiteout{Base: annot.Base{ID: annot.NewID(), Rect: region.Rect}}
	text := &annot.Text{
		Base:     annot.Base{ID: annot.NewID(), Rect: region.Rect},
		Text:     region.Text,
		FontSize: region.FontSize,
		Color:    region.Color,
	}
	if text.FontSize <= 0 {
		text.FontSize = defaultFontSize
	}
	s.addObject(cover)
	s.addObject(text)
	s.selected = text.ID
	s.editing = text.ID
	s.drag = dragState{}
	s.commit()
	return true
}

func (s *Session) regionAt(p coords.Point) (doc.TextRegion, bool) {
	for _, r := range s.regions[s.current] {
		if r.Rect.Contains(p) {
			return r, true
		}
	}
	return doc.TextRegion{}, false
}

func (s *Session) dragMoveTo(p coords.Point) {
	o, ok := s.findObject(s.drag.objID)
	if !ok {
		return
	}
	annot.Translate(o, p.X-s.drag.last.X, p.Y-s.drag.last.Y)
	s.updateObject(o)
}

func (s *Session) dragResizeTo(p coords.Point) {
	o, ok := s.findObject(s.drag.objID)
	if !ok {
		return
	}
	r := s.drag.start
	w := math.Max(minDragSize, p.X-r.X)
	h := math.Max(minDragSize, p.Y-r.Y)
	o.SetBounds(coords.Rect{X: r.X, Y: r.Y, W: w, H: h})
	s.updateObject(o)
}

func nearBottomRight(r coords.Rect, p coords.Point) bool {
	return math.Abs(p.X-(r.X+r.W)) <= resizeHandleSlop &&
		math.Abs(p.Y-(r.Y+r.H)) <= resizeHandleSlop
}

// resizable reports whether the bottom-right handle applies. Endpoint-based
// objects move as a whole instead.
func resizable(o annot.Object) bool {
	switch o.ObjectKind() {
	case annot.KindLine, annot.KindArrow, annot.KindPath:
		return false
	}
	return true
}

// --- text tool ---

// textDown inserts a text object at the point and enters edit mode. The
// history entry is pushed by CommitText once the content is final.
func (s *Session) textDown(p coords.Point) {
	t := &annot.Text{
		Base:     annot.Base{ID: annot.NewID(), Rect: coords.Rect{X: p.X, Y: p.Y, W: 120, H: defaultFontSize * 1.5}},
		FontSize: defaultFontSize,
		Color:    annot.Black,
	}
	s.addObject(t)
	s.selected = t.ID
	s.editing = t.ID
	s.drag = dragState{}
}

// --- drag-created objects ---

func (s *Session) freehandDown(p coords.Point) {
	o := &annot.Path{
		Base:        annot.Base{ID: annot.NewID(), Rect: coords.Rect{X: p.X, Y: p.Y}},
		Points:      []coords.Point{p},
		StrokeWidth: defaultStrokeWidth,
		Color:       annot.Black,
	}
	s.addObject(o)
	s.drag.mode = dragCreate
	s.drag.objID = o.ID
}

func (s *Session) freehandMove(p coords.Point) {
	o, ok := s.findObject(s.drag.objID)
	if !ok {
		return
	}
	path := o.(*annot.Path)
	path.Points = append(path.Points, p)
	path.Rect = pathBounds(path.Points)
	s.updateObject(path)
}

func pathBounds(pts []coords.Point) coords.Rect {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return coords.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (s *Session) rectDown(p coords.Point) {
	base := annot.Base{ID: annot.NewID(), Rect: coords.Rect{X: p.X, Y: p.Y}}
	var o annot.Object
	switch s.tool {
	case ToolRect:
		o = &annot.Rect{Base: base, StrokeWidth: defaultStrokeWidth, Stroke: annot.Black}
	case ToolEllipse:
		o = &annot.Ellipse{Base: base, StrokeWidth: defaultStrokeWidth, Stroke: annot.Black}
	case ToolHighlight:
		o = &annot.Highlight{Base: base, Color: annot.Yellow}
	case ToolWhiteout:
		o = &annot.Whiteout{Base: base}
	case ToolRedact:
		o = &annot.Redaction{Base: base}
	}
	s.addObject(o)
	s.drag.mode = dragCreate
	s.drag.objID = o.ObjectID()
}

// rectMove renormalizes the bounds from the anchor corner, so dragging in
// any direction yields positive width and height.
func (s *Session) rectMove(p coords.Point) {
	o, ok := s.findObject(s.drag.objID)
	if !ok {
		return
	}
	o.SetBounds(coords.FromCorners(s.drag.origin, p))
	s.updateObject(o)
}

func (s *Session) lineDown(p coords.Point) {
	base := annot.Base{ID: annot.NewID(), Rect: coords.Rect{X: p.X, Y: p.Y}}
	var o annot.Object
	if s.tool == ToolArrow {
		o = &annot.Arrow{Base: base, From: p, To: p, StrokeWidth: defaultStrokeWidth, Color: annot.Black}
	} else {
		o = &annot.Line{Base: base, From: p, To: p, StrokeWidth: defaultStrokeWidth, Color: annot.Black}
	}
	s.addObject(o)
	s.drag.mode = dragCreate
	s.drag.objID = o.ObjectID()
}

func (s *Session) lineMove(p coords.Point) {
	o, ok := s.findObject(s.drag.objID)
	if !ok {
		return
	}
	switch v := o.(type) {
	case *annot.Line:
		v.To = p
		v.Rect = coords.FromCorners(v.From, v.To)
	case *annot.Arrow:
		v.To = p
		v.Head = annot.ArrowHead(v.From, v.To, v.StrokeWidth)
		v.Rect = coords.FromCorners(v.From, v.To)
	}
	s.updateObject(o)
}

// degenerate reports a click-without-drag creation that should be discarded.
func degenerate(o annot.Object) bool {
	switch v := o.(type) {
	case *annot.Path:
		return len(v.Points) < 2
	case *annot.Line:
		return dist(v.From, v.To) < minDragSize
	case *annot.Arrow:
		return dist(v.From, v.To) < minDragSize
	}
	b := o.Bounds()
	return b.W < minDragSize && b.H < minDragSize
}

func dist(a, b coords.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
