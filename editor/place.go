package editor

import (
	"fmt"
	"time"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
)

// StampKeyframe is one step of the stamp placement animation.
type StampKeyframe struct {
	Scale float64
	At    time.Duration
}

// StampKeyframes returns the deterministic scale animation played when a
// stamp lands: a pop past full size, a squash, then settle. The settle frame
// is the committed state; renderings before and after the animation are
// identical.
func StampKeyframes() []StampKeyframe {
	return []StampKeyframe{
		{Scale: 1.15, At: 0},
		{Scale: 0.95, At: 120 * time.Millisecond},
		{Scale: 1.0, At: 240 * time.Millisecond},
	}
}

// SetViewport records the visible portion of the current page in render
// space at zoom 1. Placement tools center new objects on it; when unset they
// center on the page.
func (s *Session) SetViewport(r coords.Rect) {
	s.viewport = &r
}

// placementCenter picks where a placed object lands.
func (s *Session) placementCenter() (coords.Point, error) {
	if s.viewport != nil {
		return s.viewport.Center(), nil
	}
	st, err := s.pageMgr.Get(s.current)
	if err != nil {
		return coords.Point{}, err
	}
	space, err := s.handle.PageSize(st.Source)
	if err != nil {
		return coords.Point{}, fmt.Errorf("page size: %w", err)
	}
	w, h := space.RenderSize(1.0)
	return coords.Point{X: w / 2, Y: h / 2}, nil
}

func centeredRect(c coords.Point, w, h float64) coords.Rect {
	return coords.Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

// PlaceStamp drops a named prefab stamp centered on the viewport and commits
// it at the settled animation scale.
func (s *Session) PlaceStamp(name string) (*annot.Stamp, error) {
	c, err := s.placementCenter()
	if err != nil {
		return nil, err
	}
	o := &annot.Stamp{
		Base:  annot.Base{ID: annot.NewID(), Rect: centeredRect(c, 160, 56)},
		Name:  name,
		Scale: 1.0,
	}
	s.addObject(o)
	s.selected = o.ID
	s.commit()
	return o, nil
}

// PlaceSignature drops a signature image centered on the viewport.
func (s *Session) PlaceSignature(png []byte, w, h float64) (*annot.Signature, error) {
	c, err := s.placementCenter()
	if err != nil {
		return nil, err
	}
	o := &annot.Signature{
		Base: annot.Base{ID: annot.NewID(), Rect: centeredRect(c, w, h)},
		PNG:  append([]byte(nil), png...),
	}
	s.addObject(o)
	s.selected = o.ID
	s.commit()
	return o, nil
}

// PlaceImage drops a picture centered on the viewport.
func (s *Session) PlaceImage(png []byte, w, h float64) (*annot.Image, error) {
	c, err := s.placementCenter()
	if err != nil {
		return nil, err
	}
	o := &annot.Image{
		Base: annot.Base{ID: annot.NewID(), Rect: centeredRect(c, w, h)},
		PNG:  append([]byte(nil), png...),
	}
	s.addObject(o)
	s.selected = o.ID
	s.commit()
	return o, nil
}
