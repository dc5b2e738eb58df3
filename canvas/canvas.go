// Package canvas defines the narrow contract the editor uses to talk to a
// vector canvas surface, plus an in-memory scene implementation. The editor's
// data model stays plain annot records; a GUI adapter can implement Canvas
// over a real scene-graph library without the core ever holding its live
// objects.
package canvas

import (
	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
)

// Canvas is one page view's drawing surface. Exactly one Canvas exists per
// page view; it must be Closed before a replacement for the same view is
// constructed, and a closed canvas ignores all further calls so handlers
// from a disposed view can never mutate a stale instance.
type Canvas interface {
	Add(o annot.Object)
	Update(o annot.Object)
	Remove(id string)
	Get(id string) (annot.Object, bool)
	// Objects returns the ordered object sequence, bottom to top.
	Objects() []annot.Object
	// HitTest returns the topmost object at a render-space point.
	HitTest(p coords.Point) (annot.Object, bool)
	// Snapshot serializes the full object sequence.
	Snapshot() ([]byte, error)
	// Restore replaces the scene with a previously captured snapshot.
	Restore(data []byte) error
	// OnModified registers the single modification callback.
	OnModified(fn func())
	Close()
}

// Factory constructs the canvas for a page view.
type Factory func() Canvas

// Scene is the in-memory Canvas implementation used by the headless editor
// and the test suite.
type Scene struct {
	objs     []annot.Object
	modified func()
	closed   bool
}

func NewScene() *Scene { return &Scene{} }

func (s *Scene) notify() {
	if s.modified != nil {
		s.modified()
	}
}

func (s *Scene) Add(o annot.Object) {
	if s.closed || o == nil {
		return
	}
	s.objs = append(s.objs, o)
	s.notify()
}

func (s *Scene) Update(o annot.Object) {
	if s.closed || o == nil {
		return
	}
	for i := range s.objs {
		if s.objs[i].ObjectID() == o.ObjectID() {
			s.objs[i] = o
			s.notify()
			return
		}
	}
}

func (s *Scene) Remove(id string) {
	if s.closed {
		return
	}
	for i := range s.objs {
		if s.objs[i].ObjectID() == id {
			s.objs = append(s.objs[:i], s.objs[i+1:]...)
			s.notify()
			return
		}
	}
}

func (s *Scene) Get(id string) (annot.Object, bool) {
	for _, o := range s.objs {
		if o.ObjectID() == id {
			return o, true
		}
	}
	return nil, false
}

func (s *Scene) Objects() []annot.Object {
	return append([]annot.Object(nil), s.objs...)
}

func (s *Scene) HitTest(p coords.Point) (annot.Object, bool) {
	if i := annot.TopmostHit(s.objs, p); i >= 0 {
		return s.objs[i], true
	}
	return nil, false
}

func (s *Scene) Snapshot() ([]byte, error) {
	return annot.EncodePage(s.objs)
}

func (s *Scene) Restore(data []byte) error {
	if s.closed {
		return nil
	}
	objs, err := annot.DecodePage(data)
	if err != nil {
		return err
	}
	s.objs = objs
	s.notify()
	return nil
}

func (s *Scene) OnModified(fn func()) {
	if s.closed {
		return
	}
	s.modified = fn
}

// Close unregisters the callback and drops the scene content.
func (s *Scene) Close() {
	s.closed = true
	s.modified = nil
	s.objs = nil
}
