// Package editor implements the document editing session: the root aggregate
// owning the original bytes, page states, per-page annotation objects and
// histories, plus the tool input state machine that turns pointer gestures
// into annotation edits.
//
// All geometry handed to the session (pointer points, viewport) is in render
// space at the current zoom; the session normalizes to zoom 1 before storing,
// so stored object coordinates stay comparable across zoom changes.
package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/canvas"
	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/draft"
	"github.com/shockz09/pdfmark/export"
	"github.com/shockz09/pdfmark/history"
	"github.com/shockz09/pdfmark/observability"
	"github.com/shockz09/pdfmark/pages"
)

// Session owns one document's editing state from load to export.
type Session struct {
	engine   doc.Engine
	renderer doc.Renderer
	original []byte
	handle   doc.Handle

	pageMgr   *pages.Manager
	objects   map[int][]annot.Object // page number -> ordered objects
	regions   map[int][]doc.TextRegion
	histories map[int]*history.Stack
	fields    []doc.FormField

	current  int // 1-based page number
	zoom     float64
	viewport *coords.Rect
	tool     Tool
	drag     dragState
	editing  string // id of the text object in edit mode, if any

	selected  string
	clipboard annot.Object

	canvasFactory canvas.Factory
	canvas        canvas.Canvas

	guard renderGuard

	adapter    *draft.Adapter
	historyCap int
	log        observability.Logger

	onObjects  func(page int, objs []annot.Object)
	onUndoRedo func(canUndo, canRedo bool)
	onFields   func(fields []doc.FormField)

	closed bool
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(log observability.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCanvasFactory installs the canvas constructor used for each page view.
// The default is the in-memory scene.
func WithCanvasFactory(f canvas.Factory) Option {
	return func(s *Session) {
		if f != nil {
			s.canvasFactory = f
		}
	}
}

// WithHistoryCapacity bounds the per-page undo stack.
func WithHistoryCapacity(n int) Option {
	return func(s *Session) { s.historyCap = n }
}

// WithObjectsListener registers the objects-changed callback.
func WithObjectsListener(fn func(page int, objs []annot.Object)) Option {
	return func(s *Session) { s.onObjects = fn }
}

// WithUndoRedoListener registers the undo/redo availability callback.
func WithUndoRedoListener(fn func(canUndo, canRedo bool)) Option {
	return func(s *Session) { s.onUndoRedo = fn }
}

// WithFormFieldsListener registers the form-fields callback.
func WithFormFieldsListener(fn func(fields []doc.FormField)) Option {
	return func(s *Session) { s.onFields = fn }
}

// NewSession loads the original document and creates a fresh session on its
// first page. A load failure surfaces to the caller and no session exists.
func NewSession(ctx context.Context, engine doc.Engine, renderer doc.Renderer, data []byte, opts ...Option) (*Session, error) {
	s := newSessionShell(engine, renderer, opts)
	h, err := engine.Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	s.handle = h
	s.original = append([]byte(nil), data...)
	s.pageMgr = pages.NewManager(h.PageCount())
	if err := s.loadMetadata(ctx); err != nil {
		return nil, err
	}
	s.openPage(1)
	return s, nil
}

// NewSessionFromDraft reconstructs a session from a persisted draft.
func NewSessionFromDraft(ctx context.Context, engine doc.Engine, renderer doc.Renderer, d *draft.Draft, opts ...Option) (*Session, error) {
	s := newSessionShell(engine, renderer, opts)
	h, err := engine.Load(ctx, d.OriginalBytes)
	if err != nil {
		return nil, fmt.Errorf("load document from draft: %w", err)
	}
	s.handle = h
	s.original = append([]byte(nil), d.OriginalBytes...)
	s.pageMgr = pages.FromStates(d.PageStates)
	for page, raw := range d.AnnotationsByPage {
		objs, err := annot.DecodePage(raw)
		if err != nil {
			return nil, fmt.Errorf("decode draft annotations for page %d: %w", page, err)
		}
		s.objects[page] = objs
	}
	if err := s.loadMetadata(ctx); err != nil {
		return nil, err
	}
	page := d.CurrentPage
	if page < 1 || page > s.pageMgr.Count() {
		page = 1
	}
	s.openPage(page)
	return s, nil
}

func newSessionShell(engine doc.Engine, renderer doc.Renderer, opts []Option) *Session {
	s := &Session{
		engine:        engine,
		renderer:      renderer,
		objects:       map[int][]annot.Object{},
		regions:       map[int][]doc.TextRegion{},
		histories:     map[int]*history.Stack{},
		zoom:          1.0,
		tool:          ToolSelect,
		historyCap:    history.DefaultCapacity,
		log:           observability.NopLogger{},
		canvasFactory: func() canvas.Canvas { return canvas.NewScene() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadMetadata collects form fields and detected text regions from the
// render collaborator. A render failure on one page leaves that page without
// click-to-edit regions but does not fail the load.
func (s *Session) loadMetadata(ctx context.Context) error {
	if s.renderer == nil {
		return nil
	}
	for _, st := range s.pageMgr.States() {
		rp, err := s.renderer.RenderPage(ctx, s.handle, st.Source, 1.0)
		if err != nil {
			s.log.Warn("page metadata unavailable",
				observability.Int("page", st.PageNumber), observability.Error("err", err))
			continue
		}
		s.fields = append(s.fields, rp.Fields...)
		if len(rp.Regions) > 0 {
			s.regions[st.PageNumber] = rp.Regions
		}
	}
	s.notifyFields()
	return nil
}

// openPage disposes the previous canvas, installs a fresh one for the page,
// and restores the page's objects onto it. Disposal strictly precedes the
// construction of the replacement so no handler of the old view can touch
// the new one.
func (s *Session) openPage(page int) {
	if s.canvas != nil {
		s.canvas.Close()
		s.canvas = nil
	}
	s.current = page
	s.selected = ""
	s.editing = ""
	s.drag = dragState{}
	s.guard.bump()

	s.canvas = s.canvasFactory()
	for _, o := range s.objects[page] {
		s.canvas.Add(o)
	}
	// Capture the pre-edit baseline now; deferring it to the first commit
	// would snapshot the page with that edit already applied.
	s.historyFor(page)
	s.notifyUndoRedo()
}

// CurrentPage returns the 1-based page number being edited.
func (s *Session) CurrentPage() int { return s.current }

func (s *Session) Zoom() float64 { return s.zoom }

// PageCount reports the total page count including delete-flagged pages.
func (s *Session) PageCount() int { return s.pageMgr.Count() }

// SetPage switches the session to another page. Undo history is scoped per
// page; switching never merges histories.
func (s *Session) SetPage(page int) error {
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if page < 1 || page > s.pageMgr.Count() {
		return fmt.Errorf("page %d out of range 1..%d", page, s.pageMgr.Count())
	}
	if page == s.current {
		return nil
	}
	s.openPage(page)
	s.markDirty()
	return nil
}

// SetZoom changes the view zoom. Stored object geometry is unaffected; only
// incoming pointer coordinates are interpreted differently.
func (s *Session) SetZoom(zoom float64) {
	if zoom <= 0 {
		return
	}
	s.zoom = zoom
	s.guard.bump()
}

// Objects returns a deep copy of a page's object sequence.
func (s *Session) Objects(page int) []annot.Object {
	return annot.ClonePage(s.objects[page])
}

// FormFields returns the detected interactive fields.
func (s *Session) FormFields() []doc.FormField {
	return append([]doc.FormField(nil), s.fields...)
}

// SetFieldValue records direct user input into a rendered field overlay.
func (s *Session) SetFieldValue(id, value string) error {
	for i := range s.fields {
		if s.fields[i].ID == id {
			s.fields[i].Value = value
			s.notifyFields()
			s.markDirty()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", doc.ErrUnknownField, id)
}

// TextRegions exposes the detected source-text regions for a page.
func (s *Session) TextRegions(page int) []doc.TextRegion {
	return append([]doc.TextRegion(nil), s.regions[page]...)
}

// SetTextRegions installs externally supplied detected-text regions (e.g.
// from an OCR pass) for a page.
func (s *Session) SetTextRegions(page int, regions []doc.TextRegion) {
	s.regions[page] = append([]doc.TextRegion(nil), regions...)
}

// Selected returns the selected object on the current page, if any.
func (s *Session) Selected() (annot.Object, bool) {
	if s.selected == "" {
		return nil, false
	}
	return s.findObject(s.selected)
}

func (s *Session) findObject(id string) (annot.Object, bool) {
	for _, o := range s.objects[s.current] {
		if o.ObjectID() == id {
			return o, true
		}
	}
	return nil, false
}

// historyFor returns the page's undo stack, creating it with the page's
// current state as the baseline snapshot.
func (s *Session) historyFor(page int) *history.Stack {
	h, ok := s.histories[page]
	if !ok {
		h = history.New(s.historyCap)
		if snap, err := annot.EncodePage(s.objects[page]); err == nil {
			h.Commit(snap)
		}
		s.histories[page] = h
	}
	return h
}

// commit snapshots the current page after a completed edit: it pushes the
// history entry, notifies listeners, and schedules a draft write. Object
// creation and the history commit are atomic from the caller's perspective;
// in-progress drag objects are never committed.
func (s *Session) commit() {
	page := s.current
	snap, err := annot.EncodePage(s.objects[page])
	if err != nil {
		s.log.Error("snapshot failed", observability.Int("page", page), observability.Error("err", err))
		return
	}
	h := s.historyFor(page)
	h.Commit(snap)
	s.log.Debug("edit committed",
		observability.Int("page", page),
		observability.Int(observability.MetricHistoryDepth, h.Len()),
		observability.Int(observability.MetricObjectCount, len(s.objects[page])))
	s.notifyObjects(page)
	s.notifyUndoRedo()
	s.markDirty()
}

// Undo restores the previous snapshot of the current page. It reports false
// at the bottom of the stack.
func (s *Session) Undo() bool {
	snap, ok := s.historyFor(s.current).Undo()
	if !ok {
		return false
	}
	s.restoreSnapshot(snap)
	return true
}

// Redo reapplies the next snapshot of the current page.
func (s *Session) Redo() bool {
	snap, ok := s.historyFor(s.current).Redo()
	if !ok {
		return false
	}
	s.restoreSnapshot(snap)
	return true
}

func (s *Session) CanUndo() bool { return s.historyFor(s.current).CanUndo() }
func (s *Session) CanRedo() bool { return s.historyFor(s.current).CanRedo() }

func (s *Session) restoreSnapshot(snap []byte) {
	objs, err := annot.DecodePage(snap)
	if err != nil {
		s.log.Error("snapshot restore failed", observability.Error("err", err))
		return
	}
	s.objects[s.current] = objs
	s.selected = ""
	s.editing = ""
	if s.canvas != nil {
		if err := s.canvas.Restore(snap); err != nil {
			s.log.Error("canvas restore failed", observability.Error("err", err))
		}
	}
	s.notifyObjects(s.current)
	s.notifyUndoRedo()
	s.markDirty()
}

// Copy places a clone of the selected object on the session clipboard. The
// clipboard is session state, never shared globally.
func (s *Session) Copy() bool {
	o, ok := s.Selected()
	if !ok {
		return false
	}
	s.clipboard = o.Clone()
	return true
}

// Paste inserts the clipboard object slightly offset from the original.
func (s *Session) Paste() bool {
	if s.clipboard == nil {
		return false
	}
	o := s.clipboard.Clone()
	o.SetID(annot.NewID())
	annot.Translate(o, 16, 16)
	s.addObject(o)
	s.selected = o.ObjectID()
	s.commit()
	return true
}

// DeleteSelected removes the selected object and commits.
func (s *Session) DeleteSelected() bool {
	if s.selected == "" {
		return false
	}
	id := s.selected
	objs := s.objects[s.current]
	for i, o := range objs {
		if o.ObjectID() == id {
			s.objects[s.current] = append(objs[:i], objs[i+1:]...)
			if s.canvas != nil {
				s.canvas.Remove(id)
			}
			s.selected = ""
			s.editing = ""
			s.commit()
			return true
		}
	}
	return false
}

// ToggleUnderline flips underline on the selected text object. It reports
// false (disabled) when no text object is selected.
func (s *Session) ToggleUnderline() bool {
	t, ok := s.selectedText()
	if !ok {
		return false
	}
	t.Underline = !t.Underline
	s.updateObject(t)
	s.commit()
	return true
}

// ToggleStrikethrough flips strikethrough on the selected text object.
func (s *Session) ToggleStrikethrough() bool {
	t, ok := s.selectedText()
	if !ok {
		return false
	}
	t.Strikethrough = !t.Strikethrough
	s.updateObject(t)
	s.commit()
	return true
}

func (s *Session) selectedText() (*annot.Text, bool) {
	o, ok := s.Selected()
	if !ok {
		return nil, false
	}
	t, ok := o.(*annot.Text)
	return t, ok
}

// CommitText ends edit mode on a text object, storing its final content.
// An empty text commit removes the object instead.
func (s *Session) CommitText(id, text string) error {
	o, ok := s.findObject(id)
	if !ok {
		return fmt.Errorf("no text object %q on page %d", id, s.current)
	}
	t, ok := o.(*annot.Text)
	if !ok {
		return fmt.Errorf("object %q is %s, not text", id, o.ObjectKind())
	}
	s.editing = ""
	if text == "" {
		s.selected = id
		s.DeleteSelected()
		return nil
	}
	t.Text = text
	s.updateObject(t)
	s.commit()
	return nil
}

// EditingText returns the id of the text object in edit mode, if any.
func (s *Session) EditingText() (string, bool) { return s.editing, s.editing != "" }

// RotatePage adds a rotation step to a page.
func (s *Session) RotatePage(page, delta int) error {
	if err := s.pageMgr.SetRotation(page, delta); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// TogglePageDeleted flips a page's deletion flag, refusing to delete the
// last surviving page.
func (s *Session) TogglePageDeleted(page int) bool {
	changed := s.pageMgr.ToggleDeleted(page)
	if changed {
		s.markDirty()
	}
	return changed
}

// ReorderPages moves the page at display index from to index to, renumbering
// page identities and remapping annotation ownership, histories and detected
// regions to the new numbers.
func (s *Session) ReorderPages(from, to int) error {
	remap, err := s.pageMgr.Reorder(from, to)
	if err != nil {
		return err
	}
	if remap == nil {
		return nil
	}
	s.objects = remapKeys(s.objects, remap)
	s.regions = remapKeys(s.regions, remap)
	s.histories = remapKeys(s.histories, remap)
	// Form fields stay keyed by source page index, untouched by display order.
	if next, ok := remap[s.current]; ok && next != s.current {
		s.openPage(next)
	}
	s.markDirty()
	return nil
}

func remapKeys[V any](m map[int]V, remap map[int]int) map[int]V {
	out := make(map[int]V, len(m))
	for page, v := range m {
		if next, ok := remap[page]; ok {
			out[next] = v
		} else {
			out[page] = v
		}
	}
	return out
}

// PageStates returns the current page states in display order.
func (s *Session) PageStates() []pages.State { return s.pageMgr.States() }

// CountRedactions reports the redaction objects across all pages, driving
// the pre-export confirmation prompt.
func (s *Session) CountRedactions() int { return annot.CountRedactions(s.objects) }

// Export runs the flatten pipeline over the session's final state and
// returns the output document bytes.
func (s *Session) Export(ctx context.Context, cfg export.Config) ([]byte, error) {
	exp := export.New(s.engine, s.log)
	return exp.Export(ctx, export.Input{
		Original:      s.original,
		States:        s.pageMgr.States(),
		ObjectsByPage: s.objects,
		Fields:        s.fields,
	}, cfg)
}

// CollectDraft captures the session as a persistable draft.
func (s *Session) CollectDraft() (*draft.Draft, error) {
	byPage := make(map[int]json.RawMessage, len(s.objects))
	for page, objs := range s.objects {
		if len(objs) == 0 {
			continue
		}
		data, err := annot.EncodePage(objs)
		if err != nil {
			return nil, err
		}
		byPage[page] = data
	}
	return &draft.Draft{
		OriginalBytes:     s.original,
		PageStates:        s.pageMgr.States(),
		AnnotationsByPage: byPage,
		CurrentPage:       s.current,
	}, nil
}

// AttachDraft wires a debounced persistence adapter to the session. Every
// completed edit schedules a write of CollectDraft through it.
func (s *Session) AttachDraft(store draft.Store, opts ...draft.AdapterOption) *draft.Adapter {
	opts = append([]draft.AdapterOption{draft.WithLogger(s.log)}, opts...)
	s.adapter = draft.NewAdapter(store, s.CollectDraft, opts...)
	return s.adapter
}

func (s *Session) markDirty() {
	if s.adapter != nil {
		s.adapter.MarkDirty()
	}
}

func (s *Session) notifyObjects(page int) {
	if s.onObjects != nil {
		s.onObjects(page, s.Objects(page))
	}
}

func (s *Session) notifyUndoRedo() {
	if s.onUndoRedo != nil {
		h := s.historyFor(s.current)
		s.onUndoRedo(h.CanUndo(), h.CanRedo())
	}
}

func (s *Session) notifyFields() {
	if s.onFields != nil {
		s.onFields(s.FormFields())
	}
}

// addObject appends to the current page and mirrors onto the canvas.
func (s *Session) addObject(o annot.Object) {
	s.objects[s.current] = append(s.objects[s.current], o)
	if s.canvas != nil {
		s.canvas.Add(o)
	}
}

func (s *Session) updateObject(o annot.Object) {
	if s.canvas != nil {
		s.canvas.Update(o)
	}
}

// Close disposes the canvas and the draft adapter. The session is unusable
// afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.canvas != nil {
		s.canvas.Close()
		s.canvas = nil
	}
	if s.adapter != nil {
		s.adapter.Close()
	}
}
