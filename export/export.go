// Package export implements the flatten pipeline: it replays the session's
// final state (field values, page rotations, reorders and deletions, and the
// rasterized annotation layer) onto a fresh copy of the original document and
// saves the result. Redaction objects come out as fully opaque fills; the
// output contains no trace of the covered content.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/observability"
	"github.com/shockz09/pdfmark/pages"
	"github.com/shockz09/pdfmark/raster"
)

// Config tunes the export pipeline.
type Config struct {
	// Supersample multiplies render-space dimensions for the annotation
	// raster. Zero means the default 2.0.
	Supersample float64
	// RedactionFill overrides the opaque fill painted for redactions.
	RedactionFill annot.Color
	// FontData optionally replaces the default text font.
	FontData []byte
}

// Input is the session state the pipeline consumes.
type Input struct {
	Original []byte
	// States lists pages in display order, including delete-flagged ones.
	States []pages.State
	// ObjectsByPage keys annotation objects by display page number.
	ObjectsByPage map[int][]annot.Object
	Fields        []doc.FormField
}

// Exporter runs exports against a document engine.
type Exporter struct {
	engine doc.Engine
	log    observability.Logger
}

func New(engine doc.Engine, log observability.Logger) *Exporter {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Exporter{engine: engine, log: log}
}

// CountRedactions reports how many redaction objects an export would bake
// in, for the caller's confirmation prompt.
func CountRedactions(in Input) int {
	return annot.CountRedactions(in.ObjectsByPage)
}

// Export produces the final document bytes. Individual field-fill and
// per-page raster failures are logged and skipped so one bad element cannot
// sink the rest of the document; a load or save failure aborts the export.
func (e *Exporter) Export(ctx context.Context, in Input, cfg Config) ([]byte, error) {
	start := time.Now()
	h, err := e.engine.Load(ctx, in.Original)
	if err != nil {
		return nil, fmt.Errorf("export: load original: %w", err)
	}

	e.fillFields(h, in.Fields)
	if err := e.reorder(h, in.States); err != nil {
		return nil, err
	}
	e.overlayPages(h, in, cfg)
	e.rotatePages(h, in.States)
	e.removeDeleted(h, in.States)

	out, err := h.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: save: %w", err)
	}
	e.log.Info("export complete",
		observability.Int("pages", survivorCount(in.States)),
		observability.Int("redactions", CountRedactions(in)),
		observability.Duration(observability.MetricExportTime, time.Since(start)))
	return out, nil
}

// fillFields writes user-entered values and flattens the form. A field that
// refuses its value is logged and skipped; flatten still runs for the rest,
// and runs even when no value was entered so the output carries no
// interactive fields.
func (e *Exporter) fillFields(h doc.Handle, fields []doc.FormField) {
	if len(fields) == 0 {
		return
	}
	filled := 0
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if err := h.FillField(f); err != nil {
			e.log.Warn("field skipped",
				observability.String("field", f.Name), observability.Error("err", err))
			continue
		}
		filled++
	}
	if err := h.Flatten(); err != nil {
		e.log.Warn("form flatten failed", observability.Error("err", err))
		return
	}
	e.log.Debug("form flattened", observability.Int(observability.MetricFieldsFilled, filled))
}

// reorder rearranges document pages to match the display order. States carry
// each page's original source index; the document is walked left to right,
// moving the wanted source page into position.
func (e *Exporter) reorder(h doc.Handle, states []pages.State) error {
	order := make([]int, h.PageCount())
	for i := range order {
		order[i] = i
	}
	for i, st := range states {
		j := indexOf(order, st.Source)
		if j < 0 {
			return fmt.Errorf("export: page source %d not found", st.Source)
		}
		if j == i {
			continue
		}
		if err := h.MovePage(j, i); err != nil {
			return fmt.Errorf("export: reorder page %d: %w", st.PageNumber, err)
		}
		src := order[j]
		order = append(order[:j], order[j+1:]...)
		order = append(order[:i], append([]int{src}, order[i:]...)...)
	}
	return nil
}

func indexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

// overlayPages rasterizes each page's annotation objects and composites the
// raster over the page content. Objects live in the page's unrotated frame,
// so the overlay happens before the rotation pass and rotates with the page.
// A raster failure leaves that page without its annotation layer and is
// logged; other pages are unaffected.
func (e *Exporter) overlayPages(h doc.Handle, in Input, cfg Config) {
	for i, st := range in.States {
		if st.Deleted {
			continue
		}
		objs := in.ObjectsByPage[st.PageNumber]
		if len(objs) == 0 {
			continue
		}
		space, err := h.PageSize(i)
		if err != nil {
			e.log.Error("page size unavailable",
				observability.Int("page", st.PageNumber), observability.Error("err", err))
			continue
		}
		w, hgt := space.RenderSize(1.0)
		img, err := raster.Rasterize(objs, w, hgt, raster.Options{
			Supersample:   cfg.Supersample,
			RedactionFill: cfg.RedactionFill,
			FontData:      cfg.FontData,
		})
		if err != nil {
			e.log.Error("annotation raster failed",
				observability.Int("page", st.PageNumber), observability.Error("err", err))
			continue
		}
		if err := h.Overlay(i, img); err != nil {
			e.log.Error("annotation overlay failed",
				observability.Int("page", st.PageNumber), observability.Error("err", err))
		}
	}
}

func (e *Exporter) rotatePages(h doc.Handle, states []pages.State) {
	for i, st := range states {
		if st.Deleted || st.Rotation == 0 {
			continue
		}
		if err := h.Rotate(i, st.Rotation); err != nil {
			e.log.Error("page rotation failed",
				observability.Int("page", st.PageNumber), observability.Error("err", err))
		}
	}
}

// removeDeleted drops delete-flagged pages back to front, so earlier removals
// never shift the indices of later ones.
func (e *Exporter) removeDeleted(h doc.Handle, states []pages.State) {
	for i := len(states) - 1; i >= 0; i-- {
		if !states[i].Deleted {
			continue
		}
		if err := h.RemovePage(i); err != nil {
			e.log.Error("page removal failed",
				observability.Int("page", states[i].PageNumber), observability.Error("err", err))
		}
	}
}

func survivorCount(states []pages.State) int {
	n := 0
	for _, st := range states {
		if !st.Deleted {
			n++
		}
	}
	return n
}
