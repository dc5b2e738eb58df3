package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/observability"
)

// renderGuard is a generation counter over (page, zoom). Every change bumps
// the generation; an async render carries the generation it started under and
// its result is discarded if a newer one has started since.
type renderGuard struct {
	gen uint64
}

func (g *renderGuard) bump() uint64 {
	g.gen++
	return g.gen
}

func (g *renderGuard) live(token uint64) bool { return g.gen == token }

// RenderTicket identifies one in-flight page render.
type RenderTicket struct {
	Gen  uint64
	Page int
	Zoom float64
}

// StartRender registers an async render of the current page at the current
// zoom and returns its ticket.
func (s *Session) StartRender() RenderTicket {
	return RenderTicket{Gen: s.guard.gen, Page: s.current, Zoom: s.zoom}
}

// RenderPage performs the render for a ticket using the session's renderer.
func (s *Session) RenderPage(ctx context.Context, t RenderTicket) (*doc.RenderedPage, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("no renderer configured")
	}
	st, err := s.pageMgr.Get(t.Page)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rp, err := s.renderer.RenderPage(ctx, s.handle, st.Source, t.Zoom)
	if err != nil {
		return nil, err
	}
	s.log.Debug("page rendered",
		observability.Int("page", t.Page),
		observability.Float64("zoom", t.Zoom),
		observability.Duration(observability.MetricPageRasterTime, time.Since(start)))
	return rp, nil
}

// ApplyRender accepts a completed render if its ticket is still current.
// Stale results (the page or zoom changed while rendering) are discarded and
// the method reports false. An accepted render refreshes the page's detected
// text regions and the field set.
func (s *Session) ApplyRender(t RenderTicket, rp *doc.RenderedPage) bool {
	if s.closed || !s.guard.live(t.Gen) {
		return false
	}
	if len(rp.Regions) > 0 {
		s.regions[t.Page] = rp.Regions
	}
	if st, err := s.pageMgr.Get(t.Page); err == nil {
		s.mergeFields(st.Source, rp.Fields)
	}
	return true
}

// mergeFields replaces the rendered source page's field entries with the
// fresh set, leaving other pages' fields alone and keeping user-entered
// values when the collaborator re-reports a field.
func (s *Session) mergeFields(sourcePage int, fresh []doc.FormField) {
	byID := make(map[string]string, len(s.fields))
	var kept []doc.FormField
	for _, f := range s.fields {
		if f.Value != "" {
			byID[f.ID] = f.Value
		}
		if f.Page != sourcePage {
			kept = append(kept, f)
		}
	}
	for _, f := range fresh {
		if f.Page != sourcePage {
			continue
		}
		if v, ok := byID[f.ID]; ok {
			f.Value = v
		}
		kept = append(kept, f)
	}
	s.fields = kept
	s.notifyFields()
}
