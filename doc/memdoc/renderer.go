package memdoc

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/shockz09/pdfmark/doc"
)

// Renderer implements doc.Renderer for memdoc handles.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) RenderPage(ctx context.Context, h doc.Handle, page int, scale float64) (*doc.RenderedPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mh, ok := h.(*Handle)
	if !ok {
		return nil, fmt.Errorf("renderer requires a memdoc handle, got %T", h)
	}
	p, err := mh.page(page)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}

	b := p.img.Bounds()
	w := int(float64(b.Dx())*scale + 0.5)
	ht := int(float64(b.Dy())*scale + 0.5)
	out := image.NewNRGBA(image.Rect(0, 0, w, ht))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), p.img, b, xdraw.Src, nil)

	var fields []doc.FormField
	for _, f := range mh.fields {
		if f.Page == page {
			fields = append(fields, f)
		}
	}
	return &doc.RenderedPage{
		Image:   out,
		Width:   w,
		Height:  ht,
		Fields:  fields,
		Regions: append([]doc.TextRegion(nil), p.regions...),
	}, nil
}
