// Package memdoc is the in-memory reference implementation of the document
// engine contract. Pages are rasters; rotation, overlays and form flattening
// operate on real pixels, which makes redaction irreversibility observable in
// the serialized output. It backs the test suite and the CLI and documents
// the behavior expected of adapters over real document libraries.
package memdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
)

const magic = "memdoc/1"

type fileFormat struct {
	Magic  string          `json:"magic"`
	Pages  []pageRecord    `json:"pages"`
	Fields []doc.FormField `json:"fields"`
}

type pageRecord struct {
	PNG     []byte           `json:"png"`
	Regions []doc.TextRegion `json:"regions,omitempty"`
}

// NewDocument serializes rasters, fields and detected-text regions into the
// memdoc byte format. regionsByPage is keyed by 0-based page index.
func NewDocument(pageImages []image.Image, fields []doc.FormField, regionsByPage map[int][]doc.TextRegion) ([]byte, error) {
	ff := fileFormat{Magic: magic, Fields: fields}
	for i, img := range pageImages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i, err)
		}
		ff.Pages = append(ff.Pages, pageRecord{PNG: buf.Bytes(), Regions: regionsByPage[i]})
	}
	return json.Marshal(ff)
}

// Engine implements doc.Engine over the memdoc format.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Load(ctx context.Context, data []byte) (doc.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if ff.Magic != magic {
		return nil, fmt.Errorf("unsupported document format %q", ff.Magic)
	}
	h := &Handle{fields: append([]doc.FormField(nil), ff.Fields...)}
	for i, rec := range ff.Pages {
		img, err := png.Decode(bytes.NewReader(rec.PNG))
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i, err)
		}
		h.pages = append(h.pages, &pageState{
			img:     toNRGBA(img),
			regions: append([]doc.TextRegion(nil), rec.Regions...),
		})
	}
	return h, nil
}

type pageState struct {
	img     *image.NRGBA
	regions []doc.TextRegion
}

// Handle implements doc.Handle.
type Handle struct {
	pages  []*pageState
	fields []doc.FormField
}

func (h *Handle) PageCount() int { return len(h.pages) }

func (h *Handle) page(i int) (*pageState, error) {
	if i < 0 || i >= len(h.pages) {
		return nil, doc.ErrPageOutOfRange
	}
	return h.pages[i], nil
}

func (h *Handle) PageSize(page int) (coords.PageSpace, error) {
	p, err := h.page(page)
	if err != nil {
		return coords.PageSpace{}, err
	}
	b := p.img.Bounds()
	return coords.PageSpace{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

func (h *Handle) Rotate(page int, degrees int) error {
	p, err := h.page(page)
	if err != nil {
		return err
	}
	if degrees%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90", degrees)
	}
	turns := ((degrees/90)%4 + 4) % 4
	for i := 0; i < turns; i++ {
		p.img = rotate90CW(p.img)
	}
	return nil
}

func (h *Handle) Overlay(page int, img image.Image) error {
	p, err := h.page(page)
	if err != nil {
		return err
	}
	dst := p.img.Bounds()
	src := img
	if img.Bounds().Dx() != dst.Dx() || img.Bounds().Dy() != dst.Dy() {
		scaled := image.NewNRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		src = scaled
	}
	draw.Draw(p.img, dst, src, src.Bounds().Min, draw.Over)
	return nil
}

func (h *Handle) MovePage(from, to int) error {
	n := len(h.pages)
	if from < 0 || from >= n || to < 0 || to >= n {
		return doc.ErrPageOutOfRange
	}
	if from == to {
		return nil
	}
	moved := h.pages[from]
	rest := append(append([]*pageState(nil), h.pages[:from]...), h.pages[from+1:]...)
	h.pages = append(append(append([]*pageState(nil), rest[:to]...), moved), rest[to:]...)
	return nil
}

func (h *Handle) RemovePage(page int) error {
	if page < 0 || page >= len(h.pages) {
		return doc.ErrPageOutOfRange
	}
	h.pages = append(h.pages[:page], h.pages[page+1:]...)
	return nil
}

func (h *Handle) FillField(f doc.FormField) error {
	for i := range h.fields {
		if h.fields[i].ID == f.ID || (f.ID == "" && h.fields[i].Name == f.Name) {
			if h.fields[i].MaxLen > 0 && len(f.Value) > h.fields[i].MaxLen {
				return fmt.Errorf("field %q: value exceeds max length %d", f.Name, h.fields[i].MaxLen)
			}
			if h.fields[i].ReadOnly {
				return fmt.Errorf("field %q is read-only", f.Name)
			}
			h.fields[i].Value = f.Value
			return nil
		}
	}
	return fmt.Errorf("%w: %q", doc.ErrUnknownField, f.Name)
}

// Flatten paints every filled field value onto its page raster and drops the
// interactive field list.
func (h *Handle) Flatten() error {
	for _, f := range h.fields {
		p, err := h.page(f.Page)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		paintField(p.img, f)
	}
	h.fields = nil
	return nil
}

func (h *Handle) Save(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ff := fileFormat{Magic: magic, Fields: h.fields}
	for i, p := range h.pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i, err)
		}
		ff.Pages = append(ff.Pages, pageRecord{PNG: buf.Bytes(), Regions: p.regions})
	}
	return json.Marshal(ff)
}

// paintField draws a field's value into its rect. Field rects are native
// space (origin bottom-left); raster rows grow downward.
func paintField(img *image.NRGBA, f doc.FormField) {
	if f.Value == "" {
		return
	}
	pageH := float64(img.Bounds().Dy())
	x := int(f.Rect.X)
	baseline := int(pageH - f.Rect.Y - 2)

	switch f.Kind {
	case doc.FieldCheckbox, doc.FieldRadio:
		if isChecked(f.Value) {
			drawString(img, "X", x+2, baseline)
		}
	default:
		drawString(img, f.Value, x+2, baseline)
	}
}

func isChecked(value string) bool {
	switch strings.ToLower(value) {
	case "on", "yes", "true", "checked", "1":
		return true
	}
	return false
}

func drawString(img *image.NRGBA, s string, x, baselineY int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baselineY),
	}
	d.DrawString(s)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}

func rotate90CW(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetNRGBA(h-1-y, x, src.NRGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
