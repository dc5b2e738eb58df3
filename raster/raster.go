// Package raster draws a page's annotation objects onto a pixel canvas at
// export resolution. Object geometry is stored in render space; everything
// here is rescaled through the export transform before drawing.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
)

// Options configures rasterization.
type Options struct {
	// Supersample scales render space up to export space. Zero means 2.0.
	Supersample float64
	// RedactionFill is the opaque color substituted for redaction objects.
	// A zero value means opaque black.
	RedactionFill annot.Color
	// FontData is an optional TTF to use for text objects; goregular is the
	// default.
	FontData []byte
}

func (o Options) supersample() float64 {
	if o.Supersample <= 0 {
		return 2.0
	}
	return o.Supersample
}

func (o Options) redactionFill() annot.Color {
	if o.RedactionFill.A == 0 {
		return annot.Black
	}
	return o.RedactionFill
}

// Rasterize draws objs onto a transparent canvas sized for a page whose
// render-space dimensions are renderW x renderH. Objects are drawn in
// sequence order, bottom to top.
func Rasterize(objs []annot.Object, renderW, renderH float64, opts Options) (image.Image, error) {
	ss := opts.supersample()
	w := int(math.Ceil(renderW * ss))
	h := int(math.Ceil(renderH * ss))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster size %dx%d is empty", w, h)
	}

	fontData := opts.FontData
	if fontData == nil {
		fontData = goregular.TTF
	}
	ttf, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContextForImage(image.NewNRGBA(image.Rect(0, 0, w, h)))
	r := &rasterizer{dc: dc, ss: ss, font: ttf, opts: opts}
	for _, o := range objs {
		if err := r.draw(o); err != nil {
			return nil, fmt.Errorf("draw %s object %s: %w", o.ObjectKind(), o.ObjectID(), err)
		}
	}
	return dc.Image(), nil
}

type rasterizer struct {
	dc   *gg.Context
	ss   float64
	font *truetype.Font
	opts Options
}

func (r *rasterizer) setColor(c annot.Color, opacity float64) {
	a := float64(c.A) / 255
	if opacity > 0 {
		a *= opacity
	}
	r.dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, a)
}

// withRotation applies the object's rotation about its bounds center for the
// duration of fn.
func (r *rasterizer) withRotation(o annot.Object, fn func()) {
	angle := o.Rotation()
	if angle == 0 {
		fn()
		return
	}
	c := coords.ToExport(o.Bounds().Center(), r.ss)
	r.dc.Push()
	r.dc.RotateAbout(gg.Radians(angle), c.X, c.Y)
	fn()
	r.dc.Pop()
}

func (r *rasterizer) draw(o annot.Object) error {
	b := coords.RectToExport(o.Bounds().Normalize(), r.ss)

	var err error
	r.withRotation(o, func() {
		switch v := o.(type) {
		case *annot.Text:
			err = r.drawText(v, b)
		case *annot.Path:
			r.drawPath(v)
		case *annot.Rect:
			r.drawShape(b, v.StrokeWidth, v.Stroke, v.Fill, v.Opacity, false)
		case *annot.Ellipse:
			r.drawShape(b, v.StrokeWidth, v.Stroke, v.Fill, v.Opacity, true)
		case *annot.Line:
			r.drawLine(v.From, v.To, v.StrokeWidth, v.Color, v.Opacity)
		case *annot.Arrow:
			r.drawArrow(v)
		case *annot.Highlight:
			r.setColor(v.Color, v.Opacity)
			r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			r.dc.Fill()
		case *annot.Whiteout:
			r.setColor(annot.White, 0)
			r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			r.dc.Fill()
		case *annot.Redaction:
			// Substituted with a fully opaque fill; nothing of the content
			// underneath may survive in the composited output.
			fill := r.opts.redactionFill()
			r.dc.SetRGBA255(int(fill.R), int(fill.G), int(fill.B), 255)
			r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			r.dc.Fill()
		case *annot.Stamp:
			err = r.drawStamp(v, b)
		case *annot.Signature:
			err = r.drawPNG(v.PNG, b)
		case *annot.Image:
			err = r.drawPNG(v.PNG, b)
		default:
			err = fmt.Errorf("unknown annotation kind %q", o.ObjectKind())
		}
	})
	return err
}

func (r *rasterizer) drawText(t *annot.Text, b coords.Rect) error {
	size := t.FontSize * r.ss
	if size <= 0 {
		size = 16 * r.ss
	}
	face := truetype.NewFace(r.font, &truetype.Options{Size: size})
	r.dc.SetFontFace(face)
	r.setColor(t.Color, t.Opacity)

	lineHeight := size * 1.2
	y := b.Y + size
	for _, line := range splitLines(t.Text) {
		r.dc.DrawString(line, b.X, y)
		w, _ := r.dc.MeasureString(line)
		if t.Underline {
			r.strokeRule(b.X, y+size*0.12, w, size/14)
		}
		if t.Strikethrough {
			r.strokeRule(b.X, y-size*0.3, w, size/14)
		}
		y += lineHeight
	}
	return nil
}

func (r *rasterizer) strokeRule(x, y, w, thickness float64) {
	r.dc.SetLineWidth(math.Max(1, thickness))
	r.dc.DrawLine(x, y, x+w, y)
	r.dc.Stroke()
}

func (r *rasterizer) drawPath(p *annot.Path) {
	if len(p.Points) < 2 {
		return
	}
	r.setColor(p.Color, p.Opacity)
	r.dc.SetLineWidth(p.StrokeWidth * r.ss)
	first := coords.ToExport(p.Points[0], r.ss)
	r.dc.MoveTo(first.X, first.Y)
	for _, pt := range p.Points[1:] {
		ep := coords.ToExport(pt, r.ss)
		r.dc.LineTo(ep.X, ep.Y)
	}
	r.dc.Stroke()
}

func (r *rasterizer) drawShape(b coords.Rect, strokeWidth float64, stroke annot.Color, fill *annot.Color, opacity float64, ellipse bool) {
	if ellipse {
		r.dc.DrawEllipse(b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2)
	} else {
		r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	}
	if fill != nil {
		r.setColor(*fill, opacity)
		r.dc.FillPreserve()
	}
	r.setColor(stroke, opacity)
	r.dc.SetLineWidth(strokeWidth * r.ss)
	r.dc.Stroke()
}

func (r *rasterizer) drawLine(from, to coords.Point, strokeWidth float64, c annot.Color, opacity float64) {
	ef := coords.ToExport(from, r.ss)
	et := coords.ToExport(to, r.ss)
	r.setColor(c, opacity)
	r.dc.SetLineWidth(strokeWidth * r.ss)
	r.dc.DrawLine(ef.X, ef.Y, et.X, et.Y)
	r.dc.Stroke()
}

func (r *rasterizer) drawArrow(a *annot.Arrow) {
	r.drawLine(a.From, a.To, a.StrokeWidth, a.Color, a.Opacity)
	tip := coords.ToExport(a.Head[0], r.ss)
	left := coords.ToExport(a.Head[1], r.ss)
	right := coords.ToExport(a.Head[2], r.ss)
	r.setColor(a.Color, a.Opacity)
	r.dc.MoveTo(tip.X, tip.Y)
	r.dc.LineTo(left.X, left.Y)
	r.dc.LineTo(right.X, right.Y)
	r.dc.ClosePath()
	r.dc.Fill()
}

func (r *rasterizer) drawStamp(s *annot.Stamp, b coords.Rect) error {
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	// Scale about the center so an interrupted placement animation still
	// rasterizes around the committed position.
	c := b.Center()
	b = coords.Rect{X: c.X - b.W*scale/2, Y: c.Y - b.H*scale/2, W: b.W * scale, H: b.H * scale}

	r.setColor(annot.RedactRed, s.Opacity)
	r.dc.SetLineWidth(2 * r.ss)
	r.dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, math.Min(b.W, b.H)*0.15)
	r.dc.Stroke()

	size := b.H * 0.5
	if size <= 0 {
		return nil
	}
	face := truetype.NewFace(r.font, &truetype.Options{Size: size})
	r.dc.SetFontFace(face)
	r.dc.DrawStringAnchored(s.Name, b.X+b.W/2, b.Y+b.H/2, 0.5, 0.35)
	return nil
}

func (r *rasterizer) drawPNG(data []byte, b coords.Rect) error {
	if len(data) == 0 || b.W <= 0 || b.H <= 0 {
		return nil
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode embedded image: %w", err)
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, int(math.Ceil(b.W)), int(math.Ceil(b.H))))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	r.dc.DrawImage(scaled, int(math.Round(b.X)), int(math.Round(b.Y)))
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
