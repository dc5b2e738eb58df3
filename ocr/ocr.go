// Package ocr detects text regions on scanned pages with Tesseract, feeding
// the click-to-edit affordance for documents whose text layer is missing.
// Detection is best effort: a failure leaves the page without regions and is
// reported to the caller, never fatal to the session.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/observability"
)

// box is one recognized text line in image pixel coordinates.
type box struct {
	Text       string
	Rect       image.Rectangle
	Confidence float64 // 0..1
}

// recognizeFunc runs OCR over PNG bytes and returns line boxes.
type recognizeFunc func(ctx context.Context, png []byte) ([]box, error)

// Detector turns rendered page images into doc.TextRegion lists.
type Detector struct {
	recognize     recognizeFunc
	languages     []string
	minConfidence float64
	log           observability.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLanguages sets the Tesseract language list.
func WithLanguages(langs ...string) Option {
	return func(d *Detector) { d.languages = langs }
}

// WithMinConfidence drops lines recognized below the threshold (0..1).
func WithMinConfidence(c float64) Option {
	return func(d *Detector) { d.minConfidence = c }
}

func WithLogger(log observability.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// New returns a Tesseract-backed detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		minConfidence: 0.3,
		log:           observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.recognize == nil {
		d.recognize = d.tesseractRecognize
	}
	return d
}

// DetectRegions recognizes text lines in a page image rendered at the given
// scale factor over native space and maps them into render space at zoom 1.
func (d *Detector) DetectRegions(ctx context.Context, img image.Image, scale float64) ([]doc.TextRegion, error) {
	if scale <= 0 {
		scale = 1
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	boxes, err := d.recognize(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("recognize page: %w", err)
	}

	// Image pixels are native x scale; render space at zoom 1 is native x the
	// base render factor.
	k := coords.RenderBase / scale
	var regions []doc.TextRegion
	dropped := 0
	for _, b := range boxes {
		if b.Text == "" {
			continue
		}
		if b.Confidence < d.minConfidence {
			dropped++
			continue
		}
		h := float64(b.Rect.Dy()) * k
		regions = append(regions, doc.TextRegion{
			Rect: coords.Rect{
				X: float64(b.Rect.Min.X) * k,
				Y: float64(b.Rect.Min.Y) * k,
				W: float64(b.Rect.Dx()) * k,
				H: h,
			},
			Text: b.Text,
			// Line boxes include ascender and descender space; the visible
			// glyph size is a bit smaller.
			FontSize: h * 0.75,
		})
	}
	if dropped > 0 {
		d.log.Debug("low-confidence lines dropped", observability.Int("count", dropped))
	}
	return regions, nil
}

// tesseractRecognize is the production recognizer over gosseract.
func (d *Detector) tesseractRecognize(ctx context.Context, pngData []byte) ([]box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(d.languages) > 0 {
		if err := c.SetLanguage(d.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	bounds, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	boxes := make([]box, 0, len(bounds))
	for _, b := range bounds {
		boxes = append(boxes, box{
			Text:       b.Word,
			Rect:       b.Box,
			Confidence: b.Confidence / 100.0,
		})
	}
	return boxes, nil
}
