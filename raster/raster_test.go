package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
)

func rasterAt(t *testing.T, img image.Image, x, y int) color.NRGBA {
	t.Helper()
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestRasterizeEmptyPage(t *testing.T) {
	img, err := Rasterize(nil, 100, 80, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if c := rasterAt(t, img, 50, 40); c.A != 0 {
		t.Fatalf("empty page should be transparent, got %+v", c)
	}
}

func TestRasterizeRejectsEmptySize(t *testing.T) {
	if _, err := Rasterize(nil, 0, 0, Options{}); err == nil {
		t.Fatal("expected error for empty raster")
	}
}

func TestRedactionIsFullyOpaque(t *testing.T) {
	objs := []annot.Object{
		&annot.Redaction{Base: annot.Base{ID: "r", Rect: coords.Rect{X: 10, Y: 10, W: 40, H: 20}}},
	}
	img, err := Rasterize(objs, 100, 80, Options{Supersample: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Every pixel of the redacted region must be opaque black at export
	// resolution.
	for y := 21; y < 59; y++ {
		for x := 21; x < 99; x++ {
			c := rasterAt(t, img, x, y)
			if c.A != 255 || c.R != 0 || c.G != 0 || c.B != 0 {
				t.Fatalf("pixel (%d,%d) = %+v, want opaque black", x, y, c)
			}
		}
	}
}

func TestRedactionFillConfigurable(t *testing.T) {
	objs := []annot.Object{
		&annot.Redaction{Base: annot.Base{ID: "r", Rect: coords.Rect{X: 0, Y: 0, W: 10, H: 10}}},
	}
	img, err := Rasterize(objs, 20, 20, Options{Supersample: 1, RedactionFill: annot.Color{R: 20, G: 20, B: 20, A: 255}})
	if err != nil {
		t.Fatal(err)
	}
	c := rasterAt(t, img, 5, 5)
	if c.A != 255 || c.R != 20 {
		t.Fatalf("pixel = %+v", c)
	}
}

func TestHighlightIsTranslucent(t *testing.T) {
	objs := []annot.Object{
		&annot.Highlight{
			Base:  annot.Base{ID: "h", Rect: coords.Rect{X: 0, Y: 0, W: 20, H: 20}},
			Color: annot.Yellow,
		},
	}
	img, err := Rasterize(objs, 20, 20, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	c := rasterAt(t, img, 10, 10)
	if c.A == 0 || c.A == 255 {
		t.Fatalf("highlight alpha = %d, want translucent", c.A)
	}
}

func TestWhiteoutCoversContent(t *testing.T) {
	objs := []annot.Object{
		&annot.Whiteout{Base: annot.Base{ID: "w", Rect: coords.Rect{X: 0, Y: 0, W: 20, H: 20}}},
	}
	img, err := Rasterize(objs, 20, 20, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	c := rasterAt(t, img, 10, 10)
	if c != (color.NRGBA{255, 255, 255, 255}) {
		t.Fatalf("whiteout pixel = %+v", c)
	}
}

func TestShapesAndStrokesDrawSomething(t *testing.T) {
	blue := annot.Color{R: 0, G: 0, B: 255, A: 255}
	objs := []annot.Object{
		&annot.Rect{
			Base:        annot.Base{ID: "r", Rect: coords.Rect{X: 5, Y: 5, W: 30, H: 20}},
			StrokeWidth: 2, Stroke: blue,
		},
		&annot.Line{
			Base: annot.Base{ID: "l", Rect: coords.Rect{X: 5, Y: 40, W: 40, H: 1}},
			From: coords.Point{X: 5, Y: 40}, To: coords.Point{X: 45, Y: 40},
			StrokeWidth: 3, Color: blue,
		},
		&annot.Arrow{
			Base: annot.Base{ID: "a", Rect: coords.Rect{X: 5, Y: 50, W: 40, H: 10}},
			From: coords.Point{X: 5, Y: 55}, To: coords.Point{X: 45, Y: 55},
			StrokeWidth: 2, Color: blue,
			Head: annot.ArrowHead(coords.Point{X: 5, Y: 55}, coords.Point{X: 45, Y: 55}, 2),
		},
		&annot.Path{
			Base:        annot.Base{ID: "p", Rect: coords.Rect{X: 0, Y: 60, W: 50, H: 20}},
			Points:      []coords.Point{{X: 2, Y: 62}, {X: 20, Y: 75}, {X: 48, Y: 65}},
			StrokeWidth: 2, Color: blue,
		},
		&annot.Text{
			Base: annot.Base{ID: "t", Rect: coords.Rect{X: 5, Y: 85, W: 60, H: 16}},
			Text: "hello", FontSize: 12, Color: blue, Underline: true,
		},
	}
	img, err := Rasterize(objs, 100, 110, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	painted := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rasterAt(t, img, x, y).A > 0 {
				painted++
			}
		}
	}
	if painted < 100 {
		t.Fatalf("only %d pixels painted", painted)
	}
	// Arrow tip pixel is solid.
	if c := rasterAt(t, img, 44, 55); c.A == 0 {
		t.Errorf("arrow tip not painted: %+v", c)
	}
}

func TestEmbeddedImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	objs := []annot.Object{
		&annot.Image{Base: annot.Base{ID: "i", Rect: coords.Rect{X: 10, Y: 10, W: 20, H: 20}}, PNG: buf.Bytes()},
	}
	img, err := Rasterize(objs, 50, 50, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	if c := rasterAt(t, img, 20, 20); c.G < 100 || c.A == 0 {
		t.Fatalf("image pixel = %+v", c)
	}

	broken := []annot.Object{
		&annot.Image{Base: annot.Base{ID: "b", Rect: coords.Rect{X: 0, Y: 0, W: 10, H: 10}}, PNG: []byte("junk")},
	}
	if _, err := Rasterize(broken, 50, 50, Options{Supersample: 1}); err == nil {
		t.Fatal("expected error for broken embedded image")
	}
}

func TestStampSettleEqualsUnscaled(t *testing.T) {
	base := annot.Base{ID: "s", Rect: coords.Rect{X: 10, Y: 10, W: 40, H: 20}}
	settled := &annot.Stamp{Base: base, Name: "APPROVED", Scale: 1}
	implicit := &annot.Stamp{Base: base, Name: "APPROVED"}

	a, err := Rasterize([]annot.Object{settled}, 60, 40, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Rasterize([]annot.Object{implicit}, 60, 40, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			if rasterAt(t, a, x, y) != rasterAt(t, b, x, y) {
				t.Fatalf("settled stamp differs from unscaled at (%d,%d)", x, y)
			}
		}
	}
}

func TestEmbeddedImageFractionalOriginRounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	objs := []annot.Object{
		&annot.Image{Base: annot.Base{ID: "i", Rect: coords.Rect{X: 9.6, Y: 9.6, W: 20, H: 20}}, PNG: buf.Bytes()},
	}
	img, err := Rasterize(objs, 50, 50, Options{Supersample: 1})
	if err != nil {
		t.Fatal(err)
	}
	// 9.6 rounds to 10: the pixel above-left stays blank.
	if c := rasterAt(t, img, 9, 9); c.A != 0 {
		t.Fatalf("pixel before the rounded origin painted: %+v", c)
	}
	if c := rasterAt(t, img, 10, 10); c.G < 100 || c.A == 0 {
		t.Fatalf("pixel at the rounded origin = %+v", c)
	}
}
