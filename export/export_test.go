package export

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/shockz09/pdfmark/annot"
	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/doc/memdoc"
	"github.com/shockz09/pdfmark/pages"
)

var (
	red   = color.NRGBA{200, 0, 0, 255}
	green = color.NRGBA{0, 200, 0, 255}
	blue  = color.NRGBA{0, 0, 200, 255}
	white = color.NRGBA{255, 255, 255, 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func buildDoc(t *testing.T, imgs []image.Image, fields []doc.FormField) []byte {
	t.Helper()
	data, err := memdoc.NewDocument(imgs, fields, nil)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func loadResult(t *testing.T, data []byte) doc.Handle {
	t.Helper()
	h, err := memdoc.New().Load(context.Background(), data)
	if err != nil {
		t.Fatalf("exported document does not load: %v", err)
	}
	return h
}

func pixelAt(t *testing.T, h doc.Handle, page, x, y int) color.NRGBA {
	t.Helper()
	rp, err := memdoc.NewRenderer().RenderPage(context.Background(), h, page, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := rp.Image.At(x, y).RGBA()
	nr := color.NRGBAModel.Convert(color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(a)})
	return nr.(color.NRGBA)
}

// Rotating one page and deleting another leaves a document whose remaining
// pages carry the right dimensions and order.
func TestExportRotateAndDelete(t *testing.T) {
	imgs := []image.Image{solid(100, 150, red), solid(100, 150, green), solid(100, 150, blue)}
	original := buildDoc(t, imgs, nil)

	m := pages.NewManager(3)
	if err := m.SetRotation(2, 90); err != nil {
		t.Fatal(err)
	}
	if !m.ToggleDeleted(3) {
		t.Fatal("delete failed")
	}

	e := New(memdoc.New(), nil)
	out, err := e.Export(context.Background(), Input{
		Original: original,
		States:   m.States(),
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}

	h := loadResult(t, out)
	if h.PageCount() != 2 {
		t.Fatalf("pages = %d, want 2", h.PageCount())
	}
	p1, _ := h.PageSize(0)
	if p1.Width != 100 || p1.Height != 150 {
		t.Fatalf("page 1 size = %+v", p1)
	}
	p2, _ := h.PageSize(1)
	if p2.Width != 150 || p2.Height != 100 {
		t.Fatalf("rotated page 2 size = %+v", p2)
	}
}

// A redaction comes out as a fully opaque fill; the covered content is gone
// from the output, not merely hidden.
func TestExportRedactionIsIrreversible(t *testing.T) {
	page := solid(150, 150, white)
	secret := image.Rect(30, 30, 60, 60)
	draw.Draw(page, secret, image.NewUniform(red), image.Point{}, draw.Src)
	original := buildDoc(t, []image.Image{page}, nil)

	// Cover the secret: native 30..60 is render 45..90 at the 1.5 base scale.
	objs := map[int][]annot.Object{
		1: {&annot.Redaction{Base: annot.Base{ID: "r", Rect: coords.Rect{X: 45, Y: 45, W: 45, H: 45}}}},
	}
	in := Input{Original: original, States: pages.NewManager(1).States(), ObjectsByPage: objs}

	if got := CountRedactions(in); got != 1 {
		t.Fatalf("CountRedactions = %d", got)
	}

	out, err := New(memdoc.New(), nil).Export(context.Background(), in, Config{})
	if err != nil {
		t.Fatal(err)
	}
	h := loadResult(t, out)

	black := color.NRGBA{0, 0, 0, 255}
	for _, pt := range []image.Point{{35, 35}, {45, 45}, {55, 55}} {
		if got := pixelAt(t, h, 0, pt.X, pt.Y); got != black {
			t.Errorf("pixel %v = %+v, want opaque fill", pt, got)
		}
	}
	// Nothing red survives anywhere in the covered area.
	rp, err := memdoc.NewRenderer().RenderPage(context.Background(), h, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	for y := secret.Min.Y + 2; y < secret.Max.Y-2; y++ {
		for x := secret.Min.X + 2; x < secret.Max.X-2; x++ {
			r, _, _, _ := rp.Image.At(x, y).RGBA()
			if r > 0x1000 {
				t.Fatalf("covered content visible at (%d,%d)", x, y)
			}
		}
	}
}

func TestExportCustomRedactionFill(t *testing.T) {
	original := buildDoc(t, []image.Image{solid(100, 100, white)}, nil)
	objs := map[int][]annot.Object{
		1: {&annot.Redaction{Base: annot.Base{ID: "r", Rect: coords.Rect{X: 30, Y: 30, W: 60, H: 60}}}},
	}
	out, err := New(memdoc.New(), nil).Export(context.Background(), Input{
		Original:      original,
		States:        pages.NewManager(1).States(),
		ObjectsByPage: objs,
	}, Config{RedactionFill: annot.Color{R: 211, G: 47, B: 47, A: 255}})
	if err != nil {
		t.Fatal(err)
	}
	got := pixelAt(t, loadResult(t, out), 0, 40, 40)
	if got.R < 180 || got.G > 80 || got.A != 255 {
		t.Fatalf("fill pixel = %+v, want opaque red", got)
	}
}

// Reordered pages come out in display order.
func TestExportReorder(t *testing.T) {
	imgs := []image.Image{solid(100, 100, red), solid(100, 100, green), solid(100, 100, blue)}
	original := buildDoc(t, imgs, nil)

	m := pages.NewManager(3)
	if _, err := m.Reorder(0, 2); err != nil { // red goes to the back
		t.Fatal(err)
	}

	out, err := New(memdoc.New(), nil).Export(context.Background(), Input{
		Original: original,
		States:   m.States(),
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	h := loadResult(t, out)

	wantOrder := []color.NRGBA{green, blue, red}
	for i, want := range wantOrder {
		if got := pixelAt(t, h, i, 50, 50); got != want {
			t.Errorf("page %d pixel = %+v, want %+v", i+1, got, want)
		}
	}
}

// A field refusing its value is skipped; the rest of the form still flattens.
func TestExportFieldFillErrorsAreIsolated(t *testing.T) {
	fields := []doc.FormField{
		{ID: "ok", Name: "name", Kind: doc.FieldText, Page: 0, Rect: coords.Rect{X: 10, Y: 50, W: 80, H: 16}},
		{ID: "ro", Name: "locked", Kind: doc.FieldText, Page: 0, Rect: coords.Rect{X: 10, Y: 20, W: 80, H: 16}, ReadOnly: true},
	}
	original := buildDoc(t, []image.Image{solid(120, 120, white)}, fields)

	filled := []doc.FormField{
		{ID: "ok", Name: "name", Kind: doc.FieldText, Page: 0, Value: "Ada"},
		{ID: "ro", Name: "locked", Kind: doc.FieldText, Page: 0, Value: "nope"},
	}
	out, err := New(memdoc.New(), nil).Export(context.Background(), Input{
		Original: original,
		States:   pages.NewManager(1).States(),
		Fields:   filled,
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}

	h := loadResult(t, out)
	// Flatten baked the accepted value as dark pixels above the field origin.
	rp, err := memdoc.NewRenderer().RenderPage(context.Background(), h, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for y := 50; y < 70 && !found; y++ {
		for x := 10; x < 100; x++ {
			r, g, b, _ := rp.Image.At(x, y).RGBA()
			if r < 0x4000 && g < 0x4000 && b < 0x4000 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("flattened field value not painted")
	}
}

// Unfilled fields still flatten: the output has no interactive fields.
func TestExportFlattensUnfilledFields(t *testing.T) {
	fields := []doc.FormField{
		{ID: "f1", Name: "name", Kind: doc.FieldText, Page: 0, Rect: coords.Rect{X: 10, Y: 40, W: 60, H: 14}},
	}
	original := buildDoc(t, []image.Image{solid(100, 100, white)}, fields)

	out, err := New(memdoc.New(), nil).Export(context.Background(), Input{
		Original: original,
		States:   pages.NewManager(1).States(),
		Fields:   fields,
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}

	h := loadResult(t, out)
	rp, err := memdoc.NewRenderer().RenderPage(context.Background(), h, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rp.Fields) != 0 {
		t.Fatalf("exported page still has %d interactive field(s)", len(rp.Fields))
	}
}

func TestExportAnnotationsFollowTheirPage(t *testing.T) {
	imgs := []image.Image{solid(100, 100, white), solid(100, 100, white)}
	original := buildDoc(t, imgs, nil)

	m := pages.NewManager(2)
	box := &annot.Rect{
		Base:        annot.Base{ID: "x", Rect: coords.Rect{X: 30, Y: 30, W: 90, H: 90}},
		StrokeWidth: 6,
		Stroke:      annot.Black,
		Fill:        &annot.Color{R: 0, G: 0, B: 200, A: 255},
	}
	if _, err := m.Reorder(1, 0); err != nil { // page 2 becomes page 1
		t.Fatal(err)
	}
	// After the reorder the annotated page's display number is 1.
	remapped := map[int][]annot.Object{1: {box}}

	out, err := New(memdoc.New(), nil).Export(context.Background(), Input{
		Original:      original,
		States:        m.States(),
		ObjectsByPage: remapped,
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	h := loadResult(t, out)

	// The fill lands on output page 1 (the moved page), not page 2.
	got := pixelAt(t, h, 0, 50, 50)
	if got.B < 150 {
		t.Fatalf("annotation missing from moved page: %+v", got)
	}
	if got2 := pixelAt(t, h, 1, 50, 50); got2 != white {
		t.Fatalf("annotation leaked onto page 2: %+v", got2)
	}
}
