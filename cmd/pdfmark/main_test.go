package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shockz09/pdfmark/coords"
	"github.com/shockz09/pdfmark/doc"
	"github.com/shockz09/pdfmark/doc/memdoc"
)

func writeTestDoc(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 150))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{255, 255, 255, 255}), image.Point{}, draw.Src)
	fields := []doc.FormField{
		{ID: "f1", Name: "name", Kind: doc.FieldText, Page: 0, Rect: coords.Rect{X: 10, Y: 40, W: 60, H: 14}},
	}
	data, err := memdoc.NewDocument([]image.Image{img, img}, fields, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sample.memdoc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := writeTestDoc(t)
	out, err := runCmd(t, "inspect", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"pages: 2", "form fields: 1", "name (text, page 1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, err := runCmd(t, "inspect", "/no/such/file"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportWritesOutput(t *testing.T) {
	path := writeTestDoc(t)
	outPath := filepath.Join(t.TempDir(), "flat.memdoc")
	if _, err := runCmd(t, "export", path, "-o", outPath, "--draft-dir", t.TempDir()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	h, err := memdoc.New().Load(context.Background(), data)
	if err != nil {
		t.Fatalf("exported file does not load: %v", err)
	}
	if h.PageCount() != 2 {
		t.Fatalf("pages = %d", h.PageCount())
	}
}

func TestClearMissingDraftIsIdempotent(t *testing.T) {
	out, err := runCmd(t, "clear", "nothing-here", "--draft-dir", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "cleared") {
		t.Fatalf("output = %q", out)
	}
}
