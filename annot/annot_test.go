package annot

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shockz09/pdfmark/coords"
)

func samplePage() []Object {
	return []Object{
		&Text{
			Base:     Base{ID: "t1", Rect: coords.Rect{X: 10, Y: 20, W: 120, H: 24}},
			Text:     "Paid in full",
			FontSize: 16,
			Color:    Black,
		},
		&Path{
			Base:        Base{ID: "p1", Rect: coords.Rect{X: 0, Y: 0, W: 50, H: 50}},
			Points:      []coords.Point{{X: 0, Y: 0}, {X: 25, Y: 40}, {X: 50, Y: 10}},
			StrokeWidth: 2,
			Color:       Color{R: 30, G: 80, B: 200, A: 255},
		},
		&Arrow{
			Base:        Base{ID: "a1", Rect: coords.Rect{X: 100, Y: 100, W: 60, H: 30}},
			From:        coords.Point{X: 100, Y: 100},
			To:          coords.Point{X: 160, Y: 130},
			StrokeWidth: 3,
			Color:       Black,
			Head:        ArrowHead(coords.Point{X: 100, Y: 100}, coords.Point{X: 160, Y: 130}, 3),
		},
		&Redaction{Base: Base{ID: "r1", Rect: coords.Rect{X: 200, Y: 200, W: 80, H: 20}}},
		&Highlight{Base: Base{ID: "h1", Rect: coords.Rect{X: 5, Y: 5, W: 100, H: 14}}, Color: Yellow},
		&Stamp{Base: Base{ID: "s1", Rect: coords.Rect{X: 300, Y: 300, W: 90, H: 40}}, Name: "approved", Scale: 1},
	}
}

func TestPageCodecRoundTrip(t *testing.T) {
	objs := samplePage()
	data, err := EncodePage(objs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodePage(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(objs, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := DecodePage(nil)
	if err != nil || got != nil {
		t.Fatalf("DecodePage(nil) = %v, %v", got, err)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := DecodePage([]byte(`[{"kind":"hologram","data":{}}]`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := &Path{
		Base:   Base{ID: "p1"},
		Points: []coords.Point{{X: 1, Y: 2}},
	}
	c := p.Clone().(*Path)
	c.Points[0].X = 99
	if p.Points[0].X != 1 {
		t.Error("clone shares point slice with original")
	}

	sig := &Signature{Base: Base{ID: "s"}, PNG: []byte{1, 2, 3}}
	cs := sig.Clone().(*Signature)
	cs.PNG[0] = 9
	if sig.PNG[0] != 1 {
		t.Error("clone shares PNG bytes with original")
	}
}

func TestArrowHeadOrientation(t *testing.T) {
	from := coords.Point{X: 0, Y: 0}
	to := coords.Point{X: 100, Y: 0}
	head := ArrowHead(from, to, 2)

	// Tip sits exactly at the drag end point.
	if math.Abs(head[0].X-100) > 1e-9 || math.Abs(head[0].Y) > 1e-9 {
		t.Fatalf("tip at %+v, want (100,0)", head[0])
	}
	// Base corners trail behind the tip, symmetric about the shaft.
	if head[1].X >= 100 || head[2].X >= 100 {
		t.Errorf("base corners should trail the tip: %+v", head)
	}
	if math.Abs(head[1].Y+head[2].Y) > 1e-9 {
		t.Errorf("base corners not symmetric: %+v", head)
	}
}

func TestHit(t *testing.T) {
	objs := samplePage()

	t.Run("rect bounds", func(t *testing.T) {
		if !Hit(objs[0], coords.Point{X: 60, Y: 30}) {
			t.Error("point inside text bounds should hit")
		}
		if Hit(objs[0], coords.Point{X: 500, Y: 500}) {
			t.Error("far point should miss")
		}
	})

	t.Run("line stroke", func(t *testing.T) {
		line := &Line{
			Base:        Base{ID: "l1"},
			From:        coords.Point{X: 0, Y: 0},
			To:          coords.Point{X: 100, Y: 0},
			StrokeWidth: 2,
		}
		if !Hit(line, coords.Point{X: 50, Y: 3}) {
			t.Error("point near stroke should hit")
		}
		if Hit(line, coords.Point{X: 50, Y: 30}) {
			t.Error("point far from stroke should miss")
		}
	})

	t.Run("topmost wins", func(t *testing.T) {
		a := &Whiteout{Base: Base{ID: "w", Rect: coords.Rect{X: 0, Y: 0, W: 50, H: 50}}}
		b := &Redaction{Base: Base{ID: "r", Rect: coords.Rect{X: 0, Y: 0, W: 50, H: 50}}}
		if got := TopmostHit([]Object{a, b}, coords.Point{X: 25, Y: 25}); got != 1 {
			t.Fatalf("TopmostHit = %d, want 1", got)
		}
		if got := TopmostHit([]Object{a, b}, coords.Point{X: 200, Y: 200}); got != -1 {
			t.Fatalf("TopmostHit = %d, want -1", got)
		}
	})
}

func TestCountRedactions(t *testing.T) {
	byPage := map[int][]Object{
		1: samplePage(),
		2: {&Redaction{Base: Base{ID: "r2"}}, &Text{Base: Base{ID: "t2"}}},
		3: {},
	}
	if got := CountRedactions(byPage); got != 2 {
		t.Fatalf("CountRedactions = %d, want 2", got)
	}
}

func TestHitRespectsRotation(t *testing.T) {
	h := &Highlight{Base: Base{ID: "h", Rect: coords.Rect{X: 0, Y: 0, W: 20, H: 10}, Angle: 90}}

	// Rotated 90 degrees about the center, the footprint is tall, not wide.
	if !Hit(h, coords.Point{X: 10, Y: 13}) {
		t.Error("point inside the rotated footprint missed")
	}
	if Hit(h, coords.Point{X: 19, Y: 5}) {
		t.Error("point outside the rotated footprint hit")
	}

	h.Angle = 0
	if !Hit(h, coords.Point{X: 19, Y: 5}) {
		t.Error("unrotated hit test changed")
	}
	if Hit(h, coords.Point{X: 10, Y: 13}) {
		t.Error("unrotated bounds grew")
	}
}
