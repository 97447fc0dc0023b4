package findings

import (
	"math"
	"testing"

	"github.com/dgallion1/docmark/internal/document"
)

func testDoc(t *testing.T, pages int) *document.Document {
	t.Helper()
	ps := make([]*document.Page, pages)
	for i := range ps {
		ps[i] = &document.Page{Number: i + 1, Width: 612, Height: 792}
	}
	doc, err := document.New("testhash", "test", ps)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}

func TestNormalize_PixelsToPoints(t *testing.T) {
	doc := testDoc(t, 1)
	if err := doc.SetRaster(1, document.RasterInfo{PixelWidth: 2550, PixelHeight: 3300, DPI: 300}); err != nil {
		t.Fatalf("SetRaster: %v", err)
	}

	d := Detection{
		ID: "d1", Page: 1, Category: CatCollection,
		Bounds: document.Rect{X: 100, Y: 100, W: 200, H: 40},
		Unit:   UnitPixels,
	}
	out := Normalize(doc, d)

	if out.Status != StatusNormalized {
		t.Fatalf("status = %s, want normalized (discard %s)", out.Status, out.Discard)
	}
	if out.Unit != UnitPoints {
		t.Errorf("unit = %s, want points", out.Unit)
	}
	want := document.Rect{X: 24.0, Y: 24.0, W: 48.0, H: 9.6}
	const eps = 1e-9
	if math.Abs(out.Bounds.X-want.X) > eps || math.Abs(out.Bounds.Y-want.Y) > eps ||
		math.Abs(out.Bounds.W-want.W) > eps || math.Abs(out.Bounds.H-want.H) > eps {
		t.Errorf("bounds = %+v, want %+v", out.Bounds, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	doc := testDoc(t, 1)
	doc.SetRaster(1, document.RasterInfo{DPI: 300})

	d := Detection{
		ID: "d1", Page: 1, Category: CatCollection,
		Bounds: document.Rect{X: 100, Y: 100, W: 200, H: 40},
		Unit:   UnitPixels,
	}
	once := Normalize(doc, d)
	twice := Normalize(doc, once)

	if twice.Bounds != once.Bounds {
		t.Errorf("double normalization changed bounds: %+v -> %+v", once.Bounds, twice.Bounds)
	}
	if twice.Status == StatusDiscarded {
		t.Errorf("second normalization discarded: %s", twice.Discard)
	}
}

func TestNormalize_Discards(t *testing.T) {
	doc := testDoc(t, 1)
	doc.SetRaster(1, document.RasterInfo{DPI: 300})

	tests := []struct {
		name string
		d    Detection
		want DiscardReason
	}{
		{
			"NaN coordinate",
			Detection{Page: 1, Bounds: document.Rect{X: math.NaN(), Y: 1, W: 10, H: 10}, Unit: UnitPixels},
			ReasonBadInput,
		},
		{
			"infinite width",
			Detection{Page: 1, Bounds: document.Rect{X: 1, Y: 1, W: math.Inf(1), H: 10}, Unit: UnitPixels},
			ReasonBadInput,
		},
		{
			"unknown page",
			Detection{Page: 9, Bounds: document.Rect{X: 1, Y: 1, W: 10, H: 10}, Unit: UnitPixels},
			ReasonBadInput,
		},
		{
			"zero width after conversion",
			Detection{Page: 1, Bounds: document.Rect{X: 1, Y: 1, W: 0, H: 10}, Unit: UnitPixels},
			ReasonEmpty,
		},
		{
			"empty points rect",
			Detection{Page: 1, Bounds: document.Rect{X: 1, Y: 1, W: 5, H: -2}, Unit: UnitPoints},
			ReasonEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(doc, tt.d)
			if out.Status != StatusDiscarded {
				t.Fatalf("status = %s, want discarded", out.Status)
			}
			if out.Discard != tt.want {
				t.Errorf("reason = %s, want %s", out.Discard, tt.want)
			}
		})
	}
}

func TestNormalize_MissingRasterIsInputError(t *testing.T) {
	doc := testDoc(t, 1) // no raster metadata

	d := Detection{Page: 1, Bounds: document.Rect{X: 1, Y: 1, W: 10, H: 10}, Unit: UnitPixels}
	out := Normalize(doc, d)
	if out.Status != StatusDiscarded || out.Discard != ReasonBadInput {
		t.Errorf("got status %s reason %s, want discarded/bad-input", out.Status, out.Discard)
	}

	// Points-tagged detections need no raster metadata.
	d.Unit = UnitPoints
	out = Normalize(doc, d)
	if out.Status != StatusNormalized {
		t.Errorf("points-tagged detection discarded: %s", out.Discard)
	}
}
