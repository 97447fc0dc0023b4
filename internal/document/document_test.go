package document

import "testing"

func TestRectIntersects(t *testing.T) {
	base := Rect{X: 100, Y: 100, W: 50, H: 20}

	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"overlapping", Rect{X: 120, Y: 110, W: 50, H: 20}, true},
		{"contained", Rect{X: 110, Y: 105, W: 10, H: 5}, true},
		{"disjoint", Rect{X: 300, Y: 300, W: 50, H: 20}, false},
		{"shared vertical edge", Rect{X: 150, Y: 100, W: 50, H: 20}, false},
		{"shared horizontal edge", Rect{X: 100, Y: 120, W: 50, H: 20}, false},
		{"one point overlap", Rect{X: 149, Y: 119, W: 50, H: 20}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.r); got != tt.want {
				t.Errorf("Intersects(%+v) = %v, want %v", tt.r, got, tt.want)
			}
			// Intersection is symmetric.
			if got := tt.r.Intersects(base); got != tt.want {
				t.Errorf("reverse Intersects(%+v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestNewRejectsBadPages(t *testing.T) {
	if _, err := New("h", "t", nil); err == nil {
		t.Error("expected error for empty page list")
	}

	if _, err := New("h", "t", []*Page{
		{Number: 1, Width: 612, Height: 792},
		{Number: 3, Width: 612, Height: 792},
	}); err == nil {
		t.Error("expected error for non-contiguous pages")
	}

	if _, err := New("h", "t", []*Page{
		{Number: 1, Width: 0, Height: 792},
	}); err == nil {
		t.Error("expected error for zero-width page")
	}
}

func TestSetRaster(t *testing.T) {
	doc, err := New("h", "t", []*Page{{Number: 1, Width: 612, Height: 792}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := doc.SetRaster(1, RasterInfo{PixelWidth: 2550, PixelHeight: 3300, DPI: 300}); err != nil {
		t.Fatalf("SetRaster: %v", err)
	}
	if doc.Page(1).Raster == nil || doc.Page(1).Raster.DPI != 300 {
		t.Errorf("raster not recorded: %+v", doc.Page(1).Raster)
	}

	if err := doc.SetRaster(2, RasterInfo{DPI: 300}); err == nil {
		t.Error("expected error for missing page")
	}
	if err := doc.SetRaster(1, RasterInfo{DPI: 0}); err == nil {
		t.Error("expected error for zero DPI")
	}
}

func TestTokenIndex(t *testing.T) {
	ix := NewTokenIndex()

	ok := ix.Add(TextToken{Page: 1, Text: "COLLECTION", Bounds: Rect{X: 100, Y: 100, W: 80, H: 12}})
	if !ok {
		t.Fatal("Add rejected valid token")
	}
	ix.Add(TextToken{Page: 1, Text: "Account", Bounds: Rect{X: 100, Y: 140, W: 50, H: 12}})
	ix.Add(TextToken{Page: 2, Text: "Balance", Bounds: Rect{X: 100, Y: 100, W: 50, H: 12}})

	if ix.Add(TextToken{Page: 1, Bounds: Rect{W: -1, H: 5}}) {
		t.Error("Add accepted token with negative width")
	}

	if got := len(ix.PageTokens(1)); got != 2 {
		t.Errorf("page 1 tokens = %d, want 2", got)
	}
	if got := ix.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if got := ix.PageTextLen(1); got != len("COLLECTION")+len("Account") {
		t.Errorf("PageTextLen = %d", got)
	}

	// Overlap counting is per page: the same rect on page 2 sees
	// different tokens.
	probe := Rect{X: 90, Y: 95, W: 30, H: 20}
	if got := ix.Overlapping(1, probe); got != 1 {
		t.Errorf("Overlapping(1) = %d, want 1", got)
	}
	if got := ix.Overlapping(2, probe); got != 1 {
		t.Errorf("Overlapping(2) = %d, want 1", got)
	}
	if got := ix.Overlapping(3, probe); got != 0 {
		t.Errorf("Overlapping(3) = %d, want 0", got)
	}
}
