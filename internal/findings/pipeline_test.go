package findings

import (
	"testing"

	"github.com/dgallion1/docmark/internal/document"
)

// TestEndToEnd runs the pure stages back to back on a document with one
// chunk's worth of raw detections: two duplicates, one out-of-bounds,
// one without evidence, one valid and unique.
func TestEndToEnd(t *testing.T) {
	doc := testDoc(t, 3)
	for p := 1; p <= 3; p++ {
		if err := doc.SetRaster(p, document.RasterInfo{PixelWidth: 2550, PixelHeight: 3300, DPI: 300}); err != nil {
			t.Fatalf("SetRaster: %v", err)
		}
	}
	doc.Tokens.Add(document.TextToken{Page: 1, Text: "PORTFOLIO RECOVERY",
		Bounds: document.Rect{X: 95, Y: 95, W: 120, H: 14}})
	doc.Tokens.Add(document.TextToken{Page: 2, Text: "CHARGE-OFF",
		Bounds: document.Rect{X: 140, Y: 200, W: 80, H: 14}})

	raw := []Detection{
		// Duplicate pair on page 1: pixel coords from vision, point
		// coords from pattern, landing in the same 10pt cell.
		{ID: "dup-vision", Page: 1, Category: CatCollection, Provenance: ProvVision, Confidence: 0.8,
			Unit: UnitPixels, Bounds: document.Rect{X: 420, Y: 410, W: 500, H: 60}}, // -> 100.8,98.4
		{ID: "dup-pattern", Page: 1, Category: CatCollection, Provenance: ProvPattern, Confidence: 0.95,
			Unit: UnitPoints, Bounds: document.Rect{X: 102, Y: 96, W: 110, H: 16}},
		// Out of bounds on page 2.
		{ID: "oob", Page: 2, Category: CatDerogatory, Provenance: ProvVision, Confidence: 0.9,
			Unit: UnitPoints, Bounds: document.Rect{X: 600, Y: 780, W: 50, H: 50}},
		// No underlying text on page 3, not a high-trust category.
		{ID: "ghost", Page: 3, Category: CatLatePayment, Provenance: ProvVision, Confidence: 0.7,
			Unit: UnitPoints, Bounds: document.Rect{X: 300, Y: 300, W: 80, H: 20}},
		// Valid and unique on page 2.
		{ID: "ok", Page: 2, Category: CatChargeOff, Provenance: ProvVision, Confidence: 0.85,
			Unit: UnitPoints, Bounds: document.Rect{X: 135, Y: 195, W: 90, H: 22}},
	}

	summary := Summary{DocumentHash: doc.Hash, DetectionsIn: len(raw)}

	norm, discarded := NormalizeAll(doc, raw)
	summary = summary.WithDiscards(discarded)
	summary.Normalized = len(norm)

	valid, rejected := ValidateAll(doc, norm, DefaultGatePolicy())
	summary = summary.WithDiscards(rejected)
	summary.Validated = len(valid)

	unique, merged := Dedup(valid, DefaultCellSize)
	summary = summary.WithMerged(merged)
	summary.Deduplicated = len(unique)

	placed, placeErrs := Place(doc, unique)
	summary.Placed = len(placed)

	if len(placeErrs) != 0 {
		t.Fatalf("unexpected placement errors: %v", placeErrs)
	}
	if len(placed) != 2 {
		t.Fatalf("placed = %d, want 2", len(placed))
	}
	if len(summary.Discards) != 2 {
		t.Fatalf("discard ledger = %d entries, want 2: %+v", len(summary.Discards), summary.Discards)
	}

	byReason := summary.DiscardsByReason()
	if byReason[ReasonOutOfBounds] != 1 || byReason[ReasonNoEvidence] != 1 {
		t.Errorf("ledger reasons = %+v", byReason)
	}
	if len(summary.Merged) != 1 || summary.Merged[0].DetectionID != "dup-vision" {
		t.Errorf("merged = %+v, want the weaker duplicate", summary.Merged)
	}

	// The pattern duplicate won, so page 1 carries its rectangle.
	if placed[0].Page != 1 || placed[0].Bounds.X != 102 {
		t.Errorf("placed[0] = %+v, want pattern duplicate on page 1", placed[0])
	}
	if placed[1].Page != 2 {
		t.Errorf("placed[1].Page = %d, want 2", placed[1].Page)
	}
}
