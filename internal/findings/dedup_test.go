package findings

import (
	"testing"

	"github.com/dgallion1/docmark/internal/document"
)

func det(id string, page int, cat Category, x, y, conf float64, prov Provenance) Detection {
	return Detection{
		ID: id, Page: page, Category: cat,
		Bounds:     document.Rect{X: x, Y: y, W: 60, H: 14},
		Unit:       UnitPoints,
		Status:     StatusValidated,
		Confidence: conf,
		Provenance: prov,
	}
}

func TestDedup_KeepsHigherConfidence(t *testing.T) {
	// Both rectangles bucket to cell (10, 10) on page 2.
	dets := []Detection{
		det("weak", 2, CatCollection, 104, 101, 0.7, ProvVision),
		det("strong", 2, CatCollection, 108, 109, 0.95, ProvVision),
	}
	kept, discarded := Dedup(dets, DefaultCellSize)

	if len(kept) != 1 || len(discarded) != 1 {
		t.Fatalf("kept %d discarded %d, want 1/1", len(kept), len(discarded))
	}
	if kept[0].ID != "strong" || kept[0].Confidence != 0.95 {
		t.Errorf("survivor = %s (%.2f), want strong (0.95)", kept[0].ID, kept[0].Confidence)
	}
	if discarded[0].Discard != ReasonDuplicate {
		t.Errorf("loser reason = %s, want duplicate", discarded[0].Discard)
	}
}

func TestDedup_TieGoesToPattern(t *testing.T) {
	dets := []Detection{
		det("vis", 1, CatDerogatory, 100, 100, 0.9, ProvVision),
		det("pat", 1, CatDerogatory, 102, 103, 0.9, ProvPattern),
	}
	kept, _ := Dedup(dets, DefaultCellSize)
	if len(kept) != 1 || kept[0].ID != "pat" {
		t.Fatalf("survivor = %v, want pattern detection", kept)
	}

	// Order independence: same winner when the pattern detection comes first.
	kept, _ = Dedup([]Detection{dets[1], dets[0]}, DefaultCellSize)
	if len(kept) != 1 || kept[0].ID != "pat" {
		t.Fatalf("survivor = %v, want pattern detection regardless of order", kept)
	}
}

func TestDedup_PreservesDistinct(t *testing.T) {
	dets := []Detection{
		det("a", 1, CatCollection, 100, 100, 0.9, ProvPattern),
		det("b", 1, CatCollection, 300, 100, 0.9, ProvPattern),  // different cell
		det("c", 1, CatLatePayment, 100, 100, 0.9, ProvPattern), // same cell, different category
		det("d", 2, CatCollection, 100, 100, 0.9, ProvPattern),  // different page
	}
	kept, discarded := Dedup(dets, DefaultCellSize)
	if len(kept) != 4 || len(discarded) != 0 {
		t.Fatalf("kept %d discarded %d, want 4/0", len(kept), len(discarded))
	}
	// Input order preserved.
	for i, id := range []string{"a", "b", "c", "d"} {
		if kept[i].ID != id {
			t.Errorf("kept[%d] = %s, want %s", i, kept[i].ID, id)
		}
	}
}

func TestDedup_CellSizeIsTunable(t *testing.T) {
	// 12 points apart: duplicates at cell size 20, distinct at 10.
	dets := []Detection{
		det("a", 1, CatCollection, 101, 101, 0.9, ProvPattern),
		det("b", 1, CatCollection, 113, 101, 0.8, ProvVision),
	}
	kept, _ := Dedup(dets, 20)
	if len(kept) != 1 {
		t.Errorf("cell 20: kept %d, want 1", len(kept))
	}
	kept, _ = Dedup(dets, 10)
	if len(kept) != 2 {
		t.Errorf("cell 10: kept %d, want 2", len(kept))
	}
}
