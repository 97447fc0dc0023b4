package findings

import (
	"fmt"
	"sort"

	"github.com/dgallion1/docmark/internal/document"
)

// HighlightInstruction is a self-contained draw order for the annotation
// writer: rectangle in points, style, and the note text. Instructions are
// safe to apply per page independently and out of order.
type HighlightInstruction struct {
	Page   int           `json:"page"`
	Bounds document.Rect `json:"bounds"`
	Color  RGB           `json:"color"`
	Title  string        `json:"title"`
	Note   string        `json:"note"`
}

// PlacementError reports a detection that failed the final page
// intersection check. After validation nothing should be outside its
// page, so this signals an upstream bug and is surfaced as a hard error
// for the detection instead of being clipped away.
type PlacementError struct {
	DetectionID string
	Page        int
	Bounds      document.Rect
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("detection %s: rectangle %+v does not intersect page %d", e.DetectionID, e.Bounds, e.Page)
}

// Place builds highlight instructions for the surviving detections.
//
// Output ordering is page ascending, then original detection order
// within a page, never re-sorted by confidence. Placement is
// deterministic and diffable across runs.
func Place(doc *document.Document, dets []Detection) ([]HighlightInstruction, []*PlacementError) {
	var out []HighlightInstruction
	var errs []*PlacementError

	// Stable sort keeps the original order within each page.
	ordered := make([]Detection, len(dets))
	copy(ordered, dets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Page < ordered[j].Page
	})

	for _, d := range ordered {
		page := doc.Page(d.Page)
		if page == nil || !d.Bounds.Intersects(page.Bounds()) {
			errs = append(errs, &PlacementError{DetectionID: d.ID, Page: d.Page, Bounds: d.Bounds})
			continue
		}
		info := d.Category.Info()
		out = append(out, HighlightInstruction{
			Page:   d.Page,
			Bounds: d.Bounds,
			Color:  info.Color,
			Title:  fmt.Sprintf("%s (%s)", info.Label, d.Provenance),
			Note: fmt.Sprintf("%s\nSeverity: %d/5\nConfidence: %.2f",
				d.Description, info.Severity, d.Confidence),
		})
	}
	return out, errs
}
