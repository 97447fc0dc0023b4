package findings

import (
	"math"

	"github.com/dgallion1/docmark/internal/document"
)

// basePointsDPI is the PDF point resolution: pixel values rendered at
// D dots per inch convert to points by the factor 72/D.
const basePointsDPI = 72.0

// Normalize converts a detection's rectangle from pixel space into the
// page's native point space. Points-tagged input passes through
// unchanged, which is what prevents double scaling when a stage is
// re-run over persisted detections.
//
// The returned detection is discarded (never silently fixed) when the
// coordinates are non-finite, the page is unknown, the page lacks raster
// metadata for a pixel-tagged rectangle, or the converted rectangle has
// no area.
func Normalize(doc *document.Document, d Detection) Detection {
	if !finite(d.Bounds) {
		return d.discard(ReasonBadInput)
	}

	if d.Unit == UnitPoints {
		if d.Bounds.Empty() {
			return d.discard(ReasonEmpty)
		}
		d.Status = StatusNormalized
		return d
	}

	page := doc.Page(d.Page)
	if page == nil {
		return d.discard(ReasonBadInput)
	}

	dpi := d.DPI
	if dpi == 0 && page.Raster != nil {
		dpi = page.Raster.DPI
	}
	if dpi <= 0 {
		// Pixel coordinates without a known render resolution cannot be
		// trusted; this is missing page metadata, an input error.
		return d.discard(ReasonBadInput)
	}

	factor := basePointsDPI / float64(dpi)
	d.Bounds = document.Rect{
		X: d.Bounds.X * factor,
		Y: d.Bounds.Y * factor,
		W: d.Bounds.W * factor,
		H: d.Bounds.H * factor,
	}
	d.Unit = UnitPoints
	d.DPI = 0

	if d.Bounds.Empty() {
		return d.discard(ReasonEmpty)
	}
	d.Status = StatusNormalized
	return d
}

// NormalizeAll normalizes a batch, splitting survivors from discards.
func NormalizeAll(doc *document.Document, dets []Detection) (normalized, discarded []Detection) {
	for _, d := range dets {
		out := Normalize(doc, d)
		if out.Status == StatusDiscarded {
			discarded = append(discarded, out)
			continue
		}
		normalized = append(normalized, out)
	}
	return normalized, discarded
}

func finite(r document.Rect) bool {
	for _, v := range [4]float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
