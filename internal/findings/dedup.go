package findings

import "math"

// DefaultCellSize is the dedup grid cell in points. Findings from
// independent passes on the same location land in the same cell even
// with small coordinate jitter. Tunable: the right size depends on the
// jitter statistics of the upstream analyzers, not on anything derivable
// here.
const DefaultCellSize = 10.0

type dedupKey struct {
	page     int
	category Category
	cellX    int
	cellY    int
}

// Dedup collapses detections that denote the same real-world finding:
// same page, same category, top-left corner in the same grid cell. Among
// duplicates the higher confidence survives; ties go to the earlier
// provenance rank (pattern before vision). This is a greedy single pass,
// not geometric clustering, so two genuinely distinct findings sharing a
// cell will merge.
//
// Output preserves the input order of the surviving detections.
func Dedup(dets []Detection, cellSize float64) (kept, discarded []Detection) {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	best := make(map[dedupKey]int, len(dets)) // key -> index into dets
	loser := make([]bool, len(dets))

	for i, d := range dets {
		key := dedupKey{
			page:     d.Page,
			category: d.Category,
			cellX:    int(math.Floor(d.Bounds.X / cellSize)),
			cellY:    int(math.Floor(d.Bounds.Y / cellSize)),
		}
		prev, seen := best[key]
		if !seen {
			best[key] = i
			continue
		}
		if stronger(d, dets[prev]) {
			loser[prev] = true
			best[key] = i
		} else {
			loser[i] = true
		}
	}

	for i, d := range dets {
		if loser[i] {
			discarded = append(discarded, d.discard(ReasonDuplicate))
			continue
		}
		kept = append(kept, d)
	}
	return kept, discarded
}

// stronger reports whether a should survive over b.
func stronger(a, b Detection) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Provenance.rank() < b.Provenance.rank()
}
