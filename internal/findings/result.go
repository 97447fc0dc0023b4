package findings

// DiscardRecord is one ledger entry for a detection that left the
// pipeline before placement.
type DiscardRecord struct {
	DetectionID string        `json:"detection_id"`
	Page        int           `json:"page"`
	Category    Category      `json:"category"`
	Provenance  Provenance    `json:"provenance"`
	Reason      DiscardReason `json:"reason"`
	Description string        `json:"description,omitempty"`
}

// ChunkTelemetry records the cost and outcome of one analysis call.
type ChunkTelemetry struct {
	Index      int    `json:"index"`
	Pages      string `json:"pages"`
	CostTokens int    `json:"cost_tokens"`
	DurationMs int64  `json:"duration_ms"`
	Findings   int    `json:"findings"`
	Attempts   int    `json:"attempts"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Summary is the caller-facing result of a document run. Values are
// merged in, never mutated in place, so concurrent chunk processing
// cannot race on shared counters.
type Summary struct {
	DocumentHash string          `json:"document_hash"`
	DetectionsIn int             `json:"detections_in"`
	Normalized   int             `json:"normalized"`
	Validated    int             `json:"validated"`
	Deduplicated int             `json:"deduplicated"`
	Placed       int             `json:"placed"`
	Discards     []DiscardRecord `json:"discards"`

	// Merged holds dedup losers. They are diagnostics like Discards but
	// reported separately: a merged duplicate is still represented on the
	// page by its surviving twin.
	Merged []DiscardRecord  `json:"merged,omitempty"`
	Chunks []ChunkTelemetry `json:"chunks"`
	Errors []string         `json:"errors,omitempty"`
}

// WithChunk returns a copy of s with one chunk's telemetry appended.
func (s Summary) WithChunk(t ChunkTelemetry) Summary {
	s.Chunks = append(append([]ChunkTelemetry(nil), s.Chunks...), t)
	return s
}

// WithDiscards returns a copy of s with ledger entries for the given
// discarded detections.
func (s Summary) WithDiscards(dets []Detection) Summary {
	if len(dets) == 0 {
		return s
	}
	records := append([]DiscardRecord(nil), s.Discards...)
	for _, d := range dets {
		records = append(records, DiscardRecord{
			DetectionID: d.ID,
			Page:        d.Page,
			Category:    d.Category,
			Provenance:  d.Provenance,
			Reason:      d.Discard,
			Description: d.Description,
		})
	}
	s.Discards = records
	return s
}

// WithMerged returns a copy of s with records for dedup losers.
func (s Summary) WithMerged(dets []Detection) Summary {
	if len(dets) == 0 {
		return s
	}
	records := append([]DiscardRecord(nil), s.Merged...)
	for _, d := range dets {
		records = append(records, DiscardRecord{
			DetectionID: d.ID,
			Page:        d.Page,
			Category:    d.Category,
			Provenance:  d.Provenance,
			Reason:      d.Discard,
			Description: d.Description,
		})
	}
	s.Merged = records
	return s
}

// WithError returns a copy of s with a run-level error message appended.
func (s Summary) WithError(msg string) Summary {
	s.Errors = append(append([]string(nil), s.Errors...), msg)
	return s
}

// DiscardsByReason tallies the ledger for reporting.
func (s Summary) DiscardsByReason() map[DiscardReason]int {
	out := make(map[DiscardReason]int)
	for _, r := range s.Discards {
		out[r.Reason]++
	}
	return out
}
