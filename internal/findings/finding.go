// Package findings turns raw analysis detections into validated,
// deduplicated highlight instructions. All stages are pure functions over
// already-fetched data: nothing here blocks, and nothing is shared between
// documents.
package findings

import (
	"github.com/dgallion1/docmark/internal/document"
)

// Category is the closed taxonomy of credit-report problems. Every
// category carries its severity, trust tier and highlight color as
// static data; there is no string-matching dispatch anywhere else.
type Category string

const (
	CatCollection       Category = "collection"
	CatChargeOff        Category = "charge_off"
	CatLatePayment      Category = "late_payment"
	CatTruncatedAccount Category = "truncated_account"
	CatMissingData      Category = "missing_data"
	CatHighUtilization  Category = "high_utilization"
	CatDerogatory       Category = "derogatory"
	CatDispute          Category = "dispute"
	CatVisualAnomaly    Category = "visual_anomaly"
)

// RGB is a highlight color with 0-255 channels.
type RGB struct {
	R, G, B int
}

// CategoryInfo is the static data attached to each category.
type CategoryInfo struct {
	Severity  int  // 1 (informational) to 5 (likely FCRA violation).
	HighTrust bool // Exempt from the token-evidence requirement.
	Color     RGB
	Label     string
}

// categoryTable is exhaustive over the Category constants above.
var categoryTable = map[Category]CategoryInfo{
	CatCollection:       {Severity: 5, Color: RGB{255, 0, 0}, Label: "Collection"},
	CatChargeOff:        {Severity: 5, Color: RGB{255, 0, 0}, Label: "Charge-Off"},
	CatLatePayment:      {Severity: 3, Color: RGB{255, 128, 0}, Label: "Late Payment"},
	CatTruncatedAccount: {Severity: 5, HighTrust: true, Color: RGB{255, 0, 255}, Label: "Truncated Account"},
	CatMissingData:      {Severity: 2, HighTrust: true, Color: RGB{128, 128, 128}, Label: "Missing Data"},
	CatHighUtilization:  {Severity: 2, Color: RGB{255, 255, 0}, Label: "High Utilization"},
	CatDerogatory:       {Severity: 4, Color: RGB{255, 204, 0}, Label: "Derogatory"},
	CatDispute:          {Severity: 1, Color: RGB{0, 0, 255}, Label: "Dispute"},
	CatVisualAnomaly:    {Severity: 3, HighTrust: true, Color: RGB{255, 255, 0}, Label: "Visual Anomaly"},
}

// defaultStyle is used for any category outside the table, so an
// unmapped category degrades to a visible yellow mark instead of erroring.
var defaultStyle = CategoryInfo{Severity: 3, Color: RGB{255, 255, 0}, Label: "Finding"}

// Valid reports whether c belongs to the closed taxonomy.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Info returns the static data for a category, falling back to the
// default style for unknown categories.
func (c Category) Info() CategoryInfo {
	if info, ok := categoryTable[c]; ok {
		return info
	}
	return defaultStyle
}

// Unit tags which coordinate space a detection's rectangle is in.
// The tag is what makes normalization idempotent: a points-tagged
// rectangle is never scaled again.
type Unit string

const (
	UnitPixels Unit = "pixels"
	UnitPoints Unit = "points"
)

// Provenance identifies which analysis method produced a detection.
type Provenance string

const (
	ProvPattern Provenance = "pattern"
	ProvVision  Provenance = "vision"
)

// rank orders provenances by trust for dedup tie-breaking: deterministic
// pattern matches win over vision findings at equal confidence.
func (p Provenance) rank() int {
	if p == ProvPattern {
		return 0
	}
	return 1
}

// Status is a detection's lifecycle state.
type Status string

const (
	StatusRaw        Status = "raw"
	StatusNormalized Status = "normalized"
	StatusValidated  Status = "validated"
	StatusPlaced     Status = "placed"
	StatusDiscarded  Status = "discarded"
)

// DiscardReason classifies why a detection left the pipeline. Discards
// are normal outcomes: the detection is kept in the ledger, never lost.
type DiscardReason string

const (
	ReasonBadInput    DiscardReason = "bad-input"
	ReasonEmpty       DiscardReason = "empty"
	ReasonOutOfBounds DiscardReason = "out-of-bounds"
	ReasonNoEvidence  DiscardReason = "no-evidence"
	ReasonDuplicate   DiscardReason = "duplicate"
)

// ValidationRecord is attached by the validation gate.
type ValidationRecord struct {
	InBounds     bool `json:"in_bounds"`
	TokenOverlap int  `json:"token_overlap"`
}

// Detection is a single finding from an analysis pass, at any point in
// its lifecycle from raw collaborator output to placed highlight.
type Detection struct {
	ID          string            `json:"id"`
	Page        int               `json:"page"`
	Category    Category          `json:"category"`
	Bounds      document.Rect     `json:"bounds"`
	Unit        Unit              `json:"unit"`
	DPI         int               `json:"dpi,omitempty"` // render DPI for pixel-tagged bounds
	Description string            `json:"description"`
	AnchorText  string            `json:"anchor_text,omitempty"`
	Provenance  Provenance        `json:"provenance"`
	Confidence  float64           `json:"confidence"`
	Status      Status            `json:"status"`
	Discard     DiscardReason     `json:"discard_reason,omitempty"`
	Validation  *ValidationRecord `json:"validation,omitempty"`
}

// discard returns a copy of d marked discarded with the given reason.
func (d Detection) discard(reason DiscardReason) Detection {
	d.Status = StatusDiscarded
	d.Discard = reason
	return d
}
