package findings

import (
	"github.com/dgallion1/docmark/internal/document"
)

// GatePolicy configures the validation gate.
type GatePolicy struct {
	// HighTrustExempt allows high-trust categories (visual anomalies,
	// missing data, truncated numbers) through without token evidence.
	// The exemption is deliberate policy, not a default: some real
	// findings have no underlying text to intersect.
	HighTrustExempt bool
}

// DefaultGatePolicy mirrors production behavior: the exemption is on.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{HighTrustExempt: true}
}

// Validate applies the geometric and evidential gates to one normalized
// detection. The rectangle must sit fully inside the page (clipping would
// silently change what the highlight claims as evidence, so out-of-bounds
// is a rejection), and must intersect at least one text token on its page
// unless the category's trust tier exempts it.
//
// Rejections are recorded, not lost: the returned detection carries its
// validation record and a discard reason.
func Validate(doc *document.Document, d Detection, policy GatePolicy) Detection {
	page := doc.Page(d.Page)
	if page == nil {
		return d.discard(ReasonBadInput)
	}

	rec := &ValidationRecord{}
	d.Validation = rec

	bounds := page.Bounds()
	rec.InBounds = d.Bounds.X >= 0 && d.Bounds.Y >= 0 &&
		d.Bounds.X+d.Bounds.W <= bounds.W &&
		d.Bounds.Y+d.Bounds.H <= bounds.H
	if !rec.InBounds {
		return d.discard(ReasonOutOfBounds)
	}

	rec.TokenOverlap = doc.Tokens.Overlapping(d.Page, d.Bounds)
	if rec.TokenOverlap == 0 {
		if !(policy.HighTrustExempt && d.Category.Info().HighTrust) {
			return d.discard(ReasonNoEvidence)
		}
	}

	d.Status = StatusValidated
	return d
}

// ValidateAll gates a batch, splitting survivors from discards.
func ValidateAll(doc *document.Document, dets []Detection, policy GatePolicy) (valid, discarded []Detection) {
	for _, d := range dets {
		out := Validate(doc, d, policy)
		if out.Status == StatusDiscarded {
			discarded = append(discarded, out)
			continue
		}
		valid = append(valid, out)
	}
	return valid, discarded
}
