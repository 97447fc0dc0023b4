package analyze

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/findings"
)

// patternConfidence is assigned to every pattern hit: a deterministic
// text match on extracted tokens is the most trustworthy signal we have.
const patternConfidence = 0.95

// PatternAnalyzer runs the regex rule bank over a document's text tokens.
// It emits points-tagged detections, so its output skips pixel
// normalization entirely.
type PatternAnalyzer struct {
	compiled []compiledRule
}

type compiledRule struct {
	category findings.Category
	patterns []*regexp.Regexp
}

// NewPatternAnalyzer compiles a rule set. An invalid regex or an unknown
// category is a configuration error, reported at startup rather than
// skipped at analysis time.
func NewPatternAnalyzer(rules []Rule) (*PatternAnalyzer, error) {
	a := &PatternAnalyzer{}
	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("rule references unknown category %q", r.Category)
		}
		cr := compiledRule{category: r.Category}
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("category %s: bad pattern %q: %w", r.Category, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		a.compiled = append(a.compiled, cr)
	}
	return a, nil
}

// Analyze scans the given pages and returns one detection per matching
// token per category. The detection's rectangle is the token's own
// bounds, already in points.
func (a *PatternAnalyzer) Analyze(doc *document.Document, pages []int) []findings.Detection {
	var out []findings.Detection
	for _, pageNum := range pages {
		for _, tok := range doc.Tokens.PageTokens(pageNum) {
			for _, cr := range a.compiled {
				if m := firstMatch(cr.patterns, tok.Text); m != "" {
					conf := patternConfidence
					if tok.Estimated {
						// Heuristic layout positions are far less exact
						// than real extraction data.
						conf = estimatedLayoutConfidence
					}
					out = append(out, findings.Detection{
						ID:          uuid.NewString(),
						Page:        pageNum,
						Category:    cr.category,
						Bounds:      tok.Bounds,
						Unit:        findings.UnitPoints,
						Description: fmt.Sprintf("Pattern match: %s", m),
						AnchorText:  tok.Text,
						Provenance:  findings.ProvPattern,
						Confidence:  conf,
						Status:      findings.StatusRaw,
					})
				}
			}
		}
	}
	return out
}

// firstMatch returns the first submatch of any pattern against the text,
// or "" when nothing matches. One hit per category per token is enough:
// the dedup stage would collapse the rest anyway.
func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
