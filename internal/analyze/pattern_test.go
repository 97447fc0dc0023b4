package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/findings"
)

func patternDoc(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.New("h", "report", []*document.Page{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 612, Height: 792},
	})
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	doc.Tokens.Add(document.TextToken{Page: 1, Text: "PORTFOLIO RECOVERY ASSOCIATES",
		Bounds: document.Rect{X: 72, Y: 120, W: 180, H: 12}})
	doc.Tokens.Add(document.TextToken{Page: 1, Text: "Account #: ****1234",
		Bounds: document.Rect{X: 72, Y: 150, W: 120, H: 12}})
	doc.Tokens.Add(document.TextToken{Page: 2, Text: "30 Days Past Due as of July",
		Bounds: document.Rect{X: 72, Y: 90, W: 160, H: 12}})
	doc.Tokens.Add(document.TextToken{Page: 2, Text: "Current balance: $1,200",
		Bounds: document.Rect{X: 72, Y: 110, W: 140, H: 12}})
	return doc
}

func TestPatternAnalyzer_FindsKnownIndicators(t *testing.T) {
	a, err := NewPatternAnalyzer(DefaultRules())
	if err != nil {
		t.Fatalf("NewPatternAnalyzer: %v", err)
	}
	doc := patternDoc(t)

	dets := a.Analyze(doc, []int{1, 2})
	if len(dets) != 3 {
		t.Fatalf("detections = %d, want 3: %+v", len(dets), dets)
	}

	byCat := map[findings.Category]findings.Detection{}
	for _, d := range dets {
		byCat[d.Category] = d
	}
	for _, cat := range []findings.Category{findings.CatCollection, findings.CatTruncatedAccount, findings.CatLatePayment} {
		d, ok := byCat[cat]
		if !ok {
			t.Errorf("missing %s detection", cat)
			continue
		}
		if d.Unit != findings.UnitPoints {
			t.Errorf("%s: unit = %s, want points", cat, d.Unit)
		}
		if d.Provenance != findings.ProvPattern {
			t.Errorf("%s: provenance = %s", cat, d.Provenance)
		}
		if d.Confidence != patternConfidence {
			t.Errorf("%s: confidence = %v", cat, d.Confidence)
		}
		if d.ID == "" {
			t.Errorf("%s: missing id", cat)
		}
	}

	// The match rectangle is the matching token's own bounds.
	if got := byCat[findings.CatCollection].Bounds; got.X != 72 || got.Y != 120 {
		t.Errorf("collection bounds = %+v", got)
	}
	// Page is carried from the token, not guessed.
	if byCat[findings.CatLatePayment].Page != 2 {
		t.Errorf("late payment page = %d, want 2", byCat[findings.CatLatePayment].Page)
	}
}

func TestPatternAnalyzer_EstimatedTokensDropConfidence(t *testing.T) {
	a, err := NewPatternAnalyzer(DefaultRules())
	if err != nil {
		t.Fatalf("NewPatternAnalyzer: %v", err)
	}
	doc, _ := document.New("h", "r", []*document.Page{{Number: 1, Width: 612, Height: 792}})
	doc.Tokens.Add(document.TextToken{Page: 1, Text: "CHARGE-OFF",
		Bounds: document.Rect{X: 72, Y: 90, W: 70, H: 12}, Estimated: true})

	dets := a.Analyze(doc, []int{1})
	if len(dets) != 1 {
		t.Fatalf("detections = %d, want 1", len(dets))
	}
	if dets[0].Confidence != estimatedLayoutConfidence {
		t.Errorf("confidence = %v, want %v for estimated layout", dets[0].Confidence, estimatedLayoutConfidence)
	}
}

func TestNewPatternAnalyzer_RejectsBadRules(t *testing.T) {
	if _, err := NewPatternAnalyzer([]Rule{{Category: "nonsense", Patterns: []string{"x"}}}); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := NewPatternAnalyzer([]Rule{{Category: findings.CatDispute, Patterns: []string{"("}}}); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - category: dispute
    patterns:
      - 'DISPUTED? BY CONSUMER'
  - category: derogatory
    patterns:
      - 'DEROGATORY'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 2 || rules[0].Category != findings.CatDispute {
		t.Errorf("rules = %+v", rules)
	}
	if _, err := NewPatternAnalyzer(rules); err != nil {
		t.Errorf("loaded rules do not compile: %v", err)
	}

	if _, err := LoadRules(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStripCodeBlock(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"issues\":[]}\n```", `{"issues":[]}`},
		{"```\n[]\n```", "[]"},
		{`{"issues":[]}`, `{"issues":[]}`},
	}
	for _, tt := range tests {
		if got := stripCodeBlock(tt.in); got != tt.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
