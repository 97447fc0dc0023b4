package document

// TextToken is a run of text with its bounding rectangle in points.
// Tokens are produced once at load time by the text extractor and serve
// as ground truth for the evidence check in the validation gate.
type TextToken struct {
	Page   int    `json:"page"`
	Text   string `json:"text"`
	Bounds Rect   `json:"bounds"`

	// Estimated marks tokens whose coordinates came from the
	// character-width layout heuristic rather than real position data.
	Estimated bool `json:"estimated,omitempty"`
}

// TokenIndex holds per-page ordered text tokens.
type TokenIndex struct {
	byPage map[int][]TextToken
	total  int
}

func NewTokenIndex() *TokenIndex {
	return &TokenIndex{byPage: make(map[int][]TextToken)}
}

// Add appends a token to its page. Tokens with negative extents are
// an extraction bug and are rejected.
func (ix *TokenIndex) Add(t TextToken) bool {
	if t.Bounds.W < 0 || t.Bounds.H < 0 {
		return false
	}
	ix.byPage[t.Page] = append(ix.byPage[t.Page], t)
	ix.total++
	return true
}

// PageTokens returns the tokens for a page in extraction order.
// Callers must not mutate the slice.
func (ix *TokenIndex) PageTokens(page int) []TextToken {
	return ix.byPage[page]
}

// Len returns the total token count across all pages.
func (ix *TokenIndex) Len() int {
	return ix.total
}

// PageTextLen returns the total character count of a page's tokens,
// used as the text-cost proxy when sizing chunks.
func (ix *TokenIndex) PageTextLen(page int) int {
	n := 0
	for _, t := range ix.byPage[page] {
		n += len(t.Text)
	}
	return n
}

// Overlapping counts the tokens on a page whose bounds intersect r.
func (ix *TokenIndex) Overlapping(page int, r Rect) int {
	count := 0
	for _, t := range ix.byPage[page] {
		if t.Bounds.Intersects(r) {
			count++
		}
	}
	return count
}
