package chunker

import (
	"fmt"

	"github.com/dgallion1/docmark/internal/document"
)

// Config controls chunking behavior.
type Config struct {
	TargetTokens   int // Target budget per chunk, in estimated tokens.
	HardMaxTokens  int // Ceiling a multi-page chunk must never reach.
	TokensPerImage int // Fixed cost added for each rendered page image.
}

// DefaultConfig returns the budgets tuned for vision analysis requests.
func DefaultConfig() Config {
	return Config{
		TargetTokens:   8000,
		HardMaxTokens:  12000,
		TokensPerImage: 1200,
	}
}

// Chunk is a contiguous run of pages sized to fit one analysis request.
type Chunk struct {
	Index     int   // Sequence number within the document.
	Pages     []int // 1-based page numbers, contiguous and increasing.
	Cost      int   // Estimated token cost of the whole chunk.
	Oversized bool  // True when a single page alone exceeds the hard budget.
}

// PageCost is the precomputed analysis cost of one page.
type PageCost struct {
	Page int
	Cost int
}

// EstimateCosts computes per-page costs for a document: the page's text
// length proxy plus the fixed image cost when the page has been rendered.
func EstimateCosts(doc *document.Document, cfg Config) []PageCost {
	costs := make([]PageCost, 0, doc.PageCount())
	for _, p := range doc.Pages() {
		c := EstimateTokens(doc.Tokens.PageTextLen(p.Number))
		if p.Raster != nil {
			c += cfg.TokensPerImage
		}
		costs = append(costs, PageCost{Page: p.Number, Cost: c})
	}
	return costs
}

// Split partitions an ordered page-cost sequence into chunks.
//
// Every page lands in exactly one chunk, order is preserved, and a chunk
// closes before a page that would push a non-empty chunk past the target
// budget. A page whose own cost exceeds the hard budget still gets its
// own chunk rather than failing. The result is fully determined by the
// input sequence, so repeated runs chunk identically.
//
// A negative cost is a caller bug and the only error this function returns.
func Split(costs []PageCost, cfg Config) ([]Chunk, error) {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = 8000
	}
	if cfg.HardMaxTokens < cfg.TargetTokens {
		cfg.HardMaxTokens = cfg.TargetTokens
	}

	for _, pc := range costs {
		if pc.Cost < 0 {
			return nil, fmt.Errorf("page %d has negative cost %d", pc.Page, pc.Cost)
		}
	}

	var chunks []Chunk
	var current Chunk

	flush := func() {
		if len(current.Pages) == 0 {
			return
		}
		current.Index = len(chunks)
		chunks = append(chunks, current)
		current = Chunk{}
	}

	for _, pc := range costs {
		if len(current.Pages) > 0 && current.Cost+pc.Cost > cfg.TargetTokens {
			flush()
		}
		current.Pages = append(current.Pages, pc.Page)
		current.Cost += pc.Cost
		if pc.Cost > cfg.HardMaxTokens {
			// Oversized page: isolate it so the failure mode is one
			// degraded analysis call, not a lost page.
			current.Oversized = true
			flush()
		}
	}
	flush()

	return chunks, nil
}

// PageRange formats the chunk's page span for logs, e.g. "3-7" or "4".
func (c Chunk) PageRange() string {
	if len(c.Pages) == 0 {
		return ""
	}
	if len(c.Pages) == 1 {
		return fmt.Sprintf("%d", c.Pages[0])
	}
	return fmt.Sprintf("%d-%d", c.Pages[0], c.Pages[len(c.Pages)-1])
}
