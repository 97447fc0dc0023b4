package chunker

import (
	"reflect"
	"testing"
)

func costs(vals ...int) []PageCost {
	out := make([]PageCost, len(vals))
	for i, v := range vals {
		out[i] = PageCost{Page: i + 1, Cost: v}
	}
	return out
}

func allPages(chunks []Chunk) []int {
	var pages []int
	for _, c := range chunks {
		pages = append(pages, c.Pages...)
	}
	return pages
}

func TestSplit_SmallDocumentFitsOneChunk(t *testing.T) {
	chunks, err := Split(costs(1500, 1500, 1500), DefaultConfig())
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Cost != 4500 {
		t.Errorf("cost = %d, want 4500", chunks[0].Cost)
	}
	if got := chunks[0].PageRange(); got != "1-3" {
		t.Errorf("PageRange = %q, want 1-3", got)
	}
}

func TestSplit_ClosesBeforeTargetOverflow(t *testing.T) {
	cfg := Config{TargetTokens: 5000, HardMaxTokens: 8000}
	chunks, err := Split(costs(3000, 1500, 2000, 4000), cfg)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	// 3000+1500 fits; +2000 would overflow, so page 3 opens chunk 2;
	// +4000 would overflow again, so page 4 opens chunk 3.
	want := [][]int{{1, 2}, {3}, {4}}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(chunks), chunks)
	}
	for i, c := range chunks {
		if !reflect.DeepEqual(c.Pages, want[i]) {
			t.Errorf("chunk %d pages = %v, want %v", i, c.Pages, want[i])
		}
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
	}

	// No multi-page chunk exceeds the target budget.
	for _, c := range chunks {
		if len(c.Pages) > 1 && c.Cost > cfg.TargetTokens {
			t.Errorf("chunk %v cost %d exceeds target %d", c.Pages, c.Cost, cfg.TargetTokens)
		}
	}
}

func TestSplit_OversizedPageGetsOwnChunk(t *testing.T) {
	cfg := Config{TargetTokens: 5000, HardMaxTokens: 8000}
	chunks, err := Split(costs(1000, 20000, 1000), cfg)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if !reflect.DeepEqual(chunks[1].Pages, []int{2}) {
		t.Errorf("oversized page not isolated: %v", chunks[1].Pages)
	}
	if !chunks[1].Oversized {
		t.Error("oversized chunk not flagged")
	}
	if chunks[0].Oversized || chunks[2].Oversized {
		t.Error("normal chunks flagged oversized")
	}
}

func TestSplit_CoverageAndOrder(t *testing.T) {
	seqs := [][]PageCost{
		costs(0, 0, 0, 0),
		costs(8000, 8000, 8000),
		costs(1, 7999, 1, 7999, 1),
		costs(12001),
		{},
	}
	for _, seq := range seqs {
		chunks, err := Split(seq, DefaultConfig())
		if err != nil {
			t.Fatalf("Split(%v): %v", seq, err)
		}
		pages := allPages(chunks)
		if len(pages) != len(seq) {
			t.Fatalf("coverage: got %d pages, want %d", len(pages), len(seq))
		}
		for i, p := range pages {
			if p != i+1 {
				t.Errorf("page order broken at %d: got %d", i, p)
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	seq := costs(123, 4567, 89, 10111, 213, 1415)
	a, err := Split(seq, DefaultConfig())
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	b, _ := Split(seq, DefaultConfig())
	if !reflect.DeepEqual(a, b) {
		t.Errorf("chunking not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestSplit_NegativeCostIsInputError(t *testing.T) {
	_, err := Split([]PageCost{{Page: 1, Cost: -5}}, DefaultConfig())
	if err == nil {
		t.Fatal("expected error for negative cost")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		chars, want int
	}{
		{0, 0},
		{-10, 0},
		{3, 1},
		{4, 1},
		{8000, 2000},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.chars); got != tt.want {
			t.Errorf("EstimateTokens(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}
}
