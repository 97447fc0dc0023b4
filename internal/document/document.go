package document

import (
	"crypto/sha256"
	"fmt"
)

// Rect is an axis-aligned rectangle in page coordinates, top-left origin.
// Units are PDF points (1/72 inch) everywhere except during normalization,
// where raw detections may still carry pixel values.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Intersects reports whether two rectangles overlap on both axes.
// Comparison is half-open so rectangles that merely share an edge
// do not count as overlapping.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// RasterInfo describes the most recent raster image produced for a page.
// It is required to map pixel-space detections back into points.
type RasterInfo struct {
	PixelWidth  int `json:"pixel_width"`
	PixelHeight int `json:"pixel_height"`
	DPI         int `json:"dpi"`
}

// Page holds the static facts about a single document page.
type Page struct {
	Number int     // 1-based, contiguous
	Width  float64 // native width in points
	Height float64 // native height in points

	// Raster is non-nil only if the page was rendered for vision analysis.
	Raster *RasterInfo
}

// Bounds returns the page rectangle in points.
func (p *Page) Bounds() Rect {
	return Rect{X: 0, Y: 0, W: p.Width, H: p.Height}
}

// Document is an ordered, immutable sequence of pages plus the token index
// built at load time. It is identified by the SHA-256 of the source bytes,
// which downstream stages use as an idempotency key.
type Document struct {
	Hash   string
	Title  string
	pages  []*Page
	Tokens *TokenIndex
}

// New builds a Document from already-validated pages. Pages must be
// 1-based and contiguous; violations are construction errors because
// every later stage depends on page-number lookup being total.
func New(hash, title string, pages []*Page) (*Document, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	for i, p := range pages {
		if p.Number != i+1 {
			return nil, fmt.Errorf("page %d out of order (expected %d)", p.Number, i+1)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("page %d has invalid size %gx%g", p.Number, p.Width, p.Height)
		}
		if p.Raster != nil && p.Raster.DPI <= 0 {
			return nil, fmt.Errorf("page %d has raster metadata with DPI %d", p.Number, p.Raster.DPI)
		}
	}
	return &Document{
		Hash:   hash,
		Title:  title,
		pages:  pages,
		Tokens: NewTokenIndex(),
	}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the page with the given 1-based number, or nil.
func (d *Document) Page(num int) *Page {
	if num < 1 || num > len(d.pages) {
		return nil
	}
	return d.pages[num-1]
}

// Pages returns the pages in order. Callers must not mutate the slice.
func (d *Document) Pages() []*Page {
	return d.pages
}

// SetRaster records raster metadata for a page. This is the one mutation
// allowed after construction: the renderer supplies pixel dimensions and
// DPI before any pixel-space detection is normalized.
func (d *Document) SetRaster(pageNum int, info RasterInfo) error {
	p := d.Page(pageNum)
	if p == nil {
		return fmt.Errorf("no such page: %d", pageNum)
	}
	if info.DPI <= 0 {
		return fmt.Errorf("page %d: raster DPI must be positive, got %d", pageNum, info.DPI)
	}
	p.Raster = &RasterInfo{
		PixelWidth:  info.PixelWidth,
		PixelHeight: info.PixelHeight,
		DPI:         info.DPI,
	}
	return nil
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
