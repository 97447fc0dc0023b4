package parser

import "github.com/dgallion1/docmark/internal/document"

// Estimated-layout constants. These are deliberately crude: the strategy
// exists so pattern matching still works on PDFs without position data,
// with its degraded accuracy made explicit through the Estimated tag.
const (
	estMargin     = 72.0 // 1 inch
	estCharWidth  = 6.0
	estLineHeight = 14.0
	estFontSize   = 12.0
)

// EstimateLayout builds approximate token boxes for unpositioned page
// text by laying lines out top to bottom at a fixed character width.
// Every token is tagged Estimated so downstream stages can treat the
// coordinates as low-confidence.
func EstimateLayout(pageNum int, text string, pageW, pageH float64) []document.TextToken {
	var out []document.TextToken
	y := estMargin
	for _, line := range splitLines(text) {
		if line == "" {
			y += estLineHeight
			continue
		}
		if y+estFontSize > pageH-estMargin {
			break // past the usable page area; better no box than a fabricated one
		}
		w := float64(len(line)) * estCharWidth
		if max := pageW - 2*estMargin; w > max {
			w = max
		}
		out = append(out, document.TextToken{
			Page:      pageNum,
			Text:      line,
			Bounds:    document.Rect{X: estMargin, Y: y, W: w, H: estFontSize},
			Estimated: true,
		})
		y += estLineHeight
	}
	return out
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, trimCR(text[start:i]))
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, trimCR(text[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}
