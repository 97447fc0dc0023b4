package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docmark/internal/document"
)

// LoadPDF builds the document model from raw PDF bytes: native page
// sizes from each MediaBox and a token index from positioned text.
// Pages without position data fall back to the estimated-layout
// strategy, which tags its tokens so downstream confidence drops.
func LoadPDF(data []byte, filename string) (*document.Document, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	if numPages < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]*document.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		w, h, err := mediaBoxSize(reader.Page(i))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, &document.Page{Number: i, Width: w, Height: h})
	}

	title := strings.TrimSuffix(filename, ".pdf")
	doc, err := document.New(document.ContentHashHex(data), title, pages)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		tokens := positionedTokens(page, doc.Page(i))
		if len(tokens) == 0 {
			// No position data on this page. Fall back to the
			// estimated-layout strategy rather than dropping the text.
			if text, err := page.GetPlainText(nil); err == nil {
				tokens = EstimateLayout(i, text, doc.Page(i).Width, doc.Page(i).Height)
			}
		}
		for _, tok := range tokens {
			doc.Tokens.Add(tok)
		}
	}

	return doc, nil
}

// mediaBoxSize reads the page's MediaBox [x0 y0 x1 y1] in points.
func mediaBoxSize(page pdflib.Page) (w, h float64, err error) {
	if page.V.IsNull() {
		return 0, 0, fmt.Errorf("missing page object")
	}
	box := page.V.Key("MediaBox")
	if box.Len() != 4 {
		return 0, 0, fmt.Errorf("missing or malformed MediaBox")
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	w, h = x1-x0, y1-y0
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("degenerate MediaBox %gx%g", w, h)
	}
	return w, h, nil
}

// positionedTokens extracts one token per text line from the page's
// content stream. PDF positions are bottom-left origin; tokens come out
// in the top-left origin space the rest of the pipeline uses.
func positionedTokens(page pdflib.Page, meta *document.Page) []document.TextToken {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	// Group fragments into lines by their baseline Y.
	lines := make(map[int][]pdflib.Text)
	for _, t := range content.Text {
		key := int(t.Y + 0.5)
		lines[key] = append(lines[key], t)
	}

	keys := make([]int, 0, len(lines))
	for k := range lines {
		keys = append(keys, k)
	}
	// Largest Y first: top of the page reads first in bottom-left origin.
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var out []document.TextToken
	for _, k := range keys {
		frags := lines[k]
		sort.Slice(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

		var sb strings.Builder
		minX, maxX := frags[0].X, frags[0].X+frags[0].W
		height := frags[0].FontSize
		baseline := frags[0].Y
		for _, f := range frags {
			sb.WriteString(f.S)
			if f.X < minX {
				minX = f.X
			}
			if f.X+f.W > maxX {
				maxX = f.X + f.W
			}
			if f.FontSize > height {
				height = f.FontSize
			}
		}

		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		out = append(out, document.TextToken{
			Page: meta.Number,
			Text: text,
			Bounds: document.Rect{
				X: minX,
				Y: meta.Height - baseline - height,
				W: maxX - minX,
				H: height,
			},
		})
	}
	return out
}
