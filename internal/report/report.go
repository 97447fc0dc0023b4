// Package report renders the outcome of a document run as Markdown,
// with optional HTML conversion for browser delivery.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/docmark/internal/findings"
)

// highSeverityFloor marks the severity at which findings get their own
// section in the report.
const highSeverityFloor = 4

// Build renders a Markdown report for one analyzed document.
func Build(title string, sum findings.Summary, placed []findings.Detection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis Report: %s\n\n", title)
	fmt.Fprintf(&b, "Document hash: `%s`\n\n", sum.DocumentHash)

	b.WriteString("## Totals\n\n")
	b.WriteString("| Stage | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Detections in | %d |\n", sum.DetectionsIn)
	fmt.Fprintf(&b, "| Normalized | %d |\n", sum.Normalized)
	fmt.Fprintf(&b, "| Validated | %d |\n", sum.Validated)
	fmt.Fprintf(&b, "| After dedup | %d |\n", sum.Deduplicated)
	fmt.Fprintf(&b, "| Highlighted | %d |\n", sum.Placed)
	fmt.Fprintf(&b, "| Discarded | %d |\n", len(sum.Discards))
	fmt.Fprintf(&b, "| Merged duplicates | %d |\n\n", len(sum.Merged))

	writeCountSection(&b, "## Findings by Category", countBy(placed, func(d findings.Detection) string {
		return d.Category.Info().Label
	}))
	writeCountSection(&b, "## Findings by Method", countBy(placed, func(d findings.Detection) string {
		return string(d.Provenance)
	}))
	writeCountSection(&b, "## Findings by Page", countBy(placed, func(d findings.Detection) string {
		return fmt.Sprintf("Page %d", d.Page)
	}))

	writeHighSeverity(&b, placed)
	writeDiscards(&b, sum)
	writeChunks(&b, sum)

	if len(sum.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range sum.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ToHTML converts a Markdown report to HTML.
func ToHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithXHTML()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}

func countBy(dets []findings.Detection, key func(findings.Detection) string) map[string]int {
	out := make(map[string]int)
	for _, d := range dets {
		out[key(d)]++
	}
	return out
}

func writeCountSection(b *strings.Builder, heading string, counts map[string]int) {
	b.WriteString(heading + "\n\n")
	if len(counts) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[k])
	}
	b.WriteString("\n")
}

func writeHighSeverity(b *strings.Builder, placed []findings.Detection) {
	var high []findings.Detection
	for _, d := range placed {
		if d.Category.Info().Severity >= highSeverityFloor {
			high = append(high, d)
		}
	}
	if len(high) == 0 {
		return
	}

	sort.SliceStable(high, func(i, j int) bool {
		si, sj := high[i].Category.Info().Severity, high[j].Category.Info().Severity
		if si != sj {
			return si > sj
		}
		return high[i].Page < high[j].Page
	})

	b.WriteString("## High Severity\n\n")
	for _, d := range high {
		info := d.Category.Info()
		fmt.Fprintf(b, "- **%s** (severity %d, page %d, %s): %s\n",
			info.Label, info.Severity, d.Page, d.Provenance, d.Description)
	}
	b.WriteString("\n")
}

func writeDiscards(b *strings.Builder, sum findings.Summary) {
	if len(sum.Discards) == 0 {
		return
	}
	b.WriteString("## Discarded Detections\n\n")
	byReason := sum.DiscardsByReason()
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(b, "- %s: %d\n", r, byReason[findings.DiscardReason(r)])
	}
	b.WriteString("\n")
}

func writeChunks(b *strings.Builder, sum findings.Summary) {
	if len(sum.Chunks) == 0 {
		return
	}
	b.WriteString("## Analysis Chunks\n\n")
	b.WriteString("| Chunk | Pages | Est. tokens | Duration (ms) | Findings | Attempts | Status |\n|---|---|---|---|---|---|---|\n")
	for _, c := range sum.Chunks {
		status := "ok"
		if c.Skipped {
			status = "skipped"
		} else if c.Error != "" {
			status = "error: " + c.Error
		}
		fmt.Fprintf(b, "| %d | %s | %d | %d | %d | %d | %s |\n",
			c.Index, c.Pages, c.CostTokens, c.DurationMs, c.Findings, c.Attempts, status)
	}
	b.WriteString("\n")
}
