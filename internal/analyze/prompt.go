package analyze

import (
	"fmt"
	"strings"
)

// SystemPrompt pins the model to strict-JSON analyst behavior.
const SystemPrompt = `You are an expert credit report analyst. You examine rendered report pages for problems that text search cannot find. Always return valid JSON only, no prose.`

// VisionPrompt asks for findings that pattern matching would miss, with
// pixel coordinates relative to each page image.
const VisionPrompt = `Analyze the attached credit report pages for problems that pattern matching might miss:

1. Visual indicators of problems (highlighting, boxes, markers)
2. Unusual formatting suggesting errors
3. Inconsistent data (dates out of order, impossible values)
4. Missing data in tables (empty cells where data should be)
5. Any visual anomalies

Focus on things that CANNOT be found by text search alone.

Each finding needs:
- "page": the page number as labeled before its image
- "category": one of "collection", "charge_off", "late_payment", "truncated_account", "missing_data", "high_utilization", "derogatory", "dispute", "visual_anomaly"
- "coordinates": {"x", "y", "width", "height"} in PIXELS from the top-left corner of that page's image
- "description": what is wrong, one sentence
- "anchorText": the nearest visible text, if any
- "confidence": 0.0 to 1.0

Return ONLY valid JSON in this exact format:
{
  "issues": [
    {"page": 1, "category": "truncated_account", "coordinates": {"x": 100, "y": 200, "width": 150, "height": 25}, "description": "Account number truncated to last 4 digits", "anchorText": "****1234", "confidence": 0.9}
  ],
  "contextSummary": "Brief summary of findings for the next pages"
}

Return an empty "issues" array if nothing is wrong.`

// BuildChunkPrompt assembles the full prompt for one chunk, including
// document identity and the context summary carried over from the
// previous chunk.
func BuildChunkPrompt(docTitle string, pages []int, contextSummary string) string {
	var sb strings.Builder
	sb.WriteString(VisionPrompt)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Document: %q\n", docTitle))
	if len(pages) > 0 {
		nums := make([]string, len(pages))
		for i, p := range pages {
			nums[i] = fmt.Sprintf("%d", p)
		}
		sb.WriteString("Pages in this request: ")
		sb.WriteString(strings.Join(nums, ", "))
		sb.WriteString("\n")
	}
	if contextSummary != "" {
		sb.WriteString("Context from earlier pages: ")
		sb.WriteString(contextSummary)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	return sb.String()
}
