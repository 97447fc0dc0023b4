package analyze

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/findings"
)

// VisionClient calls the Anthropic Messages API with rendered page
// images to find problems that text patterns cannot see.
type VisionClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64

	Stats *LLMStats
}

func NewVisionClient(apiKey, model string) *VisionClient {
	return &VisionClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 4096,
		Stats:     NewLLMStats(time.Hour),
	}
}

// Model returns the configured model name.
func (c *VisionClient) Model() string {
	return c.model
}

// PageImage is one rendered page attached to an analysis request.
type PageImage struct {
	Page   int
	PNG    []byte
	Width  int
	Height int
	DPI    int
}

// ChunkRequest is a single analysis invocation: the chunk's pages as
// images plus the text prompt, and the context summary carried forward
// from the previous chunk.
type ChunkRequest struct {
	DocTitle       string
	Pages          []int
	Images         []PageImage
	ContextSummary string
}

// Finding is the structured response shape the model is instructed to
// return. Coordinates are pixels from the top-left of the page image.
type Finding struct {
	Page        int     `json:"page"`
	Category    string  `json:"category"`
	Coordinates rawRect `json:"coordinates"`
	Description string  `json:"description"`
	AnchorText  string  `json:"anchorText,omitempty"`
	Confidence  float64 `json:"confidence"`
}

type rawRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ChunkAnalysis is the parsed result of one vision call.
type ChunkAnalysis struct {
	Findings       []Finding `json:"issues"`
	ContextSummary string    `json:"contextSummary"`
}

// Detection converts a model finding into a raw pixel-tagged detection.
// The render DPI travels with the detection so the normalizer does not
// depend on call-time state.
func (f Finding) Detection(id string, dpi int) findings.Detection {
	return findings.Detection{
		ID:       id,
		Page:     f.Page,
		Category: findings.Category(f.Category),
		Bounds: document.Rect{
			X: f.Coordinates.X,
			Y: f.Coordinates.Y,
			W: f.Coordinates.Width,
			H: f.Coordinates.Height,
		},
		Unit:        findings.UnitPixels,
		DPI:         dpi,
		Description: f.Description,
		AnchorText:  f.AnchorText,
		Provenance:  findings.ProvVision,
		Confidence:  f.Confidence,
		Status:      findings.StatusRaw,
	}
}

// AnalyzeChunk sends one chunk to the model and parses its JSON reply.
// Transient API failures come back as *RetryableError; anything else
// (auth, malformed response) is fatal for the chunk.
func (c *VisionClient) AnalyzeChunk(ctx context.Context, req ChunkRequest) (*ChunkAnalysis, error) {
	prompt := BuildChunkPrompt(req.DocTitle, req.Pages, req.ContextSummary)

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+2*len(req.Images))
	blocks = append(blocks, anthropic.NewTextBlock(prompt))
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf(
			"Image: page %d, %dx%d pixels at %d DPI", img.Page, img.Width, img.Height, img.DPI)))
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			"image/png", base64.StdEncoding.EncodeToString(img.PNG)))
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}
	c.Stats.Record(time.Since(start).Milliseconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	var analysis ChunkAnalysis
	raw := stripCodeBlock(text.String())
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w (raw: %s)", err, truncate(raw, 200))
	}
	return &analysis, nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// classifyAPIError splits transient failures (rate limits, server
// errors, timeouts) from fatal ones (auth, bad request).
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode == 408 || apiErr.StatusCode >= 500:
			return &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		default:
			return fmt.Errorf("vision api: %w", apiErr)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RetryableError{StatusCode: 0, Message: "request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Network-level failures without a status are worth retrying.
	return &RetryableError{StatusCode: 0, Message: err.Error()}
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
