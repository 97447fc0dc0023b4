// Package render rasterizes PDF pages to PNG images for vision analysis.
// It shells out to pdftoppm (poppler-utils), which must be probed for at
// startup so the service can degrade to pattern-only analysis when the
// tool is missing.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/docmark/internal/document"
)

// DefaultDPI matches the resolution the vision prompt describes to the
// model. Detections come back in pixels at this density.
const DefaultDPI = 300

// UnavailableError reports that the external rasterizer cannot be used.
// Callers should treat it as a capability gap, not a transient failure.
type UnavailableError struct {
	Tool   string
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("renderer unavailable: %s: %s", e.Tool, e.Reason)
}

// Image is one rasterized page.
type Image struct {
	Page   int
	PNG    []byte
	Width  int
	Height int
	DPI    int
}

// Renderer converts PDF pages to PNGs via pdftoppm.
type Renderer struct {
	Tool string
	DPI  int
}

func NewRenderer(dpi int) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{Tool: "pdftoppm", DPI: dpi}
}

// Probe checks that the rasterizer binary is on PATH. Call once at
// startup; a non-nil result is always an *UnavailableError.
func (r *Renderer) Probe() error {
	if _, err := exec.LookPath(r.Tool); err != nil {
		return &UnavailableError{Tool: r.Tool, Reason: err.Error()}
	}
	return nil
}

// RenderPage rasterizes a single 1-based page of the PDF at pdfPath.
func (r *Renderer) RenderPage(ctx context.Context, pdfPath string, pageNum int) (Image, error) {
	tmpDir, err := os.MkdirTemp("", "docmark-render-*")
	if err != nil {
		return Image{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, fmt.Sprintf("page-%d", pageNum))
	n := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, r.Tool,
		"-png",
		"-r", strconv.Itoa(r.DPI),
		"-f", n, "-l", n,
		"-singlefile",
		pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return Image{}, ctx.Err()
		}
		return Image{}, fmt.Errorf("%s page %d: %w: %s", r.Tool, pageNum, err, truncateOutput(out))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return Image{}, fmt.Errorf("read rendered page %d: %w", pageNum, err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode rendered page %d: %w", pageNum, err)
	}

	return Image{
		Page:   pageNum,
		PNG:    data,
		Width:  cfg.Width,
		Height: cfg.Height,
		DPI:    r.DPI,
	}, nil
}

// RenderPages rasterizes the given pages and records each page's raster
// geometry on the document so later normalization knows the pixel density.
func (r *Renderer) RenderPages(ctx context.Context, doc *document.Document, pdfPath string, pages []int) ([]Image, error) {
	images := make([]Image, 0, len(pages))
	for _, pageNum := range pages {
		img, err := r.RenderPage(ctx, pdfPath, pageNum)
		if err != nil {
			return nil, err
		}
		if err := doc.SetRaster(pageNum, document.RasterInfo{
			PixelWidth:  img.Width,
			PixelHeight: img.Height,
			DPI:         img.DPI,
		}); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func truncateOutput(out []byte) string {
	const max = 256
	s := string(out)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
