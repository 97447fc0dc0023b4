package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docmark/internal/analyze"
	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/findings"
	"github.com/dgallion1/docmark/internal/parser"
	"github.com/dgallion1/docmark/internal/render"
	"github.com/dgallion1/docmark/internal/report"
	"github.com/dgallion1/docmark/internal/store"
)

// VisionAnalyzer is the model-backed analysis collaborator.
type VisionAnalyzer interface {
	AnalyzeChunk(ctx context.Context, req analyze.ChunkRequest) (*analyze.ChunkAnalysis, error)
	Model() string
}

// Rasterizer renders document pages to images.
type Rasterizer interface {
	RenderPages(ctx context.Context, doc *document.Document, pdfPath string, pages []int) ([]render.Image, error)
}

// Options bundles worker tuning knobs.
type Options struct {
	ChunkCfg      chunker.Config
	GatePolicy    findings.GatePolicy
	DedupCellSize float64
	CarryContext  bool
	MaxAttempts   int
	BaseTimeout   time.Duration
}

// Worker runs the full analysis pipeline for one job at a time.
type Worker struct {
	patterns *analyze.PatternAnalyzer
	vision   VisionAnalyzer
	renderer Rasterizer
	writer   *annotate.Writer
	db       *store.Store
	log      *slog.Logger
	opts     Options
}

func NewWorker(patterns *analyze.PatternAnalyzer, vision VisionAnalyzer, renderer Rasterizer, writer *annotate.Writer, db *store.Store, log *slog.Logger, opts Options) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = MaxRetries
	}
	if opts.BaseTimeout <= 0 {
		opts.BaseTimeout = 2 * time.Minute
	}
	if opts.DedupCellSize <= 0 {
		opts.DedupCellSize = findings.DefaultCellSize
	}
	return &Worker{
		patterns: patterns,
		vision:   vision,
		renderer: renderer,
		writer:   writer,
		db:       db,
		log:      log,
		opts:     opts,
	}
}

// Process runs the full analysis pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	doc, err := parser.LoadPDF(data, job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetContentHash(doc.Hash)
	if job.Title == "" {
		job.SetTitle(doc.Title)
	}

	pages := make([]int, 0, doc.PageCount())
	for _, p := range doc.Pages() {
		pages = append(pages, p.Number)
	}
	job.SetTotals(len(pages), 0)

	// Phase 1.5: Dedup check against completed runs.
	exists, err := w.db.HasAnalysis(doc.Hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if exists {
		log.Info("document already analyzed", "hash", doc.Hash)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Render pages for vision analysis. Render failure degrades
	// the run to pattern-only instead of failing it.
	var images map[int]render.Image
	renderErr := ""
	if w.vision != nil && w.renderer != nil {
		job.SetStatus(StatusRendering, "rendering")
		images, err = w.renderAll(ctx, doc, data, pages)
		if err != nil {
			if ctx.Err() != nil {
				job.AddError(ctx.Err().Error())
				job.SetStatus(StatusFailed, "rendering")
				return
			}
			log.Warn("rendering failed, continuing pattern-only", "error", err)
			renderErr = fmt.Sprintf("render: %s", err)
			job.AddError(renderErr)
			images = nil
		}
	}

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunking")
	costs := chunker.EstimateCosts(doc, w.opts.ChunkCfg)
	chunks, err := chunker.Split(costs, w.opts.ChunkCfg)
	if err != nil {
		log.Error("chunking failed", "error", err)
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunking")
		return
	}
	job.SetTotals(len(pages), len(chunks))
	log.Info("chunked document", "pages", len(pages), "chunks", len(chunks))

	// Phase 4: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	summary := findings.Summary{DocumentHash: doc.Hash}
	if renderErr != "" {
		summary = summary.WithError(renderErr)
	}

	raw := w.patterns.Analyze(doc, pages)
	log.Info("pattern analysis complete", "detections", len(raw))

	if len(images) > 0 {
		visionDets, sum, aborted := w.analyzeChunks(ctx, log, job, doc, chunks, images, summary)
		summary = sum
		if aborted {
			job.SetStatus(StatusFailed, "analyzing")
			return
		}
		raw = append(raw, visionDets...)
	} else {
		for _, c := range chunks {
			summary = summary.WithChunk(findings.ChunkTelemetry{
				Index: c.Index, Pages: c.PageRange(), CostTokens: c.Cost, Skipped: true,
			})
			job.IncrChunksProcessed()
		}
	}
	summary.DetectionsIn = len(raw)

	// Phase 5: Normalize, validate, dedup.
	job.SetStatus(StatusValidating, "validating")
	normalized, badInput := findings.NormalizeAll(doc, raw)
	summary = summary.WithDiscards(badInput)
	summary.Normalized = len(normalized)

	valid, rejected := findings.ValidateAll(doc, normalized, w.opts.GatePolicy)
	summary = summary.WithDiscards(rejected)
	summary.Validated = len(valid)

	kept, merged := findings.Dedup(valid, w.opts.DedupCellSize)
	summary = summary.WithMerged(merged)
	summary.Deduplicated = len(kept)

	// Phase 6: Place.
	job.SetStatus(StatusPlacing, "placing")
	instructions, placeErrs := findings.Place(doc, kept)
	failedPlacement := make(map[string]bool, len(placeErrs))
	for _, pe := range placeErrs {
		log.Error("placement failed", "detection", pe.DetectionID, "error", pe)
		job.AddError(pe.Error())
		summary = summary.WithError(pe.Error())
		failedPlacement[pe.DetectionID] = true
	}
	placed := make([]findings.Detection, 0, len(kept))
	for _, d := range kept {
		if failedPlacement[d.ID] {
			continue
		}
		d.Status = findings.StatusPlaced
		placed = append(placed, d)
	}
	summary.Placed = len(instructions)
	job.SetCounts(summary.DetectionsIn, summary.Placed, len(summary.Discards))

	// Phase 7: Annotate and persist.
	job.SetStatus(StatusAnnotating, "annotating")
	annotated, err := w.writer.Annotate(doc, data, instructions)
	if err != nil {
		log.Error("annotation failed", "error", err)
		job.AddError(fmt.Sprintf("annotate: %s", err))
		job.SetStatus(StatusFailed, "annotating")
		return
	}

	ledger := assembleLedger(placed, badInput, rejected, merged)
	md := report.Build(job.Title, summary, placed)

	model := ""
	if w.vision != nil {
		model = w.vision.Model()
	}
	rec := &store.Analysis{
		Hash:       doc.Hash,
		Title:      job.Title,
		Filename:   job.Filename,
		PageCount:  doc.PageCount(),
		Model:      model,
		Summary:    summary,
		Raw:        raw,
		Detections: ledger,
		Placed:     instructions,
		Report:     md,
	}
	if err := w.db.SaveAnalysis(rec); err != nil {
		log.Error("save analysis failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	if err := w.db.SavePDF(doc.Hash, annotated); err != nil {
		log.Error("save pdf failed", "error", err)
		job.AddError(fmt.Sprintf("store pdf: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	job.ClearFileData()
	if len(summary.Errors) > 0 || chunksDegraded(summary) {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("analysis complete",
		"hash", doc.Hash,
		"detections", summary.DetectionsIn,
		"placed", summary.Placed,
		"discarded", len(summary.Discards))
}

// renderAll rasterizes every page via a temp copy of the upload.
func (w *Worker) renderAll(ctx context.Context, doc *document.Document, data []byte, pages []int) (map[int]render.Image, error) {
	tmp, err := os.CreateTemp("", "docmark-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	imgs, err := w.renderer.RenderPages(ctx, doc, tmpPath, pages)
	if err != nil {
		return nil, err
	}
	out := make(map[int]render.Image, len(imgs))
	for _, img := range imgs {
		out[img.Page] = img
	}
	return out, nil
}

// analyzeChunks runs vision analysis chunk by chunk in order, carrying
// the model's context summary forward. A failed chunk degrades the run;
// a canceled context aborts it.
func (w *Worker) analyzeChunks(ctx context.Context, log *slog.Logger, job *Job, doc *document.Document, chunks []chunker.Chunk, images map[int]render.Image, summary findings.Summary) ([]findings.Detection, findings.Summary, bool) {
	var dets []findings.Detection
	contextSummary := ""

	for _, chunk := range chunks {
		req := analyze.ChunkRequest{
			DocTitle:       job.Title,
			Pages:          chunk.Pages,
			ContextSummary: contextSummary,
		}
		for _, pageNum := range chunk.Pages {
			img, ok := images[pageNum]
			if !ok {
				continue
			}
			req.Images = append(req.Images, analyze.PageImage{
				Page:   img.Page,
				PNG:    img.PNG,
				Width:  img.Width,
				Height: img.Height,
				DPI:    img.DPI,
			})
		}

		start := time.Now()
		var res *analyze.ChunkAnalysis
		var lastErr error
		attempts := 0
		for attempt := range w.opts.MaxAttempts {
			attempts = attempt + 1
			callCtx, cancel := context.WithTimeout(ctx, AttemptTimeout(w.opts.BaseTimeout, attempt))
			res, lastErr = w.vision.AnalyzeChunk(callCtx, req)
			cancel()
			if lastErr == nil || !IsRetryable(lastErr) {
				break
			}
			log.Warn("retryable analysis error", "chunk", chunk.Index, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(Backoff(attempt)):
			case <-ctx.Done():
				job.AddError(ctx.Err().Error())
				return nil, summary, true
			}
		}
		if ctx.Err() != nil {
			job.AddError(ctx.Err().Error())
			return nil, summary, true
		}

		tele := findings.ChunkTelemetry{
			Index:      chunk.Index,
			Pages:      chunk.PageRange(),
			CostTokens: chunk.Cost,
			DurationMs: time.Since(start).Milliseconds(),
			Attempts:   attempts,
		}
		if lastErr != nil {
			log.Error("chunk analysis failed", "chunk", chunk.Index, "pages", chunk.PageRange(), "error", lastErr)
			job.AddError(fmt.Sprintf("chunk %d: %s", chunk.Index, lastErr))
			tele.Error = lastErr.Error()
			summary = summary.WithChunk(tele)
			job.IncrChunksProcessed()
			continue
		}

		for _, f := range res.Findings {
			dpi := render.DefaultDPI
			if img, ok := images[f.Page]; ok {
				dpi = img.DPI
			}
			dets = append(dets, f.Detection(uuid.NewString(), dpi))
		}
		tele.Findings = len(res.Findings)
		summary = summary.WithChunk(tele)
		job.IncrChunksProcessed()

		if w.opts.CarryContext {
			contextSummary = res.ContextSummary
		}
	}
	return dets, summary, false
}

// assembleLedger collects every detection the run saw, in lifecycle
// order, for the stored record.
func assembleLedger(placed, badInput, rejected, merged []findings.Detection) []findings.Detection {
	out := make([]findings.Detection, 0, len(placed)+len(badInput)+len(rejected)+len(merged))
	out = append(out, placed...)
	out = append(out, badInput...)
	out = append(out, rejected...)
	out = append(out, merged...)
	return out
}

// chunksDegraded reports whether any analysis chunk failed outright.
func chunksDegraded(summary findings.Summary) bool {
	for _, c := range summary.Chunks {
		if c.Error != "" {
			return true
		}
	}
	return false
}
