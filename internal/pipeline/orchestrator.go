package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docmark/internal/analyze"
	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/findings"
	"github.com/dgallion1/docmark/internal/store"
)

// Orchestrator manages the document analysis pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	patterns *analyze.PatternAnalyzer
	vision   VisionAnalyzer
	renderer Rasterizer
	writer   *annotate.Writer
	db       *store.Store
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. A nil vision client or renderer
// runs the service pattern-only.
func NewOrchestrator(cfg config.Config, patterns *analyze.PatternAnalyzer, vision VisionAnalyzer, renderer Rasterizer, writer *annotate.Writer, db *store.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		patterns: patterns,
		vision:   vision,
		renderer: renderer,
		writer:   writer,
		db:       db,
		log:      log,
		cfg:      cfg,
	}
}

func (o *Orchestrator) workerOptions() Options {
	return Options{
		ChunkCfg: chunker.Config{
			TargetTokens:   o.cfg.ChunkTargetTokens,
			HardMaxTokens:  o.cfg.ChunkHardMaxTokens,
			TokensPerImage: o.cfg.TokensPerImage,
		},
		GatePolicy:    findings.GatePolicy{HighTrustExempt: o.cfg.HighTrustExempt},
		DedupCellSize: o.cfg.DedupCellSize,
		CarryContext:  o.cfg.CarryContext,
		MaxAttempts:   o.cfg.MaxChunkAttempts,
		BaseTimeout:   o.cfg.ChunkBaseTimeout,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.patterns, o.vision, o.renderer, o.writer, o.db, o.log, o.workerOptions())
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Store returns the persistence layer for direct use by API handlers.
func (o *Orchestrator) Store() *store.Store {
	return o.db
}

// VisionStats exposes call statistics when a vision client is configured.
func (o *Orchestrator) VisionStats() *analyze.LLMStats {
	if vc, ok := o.vision.(*analyze.VisionClient); ok {
		return vc.Stats
	}
	return nil
}
