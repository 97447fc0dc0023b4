package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusRendering  JobStatus = "rendering"
	StatusChunking   JobStatus = "chunking"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusValidating JobStatus = "validating"
	StatusPlacing    JobStatus = "placing"
	StatusAnnotating JobStatus = "annotating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single document analysis.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks per-stage counts for status polling.
type Progress struct {
	TotalPages      int      `json:"total_pages"`
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	Detections      int      `json:"detections"`
	Highlighted     int      `json:"highlighted"`
	Discarded       int      `json:"discarded"`
	Errors          []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetTitle fills in the document title when the upload omitted one.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// SetContentHash records the document hash once parsing determines it.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrChunksProcessed atomically increments chunks processed.
func (j *Job) IncrChunksProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksProcessed++
	j.UpdatedAt = time.Now()
}

// SetCounts records pipeline totals.
func (j *Job) SetCounts(detections, highlighted, discarded int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Detections = detections
	j.Progress.Highlighted = highlighted
	j.Progress.Discarded = discarded
	j.UpdatedAt = time.Now()
}

// SetTotals records page and chunk counts.
func (j *Job) SetTotals(pages, chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalPages = pages
	j.Progress.TotalChunks = chunks
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ClearFileData drops the upload bytes once the run no longer needs them.
func (j *Job) ClearFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalPages:      j.Progress.TotalPages,
			TotalChunks:     j.Progress.TotalChunks,
			ChunksProcessed: j.Progress.ChunksProcessed,
			Detections:      j.Progress.Detections,
			Highlighted:     j.Progress.Highlighted,
			Discarded:       j.Progress.Discarded,
			Errors:          errs,
		},
	}
}
