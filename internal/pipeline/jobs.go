package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/section"
)

// JobStatus represents the state of a chunking job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusChunking   JobStatus = "chunking"
	StatusMerging    JobStatus = "merging"
	StatusDelivering JobStatus = "delivering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Job tracks the state of a single document chunking run.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	SourceID string `json:"source_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	pages  []chunker.PageInput
	cfg    chunker.Config
	chunks []section.Chunk
	stats  chunker.StatsSnapshot
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalPages     int      `json:"total_pages"`
	PagesProcessed int      `json:"pages_processed"`
	ChunksEmitted  int      `json:"chunks_emitted"`
	Errors         []string `json:"errors"`
}

// NewJob builds a queued job holding the document's pages and its
// effective chunking configuration.
func NewJob(id, sourceID string, pages []chunker.PageInput, cfg chunker.Config) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		SourceID:  sourceID,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalPages: len(pages)},
		CreatedAt: now,
		UpdatedAt: now,
		pages:     pages,
		cfg:       cfg,
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

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrPagesProcessed atomically increments the processed-page count.
func (j *Job) IncrPagesProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesProcessed++
	j.UpdatedAt = time.Now()
}

// SetResult stores the final chunk list and run statistics.
func (j *Job) SetResult(chunks []section.Chunk, stats chunker.StatsSnapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunks = chunks
	j.stats = stats
	j.Progress.ChunksEmitted = len(chunks)
	j.UpdatedAt = time.Now()
}

// Result returns the final chunks and statistics; ok is false until
// the job has produced them.
func (j *Job) Result() ([]section.Chunk, chunker.StatsSnapshot, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.chunks == nil {
		return nil, chunker.StatsSnapshot{}, false
	}
	return j.chunks, j.stats, true
}

// Pages returns the document pages to process.
func (j *Job) Pages() []chunker.PageInput {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pages
}

// Config returns the job's chunking configuration.
func (j *Job) Config() chunker.Config {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cfg
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

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	SourceID string    `json:"source_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Progress Progress  `json:"progress"`
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
		ID:       j.ID,
		SourceID: j.SourceID,
		Status:   j.Status,
		Phase:    j.Phase,
		Progress: Progress{
			TotalPages:     j.Progress.TotalPages,
			PagesProcessed: j.Progress.PagesProcessed,
			ChunksEmitted:  j.Progress.ChunksEmitted,
			Errors:         errs,
		},
	}
}
