package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/config"
	"github.com/dgallion1/chunkd/internal/sink"
)

// Orchestrator manages the document chunking pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	sink  *sink.Client
	log   *slog.Logger
	cfg   config.Config
	stats *chunker.Stats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Start launches its workers.
func NewOrchestrator(cfg config.Config, sc *sink.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		sink:  sc,
		log:   log,
		cfg:   cfg,
		stats: chunker.NewStats(),
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
			w := NewWorker(o.sink, o.log, o.stats, o.cfg.MaxConcurrentPages)
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

// Stats returns process-wide chunking totals across finished jobs.
func (o *Orchestrator) Stats() chunker.StatsSnapshot {
	return o.stats.Snapshot()
}

// MergeStats folds a run's statistics into the process-wide totals.
// Synchronous runs bypass the worker pool, so their engines report
// through here.
func (o *Orchestrator) MergeStats(snap chunker.StatsSnapshot) {
	o.stats.Merge(snap)
}

// ChunkConfig builds a job's effective chunking configuration from the
// service defaults, applying any per-request overrides.
func (o *Orchestrator) ChunkConfig(overrides func(*chunker.Config)) chunker.Config {
	cfg := chunker.Config{
		TargetSize:         o.cfg.DefaultTargetSize,
		MinSize:            o.cfg.DefaultMinSize,
		MaxSize:            o.cfg.DefaultMaxSize,
		Merging:            o.cfg.MergingEnabled,
		AllowOversizeMerge: o.cfg.AllowOversizeMerge,
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return cfg
}
