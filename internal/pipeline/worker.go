package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/section"
	"github.com/dgallion1/chunkd/internal/sink"
)

// Worker processes a single document job: pages in parallel, then the
// sequential continuation sweep, then optional downstream delivery.
type Worker struct {
	sink  *sink.Client // nil when no sink is configured
	log   *slog.Logger
	stats *chunker.Stats // process-wide totals across jobs

	maxConcurrentPages int
}

func NewWorker(sc *sink.Client, log *slog.Logger, stats *chunker.Stats, maxPages int) *Worker {
	if maxPages <= 0 {
		maxPages = 8
	}
	return &Worker{
		sink:               sc,
		log:                log,
		stats:              stats,
		maxConcurrentPages: maxPages,
	}
}

// Process runs the full chunking pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source_id", job.SourceID)

	pages := job.Pages()
	if len(pages) == 0 {
		job.AddError("no pages to chunk")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	engine := chunker.NewEngine(job.Config(), log)

	// Phase 1: per-page pass. Pages are independent, so they run in
	// parallel under a bounded semaphore; results keep page order.
	job.SetStatus(StatusChunking, "chunking")
	results := make([]section.PageResult, len(pages))
	sem := make(chan struct{}, w.maxConcurrentPages)
	var wg sync.WaitGroup

	for i, page := range pages {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, page chunker.PageInput) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = engine.ProcessPage(page)
			job.IncrPagesProcessed()
		}(i, page)
	}
	wg.Wait()

	// Phase 2: sequential boundary sweep. Requires every page's final
	// chunk list, so it runs only after the parallel pass completes.
	job.SetStatus(StatusMerging, "merging")
	chunks := engine.MergeDocument(results)
	stats := engine.Stats()
	job.SetResult(chunks, stats)
	w.stats.Merge(stats)
	log.Info("document chunked",
		"pages", len(pages),
		"chunks", len(chunks),
		"continuations", stats.ContinuationsMerged,
		"violations", stats.BoundaryViolations,
	)

	if len(chunks) == 0 {
		job.AddError("no chunkable content")
		job.SetStatus(StatusFailed, "merging")
		return
	}

	// Phase 3: optional downstream delivery with retry.
	if w.sink == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	job.SetStatus(StatusDelivering, "delivering")
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.sink.PushChunks(ctx, job.SourceID, chunks, stats)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable delivery error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		// Delivery failure never destroys the chunking result.
		log.Error("delivery failed", "error", lastErr)
		job.AddError(fmt.Sprintf("deliver: %s", lastErr))
		job.SetStatus(StatusPartial, "done")
		return
	}

	job.SetStatus(StatusCompleted, "done")
}
