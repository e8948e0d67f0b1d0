// Package chunker packs parsed sections into bounded-size chunks and
// repairs content split across page boundaries. It is the facade over
// the per-page pipeline: protected-region extraction, interval merging,
// section parsing, consolidation, and greedy packing, followed by the
// sequential continuation sweep.
package chunker

import (
	"log/slog"

	"github.com/dgallion1/chunkd/internal/parse"
	"github.com/dgallion1/chunkd/internal/protect"
	"github.com/dgallion1/chunkd/internal/section"
)

// Config controls chunking behavior. TargetSize is a soft goal; MinSize
// and MaxSize are hard bounds on emitted content, with the single
// exception of an unsplittable protected section above MaxSize.
type Config struct {
	TargetSize int  // preferred chunk size in characters
	MinSize    int  // hard floor to emit
	MaxSize    int  // hard ceiling to emit
	Merging    bool // run the cross-page continuation pass

	// AllowOversizeMerge lets a detected continuation merge even when
	// the result exceeds MaxSize. Continuation correctness outranks
	// the ceiling by default; the flag keeps that priority explicit.
	AllowOversizeMerge bool

	Patterns []protect.Pattern
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetSize:         1200,
		MinSize:            200,
		MaxSize:            2000,
		Merging:            true,
		AllowOversizeMerge: true,
		Patterns:           protect.DefaultPatterns(),
	}
}

// PageInput is one page of parsed text plus its metadata.
type PageInput struct {
	SourceID   string
	PageNumber int
	Text       string
}

// Engine runs the chunking pipeline for one document. The per-page
// pass is a pure function of page text and configuration, so pages may
// be processed concurrently; the continuation pass is sequential.
type Engine struct {
	cfg   Config
	log   *slog.Logger
	stats *Stats
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = 1200
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = 200
	}
	if cfg.MaxSize < cfg.TargetSize {
		cfg.MaxSize = cfg.TargetSize + cfg.TargetSize/2
	}
	if cfg.Patterns == nil {
		cfg.Patterns = protect.DefaultPatterns()
	}
	return &Engine{cfg: cfg, log: log, stats: NewStats()}
}

// Config returns the effective configuration after defaulting.
func (e *Engine) Config() Config { return e.cfg }

// Stats returns the run statistics collected so far.
func (e *Engine) Stats() StatsSnapshot { return e.stats.Snapshot() }

// ProcessPage runs the full per-page pipeline. Safe to call from
// multiple goroutines: all state is local except the stats collector,
// which locks internally.
func (e *Engine) ProcessPage(page PageInput) section.PageResult {
	log := e.log.With("source_id", page.SourceID, "page", page.PageNumber)

	blocks, dropped := protect.Extract(page.Text, e.cfg.Patterns, log)
	if dropped > 0 {
		e.stats.AddDroppedSpans(dropped)
	}
	merged := protect.Merge(page.Text, blocks)

	secs := parse.Sections(page.Text, merged)
	consolidated := parse.Consolidate(secs)
	e.stats.CountSections(consolidated)

	chunks, violations := Build(consolidated, page, e.cfg, log)
	if violations > 0 {
		e.stats.AddBoundaryViolations(violations)
	}
	return section.PageResult{PageNumber: page.PageNumber, Chunks: chunks}
}

// MergeDocument runs the sequential left-to-right continuation sweep
// over per-page results and returns the document's final chunk list.
// Multi-page continuations resolve by repeated adjacent merging.
func (e *Engine) MergeDocument(pages []section.PageResult) []section.Chunk {
	var out []section.Chunk
	for _, page := range pages {
		chunks := page.Chunks
		if e.cfg.Merging && len(out) > 0 && len(chunks) > 0 {
			prev := &out[len(out)-1]
			next := &chunks[0]
			if d := DetectContinuation(prev, next); d.Continuation {
				merged := mergeBoundary(prev, next)
				oversize := len(merged.ContentOnly) > e.cfg.MaxSize
				if oversize && !e.cfg.AllowOversizeMerge {
					e.log.Debug("continuation skipped, oversize merge disabled",
						"pages", []int{prev.Metadata.PageNumber, next.Metadata.PageNumber})
				} else {
					out[len(out)-1] = merged
					chunks = chunks[1:]
					e.stats.RecordContinuation(oversize)
				}
			}
		}
		out = append(out, chunks...)
	}
	e.stats.ObserveChunks(out)
	return out
}

// ProcessDocument is the synchronous path: every page through the
// per-page pass in order, then the continuation sweep.
func (e *Engine) ProcessDocument(pages []PageInput) []section.Chunk {
	results := make([]section.PageResult, len(pages))
	for i, p := range pages {
		results[i] = e.ProcessPage(p)
	}
	return e.MergeDocument(results)
}
