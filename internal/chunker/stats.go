package chunker

import (
	"sort"
	"sync"

	"github.com/dgallion1/chunkd/internal/section"
)

// SizeDistribution summarizes emitted chunk sizes in characters.
type SizeDistribution struct {
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// StatsSnapshot is the run-level statistics record: every recovered
// anomaly is surfaced here so operators can audit corpus quality
// without the run failing.
type StatsSnapshot struct {
	SectionCounts       map[string]int   `json:"section_counts"`
	ChunkSizes          SizeDistribution `json:"chunk_sizes"`
	DroppedSpans        int              `json:"dropped_spans"`
	BoundaryViolations  int              `json:"boundary_violations"`
	ContinuationsMerged int              `json:"continuations_merged"`
	OversizeMerges      int              `json:"oversize_merges"`
}

// Stats is a thread-safe collector. Per-page workers record into it
// concurrently; Snapshot is safe to call at any time.
type Stats struct {
	mu                  sync.Mutex
	sectionCounts       map[section.Kind]int
	chunkSizes          []int
	droppedSpans        int
	boundaryViolations  int
	continuationsMerged int
	oversizeMerges      int
}

func NewStats() *Stats {
	return &Stats{sectionCounts: make(map[section.Kind]int)}
}

func (s *Stats) CountSections(secs []section.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range secs {
		s.sectionCounts[sec.Kind]++
	}
}

func (s *Stats) AddDroppedSpans(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedSpans += n
}

func (s *Stats) AddBoundaryViolations(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boundaryViolations += n
}

func (s *Stats) RecordContinuation(oversize bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuationsMerged++
	if oversize {
		s.oversizeMerges++
	}
}

func (s *Stats) ObserveChunks(chunks []section.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunkSizes = append(s.chunkSizes, len(c.ContentOnly))
	}
}

// Merge folds a finished run's snapshot into this collector. The
// orchestrator uses it to keep process-wide totals across jobs.
func (s *Stats) Merge(snap StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, n := range snap.SectionCounts {
		s.sectionCounts[section.Kind(k)] += n
	}
	s.droppedSpans += snap.DroppedSpans
	s.boundaryViolations += snap.BoundaryViolations
	s.continuationsMerged += snap.ContinuationsMerged
	s.oversizeMerges += snap.OversizeMerges
	// Per-chunk sizes are not recoverable from a snapshot; carry the
	// bounds forward so process-wide min/max stay honest.
	if snap.ChunkSizes.Count > 0 {
		s.chunkSizes = append(s.chunkSizes, snap.ChunkSizes.Min, snap.ChunkSizes.Max)
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.sectionCounts))
	for k, n := range s.sectionCounts {
		counts[string(k)] = n
	}

	snap := StatsSnapshot{
		SectionCounts:       counts,
		DroppedSpans:        s.droppedSpans,
		BoundaryViolations:  s.boundaryViolations,
		ContinuationsMerged: s.continuationsMerged,
		OversizeMerges:      s.oversizeMerges,
	}
	if len(s.chunkSizes) == 0 {
		return snap
	}

	values := make([]int, len(s.chunkSizes))
	copy(values, s.chunkSizes)
	sort.Ints(values)

	sum := 0
	for _, v := range values {
		sum += v
	}
	snap.ChunkSizes = SizeDistribution{
		Count: len(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Avg:   float64(sum) / float64(len(values)),
		P50:   percentile(values, 50),
		P95:   percentile(values, 95),
	}
	return snap
}

func percentile(sortedValues []int, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
