package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/chunkd/internal/section"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.TargetSize = 120
	cfg.MinSize = 20
	cfg.MaxSize = 400
	return cfg
}

func TestEngine_SentenceSplitAcrossPages(t *testing.T) {
	e := NewEngine(smallConfig(), testLogger())
	pages := []PageInput{
		{SourceID: "doc-1", PageNumber: 1, Text: "The processing order is fixed and the"},
		{SourceID: "doc-1", PageNumber: 2, Text: "remaining items are queued."},
	}

	chunks := e.ProcessDocument(pages)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 merged chunk, got %d", len(chunks))
	}
	want := "The processing order is fixed and the remaining items are queued."
	if chunks[0].ContentOnly != want {
		t.Errorf("expected the unbroken sentence, got %q", chunks[0].ContentOnly)
	}
	if chunks[0].Metadata.PageNumber != 1 || chunks[0].Metadata.PageEnd != 2 {
		t.Errorf("expected page span 1..2, got %d..%d",
			chunks[0].Metadata.PageNumber, chunks[0].Metadata.PageEnd)
	}
	if got := e.Stats().ContinuationsMerged; got != 1 {
		t.Errorf("expected 1 continuation recorded, got %d", got)
	}
}

func TestEngine_MergingDisabled(t *testing.T) {
	cfg := smallConfig()
	cfg.Merging = false
	e := NewEngine(cfg, testLogger())
	pages := []PageInput{
		{SourceID: "doc-1", PageNumber: 1, Text: "The processing order is fixed and the"},
		{SourceID: "doc-1", PageNumber: 2, Text: "remaining items are queued."},
	}

	chunks := e.ProcessDocument(pages)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 unmerged chunks, got %d", len(chunks))
	}
	if e.Stats().ContinuationsMerged != 0 {
		t.Errorf("expected no continuations recorded, got %d", e.Stats().ContinuationsMerged)
	}
}

func TestEngine_OversizeMergeFlagged(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxSize = 60
	cfg.MinSize = 10
	e := NewEngine(cfg, testLogger())
	pages := []PageInput{
		{SourceID: "doc-1", PageNumber: 1, Text: "This first fragment keeps running well past the ceiling and the"},
		{SourceID: "doc-1", PageNumber: 2, Text: "second fragment finishes the thought a long way later on."},
	}

	chunks := e.ProcessDocument(pages)
	if len(chunks) != 1 {
		t.Fatalf("expected the oversize merge to proceed, got %d chunks", len(chunks))
	}
	snap := e.Stats()
	if snap.ContinuationsMerged != 1 {
		t.Errorf("expected 1 continuation, got %d", snap.ContinuationsMerged)
	}
	if snap.OversizeMerges != 1 {
		t.Errorf("expected the merge flagged oversize, got %d", snap.OversizeMerges)
	}
}

func TestEngine_OversizeMergeDisabled(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxSize = 60
	cfg.MinSize = 10
	cfg.AllowOversizeMerge = false
	e := NewEngine(cfg, testLogger())
	pages := []PageInput{
		{SourceID: "doc-1", PageNumber: 1, Text: "This first fragment keeps running well past the ceiling and the"},
		{SourceID: "doc-1", PageNumber: 2, Text: "second fragment finishes the thought a long way later on."},
	}

	chunks := e.ProcessDocument(pages)
	if len(chunks) != 2 {
		t.Fatalf("expected the oversize merge skipped, got %d chunks", len(chunks))
	}
	if e.Stats().ContinuationsMerged != 0 {
		t.Errorf("expected no continuation recorded, got %d", e.Stats().ContinuationsMerged)
	}
}

func TestEngine_ProtectedContentSurvivesPipeline(t *testing.T) {
	code := "```go\nfunc main() {}\n```"
	text := "# Setup\n\nInstall the binary first.\n\n" + code + "\n\nThen run it.\n"
	e := NewEngine(smallConfig(), testLogger())

	chunks := e.ProcessDocument([]PageInput{{SourceID: "doc-1", PageNumber: 1, Text: text}})
	joined := ""
	for _, c := range chunks {
		joined += c.ContentOnly + "\n"
	}
	if !strings.Contains(joined, code) {
		t.Error("expected the code fence to survive chunking intact")
	}
	for _, c := range chunks {
		inner := strings.Count(c.ContentOnly, "```")
		if inner == 1 {
			t.Error("code fence split across chunk boundaries")
		}
	}
}

func TestEngine_BreadcrumbsFlowToChunks(t *testing.T) {
	intro := strings.Repeat("General operations guidance fills this introduction. ", 3)
	text := "# Operations\n\n" + intro + "\n\n## Deploys\n\nShip twice a week after review sign-off is complete.\n"
	e := NewEngine(smallConfig(), testLogger())

	chunks := e.ProcessDocument([]PageInput{{SourceID: "doc-1", PageNumber: 1, Text: text}})
	found := false
	for _, c := range chunks {
		if strings.Join(c.Metadata.Breadcrumbs, "/") == "Operations/Deploys" {
			found = true
		}
	}
	if !found {
		t.Error("expected a chunk carrying the Operations/Deploys path")
	}
}

func TestEngine_DeterministicAcrossRuns(t *testing.T) {
	text := "# Report\n\nAlpha beta gamma delta. More sentences follow here.\n\n- one\n- two\n\nFinal paragraph closes the page.\n"
	pages := []PageInput{{SourceID: "doc-9", PageNumber: 1, Text: text}}

	a := NewEngine(smallConfig(), testLogger()).ProcessDocument(pages)
	b := NewEngine(smallConfig(), testLogger()).ProcessDocument(pages)
	if len(a) != len(b) {
		t.Fatalf("expected identical chunk counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d: ids differ across runs", i)
		}
	}
}

func TestEngine_StatsCollected(t *testing.T) {
	text := "# Title\n\nA full sentence lives here.\n\n- item one\n- item two\n"
	e := NewEngine(smallConfig(), testLogger())
	e.ProcessDocument([]PageInput{{SourceID: "doc-1", PageNumber: 1, Text: text}})

	snap := e.Stats()
	if snap.SectionCounts[string(section.KindHeaderMajor)] == 0 {
		t.Error("expected header sections counted")
	}
	if snap.SectionCounts[string(section.KindList)] == 0 {
		t.Error("expected list sections counted")
	}
	if snap.ChunkSizes.Count == 0 {
		t.Error("expected chunk sizes observed")
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Config{}, testLogger())
	cfg := e.Config()
	if cfg.TargetSize != 1200 || cfg.MinSize != 200 {
		t.Errorf("unexpected defaults: target=%d min=%d", cfg.TargetSize, cfg.MinSize)
	}
	if cfg.MaxSize != 1800 {
		t.Errorf("expected ceiling derived from target, got %d", cfg.MaxSize)
	}
	if len(cfg.Patterns) == 0 {
		t.Error("expected default detector patterns")
	}
}
