package chunker

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/chunkd/internal/section"
)

// SectionSeparator joins section contents inside one chunk.
const SectionSeparator = "\n\n"

type buildState int

const (
	stateEmpty buildState = iota
	stateAccumulating
)

// builder is the greedy single-pass packer. It grows a buffer toward
// TargetSize, never past MaxSize while the buffer can legally flush,
// and force-appends when the MinSize floor conflicts with the ceiling.
type builder struct {
	cfg  Config
	page PageInput
	log  *slog.Logger

	state     buildState
	parts     []string
	crumbs    []string
	firstKind section.Kind
	bodyKind  section.Kind // first non-header kind in the buffer
	size      int

	chunks     []section.Chunk
	violations int
}

// Build packs consolidated sections into chunks for one page. The
// returned violation count covers every emitted chunk whose content
// falls outside [MinSize, MaxSize], oversized standalone protected
// sections excepted.
func Build(secs []section.Section, page PageInput, cfg Config, log *slog.Logger) ([]section.Chunk, int) {
	b := &builder{cfg: cfg, page: page, log: log}
	for _, s := range secs {
		b.add(s)
	}
	b.finish()
	return b.chunks, b.violations
}

func (b *builder) add(s section.Section) {
	if s.Content == "" {
		return
	}
	n := len(s.Content)

	// A single unsplittable section above the ceiling stands alone,
	// with any pending buffer flushed on both sides.
	if n > b.cfg.MaxSize {
		b.flush()
		b.chunks = append(b.chunks, newChunk(s.Content, s.Kind, s.Breadcrumbs, b.page))
		return
	}

	if b.state == stateEmpty {
		b.start(s)
		return
	}

	projected := b.size + len(SectionSeparator) + n
	switch {
	case projected > b.cfg.MaxSize:
		if b.size >= b.cfg.MinSize {
			b.flush()
			b.start(s)
		} else {
			// MinSize floor outranks the MaxSize ceiling: force the
			// append, emit immediately, record the violation.
			b.append(s)
			b.flush()
		}
	case b.size >= b.cfg.TargetSize:
		b.flush()
		b.start(s)
	default:
		b.append(s)
	}
}

func (b *builder) start(s section.Section) {
	b.state = stateAccumulating
	b.parts = b.parts[:0]
	b.parts = append(b.parts, s.Content)
	b.crumbs = s.Breadcrumbs
	b.firstKind = s.Kind
	b.bodyKind = ""
	if !s.Kind.Header() {
		b.bodyKind = s.Kind
	}
	b.size = len(s.Content)
}

func (b *builder) append(s section.Section) {
	b.parts = append(b.parts, s.Content)
	b.size += len(SectionSeparator) + len(s.Content)
	if b.bodyKind == "" && !s.Kind.Header() {
		b.bodyKind = s.Kind
	}
}

func (b *builder) flush() {
	if b.state == stateEmpty {
		return
	}
	content := strings.Join(b.parts, SectionSeparator)
	kind := b.bodyKind
	if kind == "" {
		kind = b.firstKind
	}
	if len(content) < b.cfg.MinSize || len(content) > b.cfg.MaxSize {
		b.violations++
		b.log.Debug("size boundary violation",
			"page", b.page.PageNumber, "size", len(content),
			"min", b.cfg.MinSize, "max", b.cfg.MaxSize)
	}
	b.chunks = append(b.chunks, newChunk(content, kind, b.crumbs, b.page))
	b.state = stateEmpty
	b.size = 0
}

// finish flushes the tail buffer. A runt tail below MinSize folds into
// the previous chunk when that stays under the ceiling, so only a page
// too small to chunk at all emits an undersized chunk.
func (b *builder) finish() {
	if b.state == stateEmpty {
		return
	}
	if b.size < b.cfg.MinSize && len(b.chunks) > 0 {
		last := &b.chunks[len(b.chunks)-1]
		tail := strings.Join(b.parts, SectionSeparator)
		combined := len(last.ContentOnly) + len(SectionSeparator) + len(tail)
		if combined <= b.cfg.MaxSize {
			merged := last.ContentOnly + SectionSeparator + tail
			*last = newChunk(merged, last.Metadata.Kind, last.Metadata.Breadcrumbs, b.page)
			b.state = stateEmpty
			b.size = 0
			return
		}
	}
	b.flush()
}
