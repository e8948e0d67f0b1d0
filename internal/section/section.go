// Package section defines the data model shared by the chunking pipeline:
// spans, protected blocks, typed sections, and the emitted chunks.
package section

// Kind classifies a section or chunk. The set is closed; the parser,
// consolidator, and builder switch over it exhaustively.
type Kind string

const (
	KindHeaderMajor Kind = "header-major"
	KindHeaderMinor Kind = "header-minor"
	KindParagraph   Kind = "paragraph"
	KindList        Kind = "list"
	KindTable       Kind = "table"
	KindImage       Kind = "image"
	KindCode        Kind = "code"
	KindFormula     Kind = "formula"

	// KindText is the raw classification the parser assigns to plain
	// line runs. The consolidator resolves it to paragraph or list.
	KindText Kind = "text"
)

// Protected reports whether the kind marks an unsplittable region.
func (k Kind) Protected() bool {
	switch k {
	case KindTable, KindImage, KindCode, KindFormula:
		return true
	}
	return false
}

// Header reports whether the kind is a header of any level.
func (k Kind) Header() bool {
	return k == KindHeaderMajor || k == KindHeaderMinor
}

// Span is a half-open interval [Start, End) into a page's text.
// A well-formed span satisfies 0 <= Start < End <= len(text).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of covered positions.
func (s Span) Len() int { return s.End - s.Start }

// Valid reports whether the span is well-formed against text of length n.
func (s Span) Valid(n int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= n
}

// ProtectedBlock is a source region that must never be split across
// chunk boundaries. Content is always an exact slice of the page text.
type ProtectedBlock struct {
	Span
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// Section is one typed node of the partition the parser produces.
// Sections appear in document order and cover the source exactly once.
type Section struct {
	Kind        Kind     `json:"kind"`
	Content     string   `json:"content"`
	Breadcrumbs []string `json:"breadcrumbs,omitempty"`
	Span        Span     `json:"span"`
}

// Metadata carries per-chunk provenance and quality signals.
type Metadata struct {
	SourceID      string   `json:"source_id"`
	PageNumber    int      `json:"page_number"`
	PageEnd       int      `json:"page_end,omitempty"` // set when a chunk spans a page boundary
	Kind          Kind     `json:"kind"`
	Breadcrumbs   []string `json:"breadcrumbs,omitempty"`
	CharCount     int      `json:"char_count"`
	WordCount     int      `json:"word_count"`
	SentenceCount int      `json:"sentence_count"`
	HasNumerals   bool     `json:"has_numerals"`
	HasDates      bool     `json:"has_dates"`
	HasEntities   bool     `json:"has_entities"`
}

// Chunk is the persisted pipeline output. ID is a deterministic hash of
// the chunk's provenance and content, stable across re-runs.
type Chunk struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	ContentOnly string   `json:"content_only"`
	Metadata    Metadata `json:"metadata"`
}

// PageResult is the ordered chunk list one page produced. The boundary
// pass reads only the first and last chunk of each page.
type PageResult struct {
	PageNumber int     `json:"page_number"`
	Chunks     []Chunk `json:"chunks"`
}

// First returns the page's leading chunk, or nil when the page is empty.
func (p *PageResult) First() *Chunk {
	if len(p.Chunks) == 0 {
		return nil
	}
	return &p.Chunks[0]
}

// Last returns the page's trailing chunk, or nil when the page is empty.
func (p *PageResult) Last() *Chunk {
	if len(p.Chunks) == 0 {
		return nil
	}
	return &p.Chunks[len(p.Chunks)-1]
}
