package chunker

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/chunkd/internal/section"
)

var (
	numeralRe = regexp.MustCompile(`\d`)
	dateRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`)
	entityRe  = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)
)

// ChunkID returns a deterministic hex id for a chunk: identical source,
// page, and content always hash to the same id.
func ChunkID(sourceID string, pageNumber int, content string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s", sourceID, pageNumber, content))
	return fmt.Sprintf("%x", h[:8])
}

// newChunk assembles a chunk from packed content: the text view carries
// the breadcrumb path as a leading context line, content_only stays
// verbatim, and quality signals are computed over the content.
func newChunk(content string, kind section.Kind, crumbs []string, page PageInput) section.Chunk {
	text := content
	if len(crumbs) > 0 {
		text = strings.Join(crumbs, " > ") + "\n\n" + content
	}
	return section.Chunk{
		ID:          ChunkID(page.SourceID, page.PageNumber, content),
		Text:        text,
		ContentOnly: content,
		Metadata:    buildMetadata(content, kind, crumbs, page.SourceID, page.PageNumber),
	}
}

func buildMetadata(content string, kind section.Kind, crumbs []string, sourceID string, pageNumber int) section.Metadata {
	return section.Metadata{
		SourceID:      sourceID,
		PageNumber:    pageNumber,
		Kind:          kind,
		Breadcrumbs:   crumbs,
		CharCount:     len(content),
		WordCount:     len(strings.Fields(content)),
		SentenceCount: countSentences(content),
		HasNumerals:   numeralRe.MatchString(content),
		HasDates:      dateRe.MatchString(content),
		HasEntities:   entityRe.MatchString(content),
	}
}

// countSentences counts terminal punctuation followed by whitespace or
// end of text. Rough, but stable across re-runs, which is what the
// quality signals need.
func countSentences(s string) int {
	count := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '.' && c != '?' && c != '!' {
			continue
		}
		if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
			count++
		}
	}
	return count
}
