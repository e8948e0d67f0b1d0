// Package protect finds unsplittable source regions (tables, images,
// code fences, formulas) and collapses overlapping matches into a
// disjoint, ordered block set.
package protect

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/dgallion1/chunkd/internal/section"
)

// Pattern is one named detector: a kind tag plus its matching rule.
type Pattern struct {
	Kind section.Kind
	Rule *regexp.Regexp
}

// DefaultPatterns returns the built-in detector set for markdown-like
// page text. Callers may replace or extend it via configuration.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Kind: section.KindCode, Rule: regexp.MustCompile("(?s)```.*?```")},
		{Kind: section.KindFormula, Rule: regexp.MustCompile(`(?s)\$\$.*?\$\$`)},
		{Kind: section.KindTable, Rule: regexp.MustCompile(`(?m)^\|[^\n]*(?:\n\|[^\n]*)*`)},
		{Kind: section.KindImage, Rule: regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)},
	}
}

// CompilePatterns builds detectors from kind/rule string pairs, as
// supplied in a configuration record. Unknown kinds and invalid rules
// are rejected so a bad config fails at submit time, not mid-page.
func CompilePatterns(rules map[string]string) ([]Pattern, error) {
	kinds := map[string]section.Kind{
		"table":   section.KindTable,
		"image":   section.KindImage,
		"code":    section.KindCode,
		"formula": section.KindFormula,
	}
	var out []Pattern
	for kind, rule := range rules {
		k, ok := kinds[kind]
		if !ok {
			return nil, fmt.Errorf("unknown protected kind %q", kind)
		}
		re, err := regexp.Compile(rule)
		if err != nil {
			return nil, fmt.Errorf("compile rule for %q: %w", kind, err)
		}
		out = append(out, Pattern{Kind: k, Rule: re})
	}
	// Deterministic detector order regardless of map iteration.
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// Extract runs every detector over the page text and pools the matches,
// sorted by start ascending with ties broken by end descending so
// enclosing matches precede nested ones. Spans with start >= end are
// dropped and logged as malformed; they never abort the page. The
// returned count of dropped spans feeds the run statistics.
func Extract(text string, patterns []Pattern, log *slog.Logger) ([]section.ProtectedBlock, int) {
	var blocks []section.ProtectedBlock
	dropped := 0

	for _, p := range patterns {
		for _, loc := range p.Rule.FindAllStringIndex(text, -1) {
			sp := section.Span{Start: loc[0], End: loc[1]}
			if !sp.Valid(len(text)) {
				dropped++
				log.Warn("malformed span dropped",
					"kind", p.Kind, "start", sp.Start, "end", sp.End)
				continue
			}
			blocks = append(blocks, section.ProtectedBlock{
				Span:    sp,
				Kind:    p.Kind,
				Content: text[sp.Start:sp.End],
			})
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Start != blocks[j].Start {
			return blocks[i].Start < blocks[j].Start
		}
		return blocks[i].End > blocks[j].End
	})
	return blocks, dropped
}
