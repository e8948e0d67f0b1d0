package protect

import "github.com/dgallion1/chunkd/internal/section"

// outcome is the named result of comparing an incoming span against the
// last emitted one. Making the contained case explicit keeps the three
// branches independently testable.
type outcome int

const (
	outcomeNewRegion outcome = iota // no overlap, emit separately
	outcomeExtend                   // partial overlap, grow the previous span
	outcomeContained                // fully inside the previous span, discard
)

func classify(prev section.Span, cur section.Span) outcome {
	switch {
	case cur.Start >= prev.End:
		return outcomeNewRegion
	case cur.End > prev.End:
		return outcomeExtend
	default:
		return outcomeContained
	}
}

// Merge collapses a sorted, possibly-overlapping block list into a
// minimal disjoint set. Content is always re-sliced from the original
// text, never concatenated from captured fragments. Touching spans
// (cur.Start == prev.End) stay separate. On partial overlap the earlier
// span's kind wins.
func Merge(text string, blocks []section.ProtectedBlock) []section.ProtectedBlock {
	if len(blocks) == 0 {
		return nil
	}

	out := make([]section.ProtectedBlock, 0, len(blocks))
	out = append(out, blocks[0])

	for _, cur := range blocks[1:] {
		prev := &out[len(out)-1]
		switch classify(prev.Span, cur.Span) {
		case outcomeNewRegion:
			out = append(out, cur)
		case outcomeExtend:
			prev.End = cur.End
			prev.Content = text[prev.Start:prev.End]
		case outcomeContained:
			// Nothing to do: cur is already covered by prev.
		}
	}
	return out
}
