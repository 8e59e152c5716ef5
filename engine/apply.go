package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/termfx/graft/lang"
)

// Edit is one pending span replacement produced by a rewrite.
type Edit struct {
	Span lang.Span `json:"span"`
	Text string    `json:"text"`
}

// Apply splices edits into source and returns the resulting document.
// Edits are ordered by span; exact duplicates collapse to one application,
// while overlapping edits that disagree are a RewriteConflict. Source is
// never mutated.
func Apply(source []byte, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return string(source), nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].Span.End < sorted[j].Span.End
	})

	var b strings.Builder
	b.Grow(len(source))
	cursor := 0
	last := -1
	for i, e := range sorted {
		if last >= 0 {
			prev := sorted[last]
			if e.Span == prev.Span && e.Text == prev.Text {
				continue
			}
			if e.Span.Overlaps(prev.Span) {
				return "", &RewriteConflict{A: prev, B: e}
			}
		}
		if e.Span.Start < 0 || e.Span.End > len(source) || e.Span.Start > e.Span.End {
			return "", fmt.Errorf("edit span [%d,%d) out of bounds for %d byte source",
				e.Span.Start, e.Span.End, len(source))
		}
		b.Write(source[cursor:e.Span.Start])
		b.WriteString(e.Text)
		cursor = e.Span.End
		last = i
	}
	b.Write(source[cursor:])
	return b.String(), nil
}
