// Package scan performs raw pattern matching of the entity index against a
// windowed text slice. One normalization pass plus one automaton pass keep
// scanning linear in window length; there is no backtracking.
package scan

import (
	"github.com/quillside/storybible-engine/index"
	"github.com/quillside/storybible-engine/internal/textutil"
	"github.com/quillside/storybible-engine/model"
)

// Scan locates every occurrence of every index pattern inside windowText,
// case-insensitively and with word-boundary anchoring on both ends: a match
// may not begin or end inside an alphanumeric run, so "Aria" never matches
// inside "Ariadne". Internal whitespace runs of any width match a single
// space in multi-word patterns. All occurrences are reported, nested and
// overlapping ones included; deduplication is the resolver's concern.
// Offsets are byte positions relative to windowText.
func Scan(windowText string, idx *index.EntityIndex) []model.RawMatch {
	if windowText == "" || idx == nil || idx.PatternCount() == 0 {
		return nil
	}

	norm, starts, ends := textutil.NormalizeWithOffsets(windowText)
	if norm == "" {
		return nil
	}

	var matches []model.RawMatch
	idx.EachOccurrence(norm, func(s, e int, patternIDs []int) {
		origStart := starts[s]
		origEnd := ends[e-1]

		if !textutil.BoundaryBefore(windowText, origStart) || !textutil.BoundaryAfter(windowText, origEnd) {
			return
		}

		for _, id := range patternIDs {
			matches = append(matches, model.RawMatch{
				PatternID: id,
				Start:     origStart,
				End:       origEnd,
			})
		}
	})

	return matches
}
