// Package resolve reduces raw scanner matches to the maximal
// non-overlapping set under a deterministic tie-break: longest span first,
// ties broken by earliest start, then lowest pattern ID. The longest (most
// specific) pattern therefore wins wherever spans collide, e.g. "Aria
// Blackwood" beats a nested "Aria".
package resolve

import (
	"sort"

	"github.com/quillside/storybible-engine/index"
	"github.com/quillside/storybible-engine/model"
)

// Resolve picks the surviving matches from raw and translates their window
// offsets to document-absolute positions by adding offset. The function is
// total and deterministic: the same input always yields the same output,
// and no two returned spans overlap. O(n log n) in the number of raw
// matches.
func Resolve(raw []model.RawMatch, idx *index.EntityIndex, offset int) []model.ResolvedMatch {
	if len(raw) == 0 {
		return nil
	}

	candidates := make([]model.RawMatch, len(raw))
	copy(candidates, raw)
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := candidates[i].End-candidates[i].Start, candidates[j].End-candidates[j].Start
		if li != lj {
			return li > lj
		}
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].PatternID < candidates[j].PatternID
	})

	// accepted stays sorted by start; binary search finds the only two
	// neighbors a candidate could overlap.
	var accepted []model.RawMatch
	for _, m := range candidates {
		i := sort.Search(len(accepted), func(k int) bool {
			return accepted[k].Start >= m.Start
		})
		if i > 0 && accepted[i-1].End > m.Start {
			continue
		}
		if i < len(accepted) && accepted[i].Start < m.End {
			continue
		}
		accepted = append(accepted, model.RawMatch{})
		copy(accepted[i+1:], accepted[i:])
		accepted[i] = m
	}

	resolved := make([]model.ResolvedMatch, 0, len(accepted))
	for _, m := range accepted {
		pattern, ok := idx.Pattern(m.PatternID)
		if !ok {
			continue
		}
		resolved = append(resolved, model.ResolvedMatch{
			EntityID:  pattern.EntityID,
			PatternID: pattern.ID,
			Kind:      pattern.Kind,
			Start:     m.Start + offset,
			End:       m.End + offset,
		})
	}
	return resolved
}
