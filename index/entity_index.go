// Package index builds the immutable pattern index the scanner matches
// against. The index maps normalized pattern text (lower-cased,
// whitespace-collapsed) to the owning patterns and compiles all texts into
// a single Aho-Corasick automaton, so scanning stays linear in window
// length regardless of catalog size.
package index

import (
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/quillside/storybible-engine/internal/textutil"
	"github.com/quillside/storybible-engine/model"
)

// SkippedEntity records a malformed catalog entry excluded from an index
// build. Skips are warnings, never fatal to the build.
type SkippedEntity struct {
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
}

// EntityIndex is an immutable searchable structure over the catalog's names
// and tags. It is rebuilt wholesale whenever the catalog version changes;
// building twice from the same snapshot yields a structurally identical
// index.
type EntityIndex struct {
	version  uint64
	patterns []model.Pattern // pattern ID = slice position
	terms    []string        // unique normalized texts, automaton order
	owners   [][]int         // automaton term position -> owning pattern IDs
	ac       ahocorasick.AhoCorasick
}

// Build constructs an EntityIndex from a catalog snapshot. One pattern is
// produced per non-empty display name and per non-empty tag; patterns
// shorter than minPatternLen runes are excluded to avoid noise matches.
// Entities without a usable display name are skipped and reported.
func Build(entities []model.Entity, version uint64, minPatternLen int) (*EntityIndex, []SkippedEntity) {
	idx := &EntityIndex{version: version}
	var skipped []SkippedEntity

	termPos := make(map[string]int)

	addPattern := func(raw, entityID string, kind model.PatternKind) {
		text := textutil.Normalize(raw)
		if text == "" || utf8.RuneCountInString(text) < minPatternLen {
			return
		}

		p := model.Pattern{
			ID:       len(idx.patterns),
			Text:     text,
			EntityID: entityID,
			Kind:     kind,
		}
		idx.patterns = append(idx.patterns, p)

		if pos, exists := termPos[text]; exists {
			idx.owners[pos] = append(idx.owners[pos], p.ID)
			return
		}
		termPos[text] = len(idx.terms)
		idx.terms = append(idx.terms, text)
		idx.owners = append(idx.owners, []int{p.ID})
	}

	for _, entity := range entities {
		if !entity.HasName() {
			skipped = append(skipped, SkippedEntity{
				EntityID: entity.ID,
				Reason:   "empty or whitespace-only display name",
			})
			continue
		}

		addPattern(entity.DisplayName, entity.ID, model.PatternKindName)
		for _, tag := range entity.Tags {
			addPattern(tag, entity.ID, model.PatternKindTag)
		}
	}

	if len(idx.terms) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			MatchOnlyWholeWords: false,
			MatchKind:           ahocorasick.StandardMatch,
			DFA:                 true,
		})
		idx.ac = builder.Build(idx.terms)
	}

	return idx, skipped
}

// Version returns the catalog version this index was built from.
func (idx *EntityIndex) Version() uint64 { return idx.version }

// PatternCount returns the number of patterns in the index.
func (idx *EntityIndex) PatternCount() int { return len(idx.patterns) }

// TermCount returns the number of distinct normalized pattern texts.
func (idx *EntityIndex) TermCount() int { return len(idx.terms) }

// Pattern looks up a pattern by its ID.
func (idx *EntityIndex) Pattern(id int) (model.Pattern, bool) {
	if id < 0 || id >= len(idx.patterns) {
		return model.Pattern{}, false
	}
	return idx.patterns[id], true
}

// Patterns returns a copy of all patterns in build order.
func (idx *EntityIndex) Patterns() []model.Pattern {
	out := make([]model.Pattern, len(idx.patterns))
	copy(out, idx.patterns)
	return out
}

// EachOccurrence walks every occurrence of every pattern text in haystack,
// overlapping and nested occurrences included, calling fn with the byte
// span and the IDs of the patterns owning the matched text. Deduplication
// and boundary filtering are the caller's concern.
func (idx *EntityIndex) EachOccurrence(haystack string, fn func(start, end int, patternIDs []int)) {
	if len(idx.terms) == 0 || haystack == "" {
		return
	}
	iter := idx.ac.IterOverlapping(haystack)
	for m := iter.Next(); m != nil; m = iter.Next() {
		fn(m.Start(), m.End(), idx.owners[m.Pattern()])
	}
}
