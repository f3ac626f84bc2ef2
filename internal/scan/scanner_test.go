package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillside/storybible-engine/index"
	"github.com/quillside/storybible-engine/model"
)

func buildIndex(t *testing.T, entities ...model.Entity) *index.EntityIndex {
	t.Helper()
	idx, skipped := index.Build(entities, 1, 2)
	require.Empty(t, skipped)
	return idx
}

func matchedTexts(text string, matches []model.RawMatch) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, text[m.Start:m.End])
	}
	return out
}

func TestScanFindsNameMentions(t *testing.T) {
	idx := buildIndex(t, model.Entity{ID: "ent-aria", DisplayName: "Aria Blackwood"})

	text := "Then Aria Blackwood opened the door."
	matches := Scan(text, idx)

	require.Len(t, matches, 1)
	assert.Equal(t, "Aria Blackwood", text[matches[0].Start:matches[0].End])
}

func TestScanIsCaseInsensitive(t *testing.T) {
	idx := buildIndex(t,
		model.Entity{ID: "ent-aria", DisplayName: "Aria Blackwood"},
		model.Entity{ID: "ent-lib", DisplayName: "Whispering Library"},
	)

	text := "ARIA BLACKWOOD went to the whispering library."
	matches := Scan(text, idx)

	got := matchedTexts(text, matches)
	assert.ElementsMatch(t, []string{"ARIA BLACKWOOD", "whispering library"}, got)
}

func TestScanAnchorsWordBoundaries(t *testing.T) {
	idx := buildIndex(t, model.Entity{ID: "ent-aria", DisplayName: "Aria"})

	tests := []struct {
		name string
		text string
		want int
	}{
		{"inside longer word", "Ariadne walked in.", 0},
		{"suffix of longer word", "Malaria season again.", 0},
		{"standalone", "Aria walked in.", 1},
		{"punctuation adjacent", "Hello, Aria!", 1},
		{"possessive apostrophe", "Aria's cloak", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Scan(tt.text, idx), tt.want)
		})
	}
}

func TestScanMatchesAcrossWhitespaceRuns(t *testing.T) {
	idx := buildIndex(t, model.Entity{ID: "ent-aria", DisplayName: "Aria Blackwood"})

	text := "We saw Aria \t\n  Blackwood leave."
	matches := Scan(text, idx)

	require.Len(t, matches, 1)
	assert.Equal(t, "Aria \t\n  Blackwood", text[matches[0].Start:matches[0].End])
}

func TestScanMatchesTags(t *testing.T) {
	idx := buildIndex(t, model.Entity{
		ID:          "ent-aria",
		DisplayName: "Aria Blackwood",
		Tags:        []string{"scholar"},
	})

	text := "The scholar arrived."
	matches := Scan(text, idx)

	require.Len(t, matches, 1)
	p, ok := idx.Pattern(matches[0].PatternID)
	require.True(t, ok)
	assert.Equal(t, "ent-aria", p.EntityID)
	assert.Equal(t, model.PatternKindTag, p.Kind)
}

func TestScanReportsOverlappingOccurrences(t *testing.T) {
	idx := buildIndex(t,
		model.Entity{ID: "ent-short", DisplayName: "Aria"},
		model.Entity{ID: "ent-long", DisplayName: "Aria Blackwood"},
	)

	text := "Aria Blackwood visited."
	matches := Scan(text, idx)

	// Both the nested "Aria" and the full name are reported raw.
	got := matchedTexts(text, matches)
	assert.ElementsMatch(t, []string{"Aria", "Aria Blackwood"}, got)
}

func TestScanReportsEveryOccurrence(t *testing.T) {
	idx := buildIndex(t, model.Entity{ID: "ent-aria", DisplayName: "Aria"})

	text := "Aria met Aria near Aria."
	matches := Scan(text, idx)
	assert.Len(t, matches, 3)
}

func TestScanEmptyInputs(t *testing.T) {
	idx := buildIndex(t, model.Entity{ID: "ent-aria", DisplayName: "Aria"})

	assert.Nil(t, Scan("", idx))
	assert.Nil(t, Scan(strings.Repeat(" ", 10), idx))

	empty, _ := index.Build(nil, 1, 2)
	assert.Nil(t, Scan("Aria", empty))
}
