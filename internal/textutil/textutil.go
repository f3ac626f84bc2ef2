// Package textutil provides the text normalization and word-boundary rules
// shared by pattern indexing and window scanning.
//
// Normalization is lower-casing plus collapsing every whitespace run to a
// single space. The word-boundary rule: a match may not begin or end inside
// a run of Unicode letters/digits. Apostrophes and hyphens are boundary
// characters, so "Aria" matches inside "Aria's"; patterns keep their own
// apostrophes, so "O'Brien" still matches "O'Brien" whole.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize lower-cases s and collapses internal whitespace runs to single
// spaces, trimming the ends. Used for pattern texts, where original offsets
// do not matter.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeWithOffsets normalizes text the same way Normalize does but keeps
// byte-offset maps back to the original text: starts[i] is the original
// offset of the rune that produced normalized byte i, ends[i] the offset
// just past it. A collapsed space maps to the whole whitespace run it
// replaced. A normalized match [s, e) therefore covers the original range
// [starts[s], ends[e-1]).
func NormalizeWithOffsets(text string) (string, []int, []int) {
	var b strings.Builder
	b.Grow(len(text))
	starts := make([]int, 0, len(text))
	ends := make([]int, 0, len(text))

	pendingSpace := false
	spaceStart, spaceEnd := 0, 0
	wrote := false

	for i, r := range text {
		size := utf8.RuneLen(r)
		if unicode.IsSpace(r) {
			if !pendingSpace {
				pendingSpace = true
				spaceStart = i
			}
			spaceEnd = i + size
			continue
		}

		if pendingSpace {
			if wrote { // leading whitespace is trimmed, not collapsed
				b.WriteByte(' ')
				starts = append(starts, spaceStart)
				ends = append(ends, spaceEnd)
			}
			pendingSpace = false
		}

		lower := unicode.ToLower(r)
		n := utf8.RuneLen(lower)
		b.WriteRune(lower)
		for k := 0; k < n; k++ {
			starts = append(starts, i)
			ends = append(ends, i+size)
		}
		wrote = true
	}

	// Trailing whitespace stays pending and is dropped.
	return b.String(), starts, ends
}

// CountWords returns the number of whitespace-separated words in text
// without allocating.
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			inWord = true
			count++
		}
	}
	return count
}

// IsWordRune reports whether r belongs to an alphanumeric run for boundary
// purposes.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// BoundaryBefore reports whether a match may begin at offset in text, i.e.
// the preceding rune (if any) is not alphanumeric.
func BoundaryBefore(text string, offset int) bool {
	if offset <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:offset])
	return !IsWordRune(r)
}

// BoundaryAfter reports whether a match may end at offset in text, i.e. the
// following rune (if any) is not alphanumeric.
func BoundaryAfter(text string, offset int) bool {
	if offset >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return !IsWordRune(r)
}
