// Package window implements the scan window policy. The policy bounds
// scanner cost independent of document length: short documents are scanned
// whole, long ones get an up-to-limit word slice centered on the cursor,
// snapped outward to paragraph boundaries so matches are never truncated
// mid-word. A mention entirely outside the current window is not matched
// until the cursor moves to cover it.
package window

import (
	"strings"
	"unicode"

	"github.com/quillside/storybible-engine/config"
)

// Window is the bounded [Start, End) byte range of the document actually
// scanned in one pass. Degraded marks a window that was shrunk below policy
// size to fit the scan budget and may therefore miss matches a full scan
// would find.
type Window struct {
	Start    int  `json:"start"`
	End      int  `json:"end"`
	Degraded bool `json:"degraded"`
}

// Contains reports whether the byte offset lies inside the window.
func (w Window) Contains(offset int) bool {
	return offset >= w.Start && offset <= w.End
}

// Len returns the window width in bytes.
func (w Window) Len() int { return w.End - w.Start }

// reuseMarginDivisor: a prior window is reused while the cursor stays at
// least 1/8th of the window length away from both edges.
const reuseMarginDivisor = 8

// Compute decides the scan range for one rescan. prior may be nil; a prior
// window still comfortably containing the cursor is reused so small cursor
// movements do not recompute (and re-scan) a fresh range.
func Compute(fullText string, cursor int, prior *Window, settings config.EngineSettings) Window {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(fullText) {
		cursor = len(fullText)
	}

	starts, ends := wordSpans(fullText)
	wordCount := len(starts)

	if wordCount <= settings.WindowWordLimit && len(fullText) <= settings.MaxWindowBytes {
		return Window{Start: 0, End: len(fullText)}
	}

	if prior != nil && !prior.Degraded && prior.End <= len(fullText) {
		margin := prior.Len() / reuseMarginDivisor
		if cursor >= prior.Start+margin && cursor <= prior.End-margin {
			return *prior
		}
	}

	win := centeredWindow(fullText, cursor, starts, ends, settings.WindowWordLimit, true)

	// Shrink the radius until the window fits the scan budget. Degraded
	// windows skip paragraph snapping; word alignment is enough.
	limit := settings.WindowWordLimit
	for win.Len() > settings.MaxWindowBytes && limit > 1 {
		limit /= 2
		win = centeredWindow(fullText, cursor, starts, ends, limit, false)
		win.Degraded = true
	}
	if win.Len() > settings.MaxWindowBytes {
		win = clampBytes(fullText, cursor, settings.MaxWindowBytes)
		win.Degraded = true
	}

	return win
}

// centeredWindow takes the up-to-limit word slice centered on the cursor's
// word, optionally snapped outward to the nearest newline boundaries.
func centeredWindow(fullText string, cursor int, starts, ends []int, limit int, snapParagraph bool) Window {
	n := len(starts)
	if n == 0 || limit <= 0 {
		return Window{Start: 0, End: len(fullText)}
	}

	cw := cursorWord(starts, cursor)
	lo := cw - limit/2
	hi := lo + limit
	if lo < 0 {
		hi += -lo
		lo = 0
	}
	if hi > n {
		lo -= hi - n
		hi = n
		if lo < 0 {
			lo = 0
		}
	}

	win := Window{Start: starts[lo], End: ends[hi-1]}
	if snapParagraph {
		win.Start = snapToParagraphStart(fullText, win.Start)
		win.End = snapToParagraphEnd(fullText, win.End)
	}
	return win
}

// cursorWord returns the index of the word containing the cursor, or the
// nearest preceding word when the cursor sits in whitespace.
func cursorWord(starts []int, cursor int) int {
	lo, hi := 0, len(starts)
	for lo < hi {
		mid := (lo + hi) / 2
		if starts[mid] <= cursor {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0
	}
	return lo - 1
}

func snapToParagraphStart(text string, offset int) int {
	if idx := strings.LastIndexByte(text[:offset], '\n'); idx >= 0 {
		return idx + 1
	}
	return 0
}

func snapToParagraphEnd(text string, offset int) int {
	if idx := strings.IndexByte(text[offset:], '\n'); idx >= 0 {
		return offset + idx
	}
	return len(text)
}

// clampBytes is the last-resort budget recovery: a raw byte range around
// the cursor, nudged off any rune or word middle.
func clampBytes(text string, cursor, budget int) Window {
	start := cursor - budget/2
	if start < 0 {
		start = 0
	}
	end := start + budget
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !boundaryByte(text, start) {
		start--
	}
	for end < len(text) && !boundaryByte(text, end) {
		end++
	}
	return Window{Start: start, End: end}
}

// boundaryByte reports whether offset is a safe cut point: not inside a
// UTF-8 sequence and adjacent to whitespace.
func boundaryByte(text string, offset int) bool {
	if offset <= 0 || offset >= len(text) {
		return true
	}
	if text[offset]&0xC0 == 0x80 { // continuation byte
		return false
	}
	return unicode.IsSpace(rune(text[offset])) || unicode.IsSpace(rune(text[offset-1]))
}

// wordSpans returns the byte start and end offsets of every
// whitespace-separated word in text.
func wordSpans(text string) (starts, ends []int) {
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				ends = append(ends, i)
				inWord = false
			}
			continue
		}
		if !inWord {
			starts = append(starts, i)
			inWord = true
		}
	}
	if inWord {
		ends = append(ends, len(text))
	}
	return starts, ends
}
