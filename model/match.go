package model

// PatternKind tells whether a pattern was derived from an entity's display
// name or from one of its tags.
type PatternKind string

const (
	PatternKindName PatternKind = "name"
	PatternKindTag  PatternKind = "tag"
)

// Pattern is a single normalized search key derived from an entity.
// Text is lower-cased and whitespace-collapsed; multiple patterns may share
// the same text when two entities use the same name or tag.
type Pattern struct {
	ID       int         `json:"id"`
	Text     string      `json:"text"`
	EntityID string      `json:"entity_id"`
	Kind     PatternKind `json:"kind"`
}

// Span is a half-open [Start, End) byte range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one position.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// RawMatch is a pattern occurrence found by the scanner before overlap
// resolution. Offsets are relative to the scanned window until the engine
// translates them to document-absolute positions.
type RawMatch struct {
	PatternID int `json:"pattern_id"`
	Start     int `json:"start"`
	End       int `json:"end"`
}

// ResolvedMatch is a raw match that survived overlap resolution; it is the
// unit that actually gets annotated. Offsets are document-absolute.
type ResolvedMatch struct {
	EntityID  string      `json:"entity_id"`
	PatternID int         `json:"pattern_id"`
	Kind      PatternKind `json:"kind"`
	Start     int         `json:"start"`
	End       int         `json:"end"`
}

// Span returns the annotated range of the match.
func (m ResolvedMatch) Span() Span {
	return Span{Start: m.Start, End: m.End}
}

// ScanRequest is an immutable snapshot handed to the scanner. Revision is
// the highlight state revision at submission time; results whose revision
// has been superseded by a newer edit are discarded, never applied.
// Degraded marks a window that was shrunk to fit the scan budget.
type ScanRequest struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	WindowStart int    `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
	Text        string `json:"text"`
	Revision    uint64 `json:"revision"`
	Degraded    bool   `json:"degraded"`
}
