// Package highlight owns the per-document annotation state and its
// reconciliation. State is created when the engine attaches to a document,
// mutated only through the Applier, and destroyed on detach; everything
// else in the pipeline works on immutable snapshots.
package highlight

import (
	"sort"
	"sync"

	"github.com/quillside/storybible-engine/model"
)

// State is the mutable highlight bookkeeping for one document. The revision
// counter is bumped on every change notification; a scan captures the
// revision at submission time and its result is only applied while that
// revision is still current.
type State struct {
	mu       sync.RWMutex
	docID    string
	active   map[model.Span]model.ResolvedMatch
	revision uint64
	applied  uint64 // revision of the last scan that was actually applied
}

// NewState creates an empty highlight state for a document.
func NewState(docID string) *State {
	return &State{
		docID:  docID,
		active: make(map[model.Span]model.ResolvedMatch),
	}
}

// DocumentID returns the identity of the document this state belongs to.
func (s *State) DocumentID() string { return s.docID }

// Bump records a change notification and returns the new revision.
func (s *State) Bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	return s.revision
}

// Revision returns the current revision.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// AppliedRevision returns the revision of the last applied scan.
func (s *State) AppliedRevision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// MatchCount returns the number of active annotations, for UI badges.
func (s *State) MatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Matches returns a snapshot of the active annotations sorted by start
// offset.
func (s *State) Matches() []model.ResolvedMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchesLocked()
}

func (s *State) matchesLocked() []model.ResolvedMatch {
	out := make([]model.ResolvedMatch, 0, len(s.active))
	for _, m := range s.active {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
