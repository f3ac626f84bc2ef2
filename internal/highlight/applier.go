package highlight

import (
	"sort"

	engineerrors "github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/model"
	"github.com/quillside/storybible-engine/services"
)

// Applier reconciles resolved scan results against a document's live
// annotation state, issuing minimal mark/unmark operations so unchanged
// spans are never disturbed (keeping editor selection and undo state
// intact on every keystroke).
type Applier struct {
	sink services.MarkSink
}

// NewApplier creates an applier writing through to the given mark sink.
func NewApplier(sink services.MarkSink) *Applier {
	return &Applier{sink: sink}
}

// Apply commits the resolved match set of req to state. The result is
// discarded with ErrStaleScan when req's revision has been superseded by a
// newer edit; only monotonically newer results ever become visible. A sink
// failure mid-batch (the document raced the scan) aborts the batch without
// advancing the applied watermark and surfaces as ErrStaleApply so the
// caller can schedule a fresh scan. The active set always reflects the
// marks actually issued to the sink, so the recovery scan's diff reconciles
// whatever the aborted batch left behind.
func (a *Applier) Apply(state *State, req model.ScanRequest, resolved []model.ResolvedMatch) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if req.Revision != state.revision {
		return engineerrors.NewStaleScanError(state.docID, req.Revision, state.revision)
	}

	next := make(map[model.Span]model.ResolvedMatch, len(resolved))
	for _, m := range resolved {
		next[m.Span()] = m
	}

	var removals, additions []model.ResolvedMatch
	for span, m := range state.active {
		if _, keep := next[span]; !keep {
			removals = append(removals, m)
		}
	}
	for span, m := range next {
		if _, exists := state.active[span]; !exists {
			additions = append(additions, m)
		}
	}
	sort.Slice(removals, func(i, j int) bool { return removals[i].Start < removals[j].Start })
	sort.Slice(additions, func(i, j int) bool { return additions[i].Start < additions[j].Start })

	// Unmark before marking so the sink never sees transient overlap.
	// The active set is updated in lockstep with each sink call: when a
	// batch aborts midway it stays an accurate diff baseline for the
	// recovery scan, which then re-issues exactly the missing operations.
	for _, m := range removals {
		if err := a.sink.RemoveMark(m.Start, m.End); err != nil {
			return engineerrors.NewStaleApplyError(state.docID, err)
		}
		delete(state.active, m.Span())
	}
	for _, m := range additions {
		if err := a.sink.ApplyMark(m.Start, m.End, m.EntityID); err != nil {
			return engineerrors.NewStaleApplyError(state.docID, err)
		}
		state.active[m.Span()] = m
	}

	state.applied = req.Revision
	return nil
}

// Clear unmarks every active annotation, used when a document detaches.
// Sink errors are ignored; the mark namespace dies with the document.
func (a *Applier) Clear(state *State) {
	state.mu.Lock()
	defer state.mu.Unlock()

	for _, m := range state.matchesLocked() {
		_ = a.sink.RemoveMark(m.Start, m.End)
	}
	state.active = make(map[model.Span]model.ResolvedMatch)
}
