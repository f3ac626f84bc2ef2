package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/index"
	engineerrors "github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/internal/highlight"
	"github.com/quillside/storybible-engine/internal/resolve"
	"github.com/quillside/storybible-engine/internal/scan"
	"github.com/quillside/storybible-engine/internal/window"
	"github.com/quillside/storybible-engine/model"
	"github.com/quillside/storybible-engine/services"
)

// sessionPhase is the per-document scheduler state.
type sessionPhase int

const (
	phaseIdle sessionPhase = iota
	phasePending
	phaseScanning
	phaseApplying
)

// session is the per-document scan pipeline: a debounce timer feeding
// window → scan → resolve → apply. Each change notification bumps the
// highlight revision and re-arms the timer under a sequence number, so a
// burst of keystrokes collapses into one scan and a superseded timer firing
// late is a no-op. The session never aborts an in-flight scan; stale results
// die at the revision check inside the applier.
type session struct {
	docID    string
	doc      services.DocumentSource
	state    *highlight.State
	applier  *highlight.Applier
	snapshot func() *index.EntityIndex
	record   func(event model.ScanEvent)
	settings config.EngineSettings

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	phase  sessionPhase
	prior  *window.Window
	closed bool
}

func newSession(docID string, doc services.DocumentSource, sink services.MarkSink, snapshot func() *index.EntityIndex, record func(event model.ScanEvent), settings config.EngineSettings) *session {
	return &session{
		docID:    docID,
		doc:      doc,
		state:    highlight.NewState(docID),
		applier:  highlight.NewApplier(sink),
		snapshot: snapshot,
		record:   record,
		settings: settings,
	}
}

// notify re-arms the debounce timer for a text or selection change. The
// revision bump here is what invalidates any scan already in flight.
func (s *session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state.Bump()
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.phase = phasePending
	s.timer = time.AfterFunc(s.settings.DebounceDelay, func() { s.fire(seq) })
}

// fire runs when the debounce timer elapses. A timer superseded by a newer
// notification carries a stale seq and does nothing.
func (s *session) fire(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.phase = phaseScanning
	s.mu.Unlock()

	s.runScan(seq)
}

// rescan bypasses the debounce: it bumps the revision (invalidating in-flight
// work), cancels any pending timer, and runs the pipeline synchronously.
// Used for the initial pass on attach and after catalog refreshes.
func (s *session) rescan() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Bump()
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.phase = phaseScanning
	s.mu.Unlock()

	s.runScan(seq)
}

// runScan executes one pass of the pipeline against an immutable snapshot of
// the document text and the current entity index.
func (s *session) runScan(seq uint64) {
	idx := s.snapshot()
	rev := s.state.Revision()
	text := s.doc.Text()
	cursor := s.doc.CursorOffset()

	s.mu.Lock()
	prior := s.prior
	s.mu.Unlock()

	started := time.Now()
	win := window.Compute(text, cursor, prior, s.settings)
	raw := scan.Scan(text[win.Start:win.End], idx)
	resolved := resolve.Resolve(raw, idx, win.Start)
	scanTime := time.Since(started)

	req := model.ScanRequest{
		ID:          uuid.New().String(),
		DocumentID:  s.docID,
		WindowStart: win.Start,
		WindowEnd:   win.End,
		Text:        text[win.Start:win.End],
		Revision:    rev,
		Degraded:    win.Degraded,
	}

	s.setPhaseIfCurrent(seq, phaseApplying)
	err := s.applier.Apply(s.state, req, resolved)

	switch {
	case err == nil:
		s.mu.Lock()
		s.prior = &win
		s.mu.Unlock()
		s.setPhaseIfCurrent(seq, phaseIdle)
	case errors.Is(err, engineerrors.ErrStaleScan):
		// A newer edit already re-armed the timer; just drop the result.
	case errors.Is(err, engineerrors.ErrStaleApply):
		log.Printf("Warning: apply aborted for document '%s', scheduling fresh scan: %v", s.docID, err)
		s.notify()
	default:
		log.Printf("Error: scan pipeline failed for document '%s': %v", s.docID, err)
		s.setPhaseIfCurrent(seq, phaseIdle)
	}

	if s.record != nil {
		s.record(model.ScanEvent{
			DocumentID:    s.docID,
			WindowStart:   win.Start,
			WindowEnd:     win.End,
			RawCount:      len(raw),
			ResolvedCount: len(resolved),
			Applied:       err == nil,
			Degraded:      win.Degraded,
			ScanTime:      scanTime,
			Timestamp:     time.Now(),
		})
	}
}

func (s *session) setPhaseIfCurrent(seq uint64, phase sessionPhase) {
	s.mu.Lock()
	if !s.closed && seq == s.seq {
		s.phase = phase
	}
	s.mu.Unlock()
}

// matchCount reports the applied annotation state for UI badges.
func (s *session) matchCount() services.MatchCount {
	return services.MatchCount{
		DocumentID: s.docID,
		Count:      s.state.MatchCount(),
		Revision:   s.state.AppliedRevision(),
	}
}

// close stops the timer and unmarks everything. Safe to call once; further
// notifications are ignored.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.applier.Clear(s.state)
}
