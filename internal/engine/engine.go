// Package engine wires the annotation pipeline together: it owns the entity
// index, one scan session per attached document, and the background job
// manager for catalog rebuilds.
package engine

import (
	"log"
	"sync"

	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/index"
	engineerrors "github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/internal/jobs"
	"github.com/quillside/storybible-engine/model"
	"github.com/quillside/storybible-engine/services"
)

// ScanRecorder receives one event per scan pipeline run. Implemented by the
// analytics service; nil disables recording.
type ScanRecorder interface {
	RecordScan(event model.ScanEvent)
}

// Engine manages annotation sessions for many documents against one shared
// entity index. It implements services.AnnotationEngine, services.JobTracker,
// and services.AsyncCatalogRefresher.
type Engine struct {
	mu         sync.RWMutex
	catalog    services.CatalogSource
	idx        *index.EntityIndex
	sessions   map[string]*session
	settings   config.EngineSettings
	jobManager *jobs.Manager
	recorder   ScanRecorder
}

// NewEngine creates an engine reading entities from the given catalog and
// builds the initial index. Zero-valued settings get defaults.
func NewEngine(catalog services.CatalogSource, settings config.EngineSettings) *Engine {
	settings.ApplyDefaults()
	if conflicts := settings.Validate(); len(conflicts) > 0 {
		log.Printf("Warning: engine settings have conflicts, proceeding anyway: %v", conflicts)
	}

	eng := &Engine{
		catalog:    catalog,
		sessions:   make(map[string]*session),
		settings:   settings,
		jobManager: jobs.NewManager(settings.MaxJobWorkers),
	}
	eng.jobManager.Start()
	eng.idx = eng.buildIndex()
	return eng
}

// SetScanRecorder installs the analytics recorder. Call before attaching
// documents; scans on already-attached documents keep the recorder they
// were created with.
func (e *Engine) SetScanRecorder(recorder ScanRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = recorder
}

// buildIndex rebuilds the entity index from the current catalog snapshot.
// Malformed entries are skipped with a warning tally, never fatal.
func (e *Engine) buildIndex() *index.EntityIndex {
	entities := e.catalog.Entities()
	version := e.catalog.Version()
	idx, skipped := index.Build(entities, version, e.settings.MinPatternLength)
	if len(skipped) > 0 {
		log.Printf("Warning: skipped %d catalog entries during index build (version %d)", len(skipped), version)
		for _, sk := range skipped {
			log.Printf("Warning: skipped entity '%s': %s", sk.EntityID, sk.Reason)
		}
	}
	log.Printf("Entity index built: version %d, %d patterns, %d terms", version, idx.PatternCount(), idx.TermCount())
	return idx
}

// currentIndex returns the index snapshot sessions scan against.
func (e *Engine) currentIndex() *index.EntityIndex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// AttachDocument creates a scan session for the document and runs the
// initial full pass synchronously, so highlights are present before the
// first keystroke.
func (e *Engine) AttachDocument(docID string, doc services.DocumentSource, sink services.MarkSink) error {
	if docID == "" {
		return engineerrors.NewValidationError("document_id", "document ID cannot be empty")
	}
	if doc == nil || sink == nil {
		return engineerrors.NewValidationError("document", "document source and mark sink are required")
	}

	e.mu.Lock()
	if _, exists := e.sessions[docID]; exists {
		e.mu.Unlock()
		return engineerrors.NewDocumentAlreadyAttachedError(docID)
	}

	var record func(event model.ScanEvent)
	if e.recorder != nil {
		record = e.recorder.RecordScan
	}
	sess := newSession(docID, doc, sink, e.currentIndex, record, e.settings)
	e.sessions[docID] = sess
	e.mu.Unlock()

	sess.rescan()
	log.Printf("Document '%s' attached.", docID)
	return nil
}

// DetachDocument destroys the document's session and removes its marks.
func (e *Engine) DetachDocument(docID string) error {
	e.mu.Lock()
	sess, exists := e.sessions[docID]
	if !exists {
		e.mu.Unlock()
		return engineerrors.NewDocumentNotAttachedError(docID)
	}
	delete(e.sessions, docID)
	e.mu.Unlock()

	sess.close()
	log.Printf("Document '%s' detached.", docID)
	return nil
}

// NotifyChange re-arms the document's debounce timer. Text and selection
// changes are treated alike; both eventually trigger a rescan.
func (e *Engine) NotifyChange(docID string, _ services.ChangeEvent) error {
	sess, err := e.session(docID)
	if err != nil {
		return err
	}
	sess.notify()
	return nil
}

// Rescan runs the document's pipeline immediately, bypassing the debounce.
func (e *Engine) Rescan(docID string) error {
	sess, err := e.session(docID)
	if err != nil {
		return err
	}
	sess.rescan()
	return nil
}

// ActiveMatchCount reports the document's applied annotation state.
func (e *Engine) ActiveMatchCount(docID string) (services.MatchCount, error) {
	sess, err := e.session(docID)
	if err != nil {
		return services.MatchCount{}, err
	}
	return sess.matchCount(), nil
}

// ActiveMatches returns the document's applied matches sorted by offset.
func (e *Engine) ActiveMatches(docID string) ([]model.ResolvedMatch, error) {
	sess, err := e.session(docID)
	if err != nil {
		return nil, err
	}
	return sess.state.Matches(), nil
}

// RefreshCatalog rebuilds the entity index if the catalog version changed,
// then rescans every attached document against the new index. A no-op when
// the version is unchanged.
func (e *Engine) RefreshCatalog() error {
	e.mu.Lock()
	if e.idx != nil && e.idx.Version() == e.catalog.Version() {
		e.mu.Unlock()
		return nil
	}
	e.idx = e.buildIndex()
	stale := make([]*session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		stale = append(stale, sess)
	}
	e.mu.Unlock()

	for _, sess := range stale {
		sess.rescan()
	}
	return nil
}

// Settings returns a copy of the engine configuration.
func (e *Engine) Settings() config.EngineSettings {
	return e.settings
}

// GetJob delegates to the job manager. Satisfies services.JobTracker.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs delegates to the job manager. Satisfies services.JobTracker.
func (e *Engine) ListJobs(documentID string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(documentID, status)
}

// JobMetrics exposes job execution counters for the analytics surface.
func (e *Engine) JobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// JobSuccessRate returns the percentage of completed jobs that succeeded.
func (e *Engine) JobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// CurrentJobWorkload returns the number of jobs currently running.
func (e *Engine) CurrentJobWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}

// AttachedDocuments returns the number of documents with live sessions.
func (e *Engine) AttachedDocuments() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// ActiveEntityCounts aggregates applied match counts per entity across all
// attached documents, for the analytics dashboard.
func (e *Engine) ActiveEntityCounts() map[string]int {
	e.mu.RLock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		sessions = append(sessions, sess)
	}
	e.mu.RUnlock()

	counts := make(map[string]int)
	for _, sess := range sessions {
		for _, m := range sess.state.Matches() {
			counts[m.EntityID]++
		}
	}
	return counts
}

// Stop shuts down the job manager and stops all session timers. Marks are
// left in place; the mark namespace dies with the host documents.
func (e *Engine) Stop() {
	e.jobManager.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sess := range e.sessions {
		sess.mu.Lock()
		sess.closed = true
		if sess.timer != nil {
			sess.timer.Stop()
			sess.timer = nil
		}
		sess.mu.Unlock()
	}
}

func (e *Engine) session(docID string) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sess, exists := e.sessions[docID]
	if !exists {
		return nil, engineerrors.NewDocumentNotAttachedError(docID)
	}
	return sess, nil
}
