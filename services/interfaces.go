package services

import (
	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/model"
)

// ChangeKind tells the engine what kind of document event occurred. The
// engine only needs to know "something changed"; both kinds re-arm the
// debounce timer and eventually trigger a rescan.
type ChangeKind string

const (
	ChangeKindText      ChangeKind = "text"
	ChangeKindSelection ChangeKind = "selection"
)

// ChangeEvent is a document change notification pushed by the host editor.
type ChangeEvent struct {
	Kind ChangeKind `json:"kind"`
}

// MatchCount summarizes the active annotation state of one document,
// exposed for UI badges ("N Story Bible references").
type MatchCount struct {
	DocumentID string `json:"document_id"`
	Count      int    `json:"count"`
	Revision   uint64 `json:"revision"`
}

// CatalogSource is the entity catalog collaborator. Entities returns the
// current snapshot; Version is a token that changes whenever entries are
// added, edited, or removed, letting the engine skip no-op rebuilds.
type CatalogSource interface {
	Entities() []model.Entity
	Version() uint64
}

// DocumentSource is the document model collaborator. WordCount is
// best-effort; the window policy falls back to counting itself when the
// host returns a non-positive value.
type DocumentSource interface {
	Text() string
	CursorOffset() int
	WordCount() int
}

// MarkSink receives the engine's highlight operations. Both operations are
// idempotent and act on a logical mark namespace reserved for the engine,
// so they never collide with user-applied formatting. An error from either
// call aborts the whole apply batch (the document raced the scan) and the
// engine schedules a fresh scan instead of applying partially-stale marks.
type MarkSink interface {
	ApplyMark(start, end int, entityID string) error
	RemoveMark(start, end int) error
}

// AnnotationEngine is the contract the engine exposes to its host. One
// engine serves many documents; each attached document gets its own
// debounced scan pipeline and highlight state, destroyed on detach.
type AnnotationEngine interface {
	AttachDocument(docID string, doc DocumentSource, sink MarkSink) error
	DetachDocument(docID string) error
	NotifyChange(docID string, event ChangeEvent) error
	Rescan(docID string) error
	ActiveMatchCount(docID string) (MatchCount, error)
	ActiveMatches(docID string) ([]model.ResolvedMatch, error)
	RefreshCatalog() error
	Settings() config.EngineSettings
}

// JobTracker defines read operations for background jobs.
type JobTracker interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(documentID string, status *model.JobStatus) []*model.Job
}

// AsyncCatalogRefresher extends AnnotationEngine with a job-backed catalog
// refresh for hosts that want to poll rebuild progress.
type AsyncCatalogRefresher interface {
	AnnotationEngine
	RefreshCatalogAsync() (string, error) // Returns job ID
}
