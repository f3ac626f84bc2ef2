package store

import (
	"sort"
	"sync"

	"github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/internal/textutil"
	"github.com/quillside/storybible-engine/model"
)

// Mark is one highlight currently placed on a document, identified by its
// exact span in the ledger.
type Mark struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	EntityID string `json:"entity_id"`
}

// LiveDocument is a mutable document under edit. It implements the engine's
// DocumentSource contract (text and cursor reads) and its MarkSink contract
// (the engine-owned mark ledger). The host mutates text and cursor; only the
// engine touches marks.
type LiveDocument struct {
	mu     sync.RWMutex
	id     string
	text   string
	cursor int
	marks  map[model.Span]string
}

// NewLiveDocument creates a document with the given initial text and the
// cursor at offset 0.
func NewLiveDocument(id, text string) *LiveDocument {
	return &LiveDocument{
		id:    id,
		text:  text,
		marks: make(map[model.Span]string),
	}
}

// ID returns the document identifier.
func (d *LiveDocument) ID() string { return d.id }

// Text returns the current document text. Satisfies services.DocumentSource.
func (d *LiveDocument) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// CursorOffset returns the current cursor byte offset.
// Satisfies services.DocumentSource.
func (d *LiveDocument) CursorOffset() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

// WordCount returns the number of whitespace-separated words in the text.
// Satisfies services.DocumentSource.
func (d *LiveDocument) WordCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return textutil.CountWords(d.text)
}

// SetText replaces the document text and clamps the cursor into the new
// bounds. Existing marks are left in the ledger; the engine reconciles them
// on the next scan.
func (d *LiveDocument) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	if d.cursor > len(text) {
		d.cursor = len(text)
	}
}

// SetCursor moves the cursor, clamped to the text bounds.
func (d *LiveDocument) SetCursor(offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	d.cursor = offset
}

// ApplyMark records a highlight over [start, end). Re-applying an identical
// mark is a no-op. Out-of-bounds spans are rejected so the engine can detect
// a document that changed under an in-flight apply.
// Satisfies services.MarkSink.
func (d *LiveDocument) ApplyMark(start, end int, entityID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if start < 0 || end > len(d.text) || start >= end {
		return errors.NewValidationError("span", "mark span out of document bounds")
	}
	d.marks[model.Span{Start: start, End: end}] = entityID
	return nil
}

// RemoveMark deletes the highlight at exactly [start, end). Removing a mark
// that is not present is a no-op. Satisfies services.MarkSink.
func (d *LiveDocument) RemoveMark(start, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.marks, model.Span{Start: start, End: end})
	return nil
}

// Marks returns the current mark ledger sorted by start offset.
func (d *LiveDocument) Marks() []Mark {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Mark, 0, len(d.marks))
	for span, entityID := range d.marks {
		out = append(out, Mark{Start: span.Start, End: span.End, EntityID: entityID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// DocumentStore tracks the live documents currently open in the host.
// Documents are session-scoped and never persisted; highlights are
// recomputed from the catalog when a document is reopened.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*LiveDocument
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*LiveDocument)}
}

// Open registers a new live document. Opening an already open document is an
// error; close it first.
func (ds *DocumentStore) Open(id, text string) (*LiveDocument, error) {
	if id == "" {
		return nil, errors.NewValidationError("document_id", "document ID cannot be empty")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.docs[id]; exists {
		return nil, errors.NewDocumentAlreadyAttachedError(id)
	}
	doc := NewLiveDocument(id, text)
	ds.docs[id] = doc
	return doc, nil
}

// Get returns an open document by ID.
func (ds *DocumentStore) Get(id string) (*LiveDocument, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, exists := ds.docs[id]
	if !exists {
		return nil, errors.NewDocumentNotAttachedError(id)
	}
	return doc, nil
}

// Close removes a document from the store.
func (ds *DocumentStore) Close(id string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.docs[id]; !exists {
		return errors.NewDocumentNotAttachedError(id)
	}
	delete(ds.docs, id)
	return nil
}

// IDs returns the IDs of all open documents, sorted.
func (ds *DocumentStore) IDs() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ids := make([]string, 0, len(ds.docs))
	for id := range ds.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
