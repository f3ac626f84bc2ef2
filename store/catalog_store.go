// Package store holds the host-side collaborators of the annotation
// engine: the entity catalog and the live documents being edited.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/model"
)

// CatalogStore owns the story bible entities. It implements the engine's
// CatalogSource contract: every mutation bumps the version token, letting
// the engine skip index rebuilds when nothing changed. Snapshots keep
// insertion order so index builds are deterministic.
type CatalogStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Entity
	order   []string
	version uint64
}

// NewCatalogStore creates an empty catalog.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{byID: make(map[string]model.Entity)}
}

// Upsert adds or replaces an entity and bumps the catalog version.
// The entity ID is required; an unknown type falls back to custom. An empty
// display name is accepted here; the index build skips it with a warning
// while the catalog keeps the author's draft entry.
func (cs *CatalogStore) Upsert(entity model.Entity) error {
	if entity.ID == "" {
		return errors.NewValidationError("id", "entity ID cannot be empty")
	}
	if !entity.Type.IsValid() {
		entity.Type = model.ParseEntityType(string(entity.Type))
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.byID[entity.ID]; !exists {
		cs.order = append(cs.order, entity.ID)
	}
	cs.byID[entity.ID] = entity
	cs.version++
	return nil
}

// Delete removes an entity and bumps the catalog version.
func (cs *CatalogStore) Delete(id string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.byID[id]; !exists {
		return errors.NewEntityNotFoundError(id)
	}
	delete(cs.byID, id)
	for i, existing := range cs.order {
		if existing == id {
			cs.order = append(cs.order[:i], cs.order[i+1:]...)
			break
		}
	}
	cs.version++
	return nil
}

// Get retrieves an entity by ID.
func (cs *CatalogStore) Get(id string) (model.Entity, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entity, exists := cs.byID[id]
	if !exists {
		return model.Entity{}, errors.NewEntityNotFoundError(id)
	}
	return entity, nil
}

// Entities returns a snapshot of the catalog in insertion order.
// Satisfies services.CatalogSource.
func (cs *CatalogStore) Entities() []model.Entity {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]model.Entity, 0, len(cs.order))
	for _, id := range cs.order {
		out = append(out, cs.byID[id])
	}
	return out
}

// Version returns the current catalog version token.
// Satisfies services.CatalogSource.
func (cs *CatalogStore) Version() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.version
}

// Count returns the number of entities in the catalog.
func (cs *CatalogStore) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.byID)
}

// gobCatalogData is a helper struct for Gob encoding/decoding CatalogStore
// data. It excludes the mutex.
type gobCatalogData struct {
	ByID    map[string]model.Entity
	Order   []string
	Version uint64
}

// GobEncode implements the gob.GobEncoder interface for CatalogStore.
func (cs *CatalogStore) GobEncode() ([]byte, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(gobCatalogData{ByID: cs.byID, Order: cs.order, Version: cs.version}); err != nil {
		return nil, fmt.Errorf("failed to gob encode catalog data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for CatalogStore.
func (cs *CatalogStore) GobDecode(data []byte) error {
	decoded := gobCatalogData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode catalog data: %w", err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.byID = decoded.ByID
	cs.order = decoded.Order
	cs.version = decoded.Version
	if cs.byID == nil {
		cs.byID = make(map[string]model.Entity)
	}
	return nil
}
