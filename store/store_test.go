package store

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/model"
)

func TestCatalogStore_UpsertBumpsVersion(t *testing.T) {
	cs := NewCatalogStore()
	assert.Equal(t, uint64(0), cs.Version())

	err := cs.Upsert(model.Entity{ID: "aria", DisplayName: "Aria", Type: model.EntityTypeCharacter})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cs.Version())

	err = cs.Upsert(model.Entity{ID: "aria", DisplayName: "Ariadne", Type: model.EntityTypeCharacter})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cs.Version())
	assert.Equal(t, 1, cs.Count())

	got, err := cs.Get("aria")
	require.NoError(t, err)
	assert.Equal(t, "Ariadne", got.DisplayName)
}

func TestCatalogStore_RejectsEmptyID(t *testing.T) {
	cs := NewCatalogStore()
	err := cs.Upsert(model.Entity{DisplayName: "Nameless"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Equal(t, uint64(0), cs.Version())
}

func TestCatalogStore_NormalizesUnknownType(t *testing.T) {
	cs := NewCatalogStore()
	require.NoError(t, cs.Upsert(model.Entity{ID: "x", DisplayName: "X", Type: "widget"}))

	got, err := cs.Get("x")
	require.NoError(t, err)
	assert.Equal(t, model.EntityTypeCustom, got.Type)
}

func TestCatalogStore_Delete(t *testing.T) {
	cs := NewCatalogStore()
	require.NoError(t, cs.Upsert(model.Entity{ID: "aria", DisplayName: "Aria", Type: model.EntityTypeCharacter}))

	require.NoError(t, cs.Delete("aria"))
	assert.Equal(t, uint64(2), cs.Version())
	assert.Equal(t, 0, cs.Count())

	err := cs.Delete("aria")
	assert.ErrorIs(t, err, errors.ErrEntityNotFound)
	assert.Equal(t, uint64(2), cs.Version(), "failed delete must not bump the version")
}

func TestCatalogStore_EntitiesKeepInsertionOrder(t *testing.T) {
	cs := NewCatalogStore()
	for _, id := range []string{"zed", "aria", "mira"} {
		require.NoError(t, cs.Upsert(model.Entity{ID: id, DisplayName: id, Type: model.EntityTypeCharacter}))
	}

	snapshot := cs.Entities()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "zed", snapshot[0].ID)
	assert.Equal(t, "aria", snapshot[1].ID)
	assert.Equal(t, "mira", snapshot[2].ID)
}

func TestCatalogStore_GobRoundTrip(t *testing.T) {
	cs := NewCatalogStore()
	require.NoError(t, cs.Upsert(model.Entity{
		ID:          "aria",
		DisplayName: "Aria",
		Type:        model.EntityTypeCharacter,
		Tags:        []string{"the Swift"},
	}))
	require.NoError(t, cs.Upsert(model.Entity{ID: "vael", DisplayName: "Vael", Type: model.EntityTypeLocation}))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(cs))

	restored := NewCatalogStore()
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))

	assert.Equal(t, cs.Version(), restored.Version())
	assert.Equal(t, cs.Entities(), restored.Entities())
}

func TestLiveDocument_TextAndCursor(t *testing.T) {
	doc := NewLiveDocument("doc1", "Aria walked in.")
	assert.Equal(t, "Aria walked in.", doc.Text())
	assert.Equal(t, 0, doc.CursorOffset())
	assert.Equal(t, 3, doc.WordCount())

	doc.SetCursor(100)
	assert.Equal(t, len("Aria walked in."), doc.CursorOffset())

	doc.SetText("Aria")
	assert.Equal(t, 4, doc.CursorOffset(), "cursor must clamp when text shrinks")
}

func TestLiveDocument_MarkLedger(t *testing.T) {
	doc := NewLiveDocument("doc1", "Aria met Aria.")

	require.NoError(t, doc.ApplyMark(0, 4, "aria"))
	require.NoError(t, doc.ApplyMark(9, 13, "aria"))
	require.NoError(t, doc.ApplyMark(0, 4, "aria"), "re-applying an identical mark is a no-op")

	marks := doc.Marks()
	require.Len(t, marks, 2)
	assert.Equal(t, Mark{Start: 0, End: 4, EntityID: "aria"}, marks[0])
	assert.Equal(t, Mark{Start: 9, End: 13, EntityID: "aria"}, marks[1])

	require.NoError(t, doc.RemoveMark(0, 4))
	require.NoError(t, doc.RemoveMark(0, 4), "removing an absent mark is a no-op")
	assert.Len(t, doc.Marks(), 1)
}

func TestLiveDocument_RejectsOutOfBoundsMark(t *testing.T) {
	doc := NewLiveDocument("doc1", "short")

	assert.Error(t, doc.ApplyMark(0, 99, "aria"))
	assert.Error(t, doc.ApplyMark(-1, 3, "aria"))
	assert.Error(t, doc.ApplyMark(3, 3, "aria"))
	assert.Empty(t, doc.Marks())
}

func TestDocumentStore_OpenGetClose(t *testing.T) {
	ds := NewDocumentStore()

	doc, err := ds.Open("doc1", "hello")
	require.NoError(t, err)
	require.NotNil(t, doc)

	_, err = ds.Open("doc1", "again")
	assert.ErrorIs(t, err, errors.ErrDocumentAlreadyAttached)

	got, err := ds.Get("doc1")
	require.NoError(t, err)
	assert.Same(t, doc, got)

	require.NoError(t, ds.Close("doc1"))
	_, err = ds.Get("doc1")
	assert.ErrorIs(t, err, errors.ErrDocumentNotAttached)
	assert.ErrorIs(t, ds.Close("doc1"), errors.ErrDocumentNotAttached)
}

func TestDocumentStore_IDsSorted(t *testing.T) {
	ds := NewDocumentStore()
	for _, id := range []string{"c", "a", "b"} {
		_, err := ds.Open(id, "")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ds.IDs())
}
