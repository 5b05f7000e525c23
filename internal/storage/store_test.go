package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deidaraiorek/xmlsql/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedDocument stores <root id="r"><item>one</item><item/></root> and
// returns the document id. Node ids start at firstID.
func seedDocument(t *testing.T, store *storage.Store, name string, firstID int64) int64 {
	t.Helper()
	docID, err := store.InsertDocument(name)
	require.NoError(t, err)

	root := firstID
	require.NoError(t, store.InsertNodes([]storage.Node{
		{ID: root, DocumentID: docID, TagName: "root", Depth: 0, Position: 0},
		{ID: root + 1, DocumentID: docID, ParentID: ptr(root), TagName: "item", TextContent: ptr("one"), Depth: 1, Position: 0},
		{ID: root + 2, DocumentID: docID, ParentID: ptr(root), TagName: "item", Depth: 1, Position: 1},
	}))
	require.NoError(t, store.InsertAttributes([]storage.Attribute{
		{NodeID: root, Name: "id", Value: ptr("r")},
	}))
	return docID
}

func TestNewStore_Empty(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{}, st)

	docs, err := store.ListDocuments()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestInsertAndRead(t *testing.T) {
	store := newTestStore(t)
	docID := seedDocument(t, store, "sample", 1)

	nodes, err := store.Nodes(docID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Nil(t, nodes[0].ParentID)
	assert.Equal(t, int64(1), *nodes[1].ParentID)
	assert.Equal(t, "one", *nodes[1].TextContent)
	assert.Nil(t, nodes[2].TextContent)
	assert.Equal(t, 1, nodes[2].Position)

	attrs, err := store.Attributes(docID)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "id", attrs[0].Name)
	assert.Equal(t, "r", *attrs[0].Value)
	assert.NotZero(t, attrs[0].ID)

	doc, err := store.GetDocument(docID)
	require.NoError(t, err)
	assert.Equal(t, "sample", doc.Name)
	assert.Nil(t, doc.RootNodeID)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestSetRootNodeTx(t *testing.T) {
	store := newTestStore(t)
	docID := seedDocument(t, store, "rooted", 1)

	tx, err := store.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, store.SetRootNodeTx(tx, docID, 1))
	require.NoError(t, tx.Commit())

	doc, err := store.GetDocument(docID)
	require.NoError(t, err)
	require.NotNil(t, doc.RootNodeID)
	assert.Equal(t, int64(1), *doc.RootNodeID)
}

func TestNextNodeIDTx(t *testing.T) {
	store := newTestStore(t)

	tx, err := store.BeginTransaction()
	require.NoError(t, err)
	next, err := store.NextNodeIDTx(tx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
	require.NoError(t, tx.Rollback())

	seedDocument(t, store, "first", 1)

	tx, err = store.BeginTransaction()
	require.NoError(t, err)
	defer tx.Rollback()
	next, err = store.NextNodeIDTx(tx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestIDsNotReusedAfterRemoval(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "first", 1)
	second := seedDocument(t, store, "second", 4)

	require.NoError(t, store.RemoveDocument(second))

	docID, err := store.InsertDocument("third")
	require.NoError(t, err)
	assert.Equal(t, second+1, docID)

	tx, err := store.BeginTransaction()
	require.NoError(t, err)
	next, err := store.NextNodeIDTx(tx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, int64(7), next)

	require.NoError(t, store.Reset())
	docID, err = store.InsertDocument("after reset")
	require.NoError(t, err)
	assert.Equal(t, second+2, docID)
}

func TestForeignKeysEnforced(t *testing.T) {
	store := newTestStore(t)

	err := store.InsertNodes([]storage.Node{{ID: 1, DocumentID: 99, TagName: "orphan"}})
	assert.Error(t, err)

	err = store.InsertAttributes([]storage.Attribute{{NodeID: 42, Name: "x"}})
	assert.Error(t, err)
}

func TestInsertNodes_AllOrNothing(t *testing.T) {
	store := newTestStore(t)
	docID, err := store.InsertDocument("dup")
	require.NoError(t, err)

	err = store.InsertNodes([]storage.Node{
		{ID: 1, DocumentID: docID, TagName: "a"},
		{ID: 1, DocumentID: docID, TagName: "b"},
	})
	require.Error(t, err)

	nodes, err := store.Nodes(docID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestListDocuments_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := store.InsertDocument(name)
		require.NoError(t, err)
	}

	docs, err := store.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{docs[0].Name, docs[1].Name, docs[2].Name})
}

func TestRemoveDocument(t *testing.T) {
	store := newTestStore(t)
	first := seedDocument(t, store, "first", 1)
	second := seedDocument(t, store, "second", 4)

	require.NoError(t, store.RemoveDocument(first))

	st, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Documents: 1, Nodes: 3, Attributes: 1}, st)

	nodes, err := store.Nodes(second)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	err = store.RemoveDocument(first)
	assert.True(t, errors.Is(err, storage.ErrDocumentNotFound))

	_, err = store.GetDocument(first)
	assert.True(t, errors.Is(err, storage.ErrDocumentNotFound))
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "gone", 1)

	require.NoError(t, store.Reset())

	st, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{}, st)

	// the schema survives
	seedDocument(t, store, "again", 1)
}
