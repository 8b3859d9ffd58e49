package sqlite

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"simcore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	return store
}

func TestStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	store := openStore(t, path)

	payload := []byte{1, 0, 0, 0, 0, 0, 0, 0, 0}
	require.NoError(t, store.Put(ctx, domain.Record{
		Kind: domain.RecordAttribute, ID: "n1/height", OwnerID: "n1",
		Fields: map[string]any{"name": "height", "type": "DOUBLE", "value": payload},
	}))
	require.NoError(t, store.Put(ctx, domain.Record{Kind: domain.RecordNode, ID: "n1", Fields: map[string]any{"x": 1.5}}))
	require.NoError(t, store.Put(ctx, domain.Record{Kind: domain.RecordNode, ID: "n1", Fields: map[string]any{"x": 2.5}}))
	require.NoError(t, store.Close())

	reloaded := openStore(t, path)
	t.Cleanup(func() { _ = reloaded.Close() })

	node, ok, err := reloaded.Get(ctx, domain.RecordNode, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.5, node.Fields["x"])

	attr, ok, err := reloaded.Get(ctx, domain.RecordAttribute, "n1/height")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "n1", attr.OwnerID)
	require.Equal(t, base64.StdEncoding.EncodeToString(payload), attr.Fields["value"])
}

func TestStoreRemoveAndList(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "records.db"))
	t.Cleanup(func() { _ = store.Close() })

	for _, id := range []string{"e3", "e1", "e2"} {
		require.NoError(t, store.Put(ctx, domain.Record{Kind: domain.RecordEdge, ID: id, Fields: map[string]any{"start": "a", "end": "b"}}))
	}
	require.NoError(t, store.Put(ctx, domain.Record{Kind: domain.RecordNode, ID: "e1"}))
	require.NoError(t, store.Remove(ctx, domain.RecordEdge, "e2"))

	edges, err := store.List(ctx, domain.RecordEdge)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	require.Equal(t, "e1", edges[0].ID)
	require.Equal(t, "e3", edges[1].ID)

	_, ok, err := store.Get(ctx, domain.RecordEdge, "e2")
	require.NoError(t, err)
	require.False(t, ok)

	var count int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	require.Equal(t, 3, count)
}
