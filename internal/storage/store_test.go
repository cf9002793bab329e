package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store TableStore) {
	t.Helper()
	ctx := context.Background()

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Save(ctx, 12, []byte(`{"id":12}`)))
	require.NoError(t, store.Save(ctx, 3, []byte(`{"id":3}`)))
	require.NoError(t, store.Save(ctx, 12, []byte(`{"id":12,"name":"again"}`)))

	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(3), records[0].ID)
	assert.Equal(t, uint64(12), records[1].ID)
	assert.JSONEq(t, `{"id":12,"name":"again"}`, string(records[1].Data))

	require.NoError(t, store.Delete(ctx, 3))
	assert.ErrorIs(t, store.Delete(ctx, 3), ErrNotFound)

	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(12), records[0].ID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "floppy"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestOpen_DefaultsToFiles(t *testing.T) {
	store, err := Open(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)
}
