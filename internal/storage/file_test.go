package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save(context.Background(), 42, []byte(`{}`)))

	data, err := os.ReadFile(filepath.Join(dir, "42.json"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_IgnoresReservedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.json\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.json"), []byte(`{"id":7}`), 0o644))

	records, err := NewFileStore(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(7), records[0].ID)
}

func TestFileStore_SkipsInterruptedWrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".table-123456"), []byte(`{"id":`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.json"), []byte(`{"id":3}`), 0o644))

	records, err := NewFileStore(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(3), records[0].ID)
}

func TestFileStore_ListFailures(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	_, err = NewFileStore(dir).List(context.Background())
	assert.ErrorContains(t, err, "notes.txt")
}

func TestFileStore_SaveIntoMissingDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, store.Save(context.Background(), 1, []byte(`{}`)))
}
