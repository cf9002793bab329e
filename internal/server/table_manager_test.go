package server

import (
	"strings"
	"testing"

	"hanabi-server/internal/hanabi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableManager_CreateAssignsIncreasingIDs(t *testing.T) {
	assert := assert.New(t)
	tm := NewTableManager()

	first, err := tm.Create("first", "alice", hanabi.Options{})
	require.NoError(t, err)
	second, err := tm.Create("second", "bob", hanabi.Options{})
	require.NoError(t, err)

	assert.Equal(uint64(1), first.ID)
	assert.Equal(uint64(2), second.ID)
	assert.Equal(hanabi.DefaultVariant, first.Options.Variant)
	assert.Equal("alice", first.Owner)
	assert.Equal(2, tm.Len())

	// IDs are not reused after removal.
	tm.Remove(second.ID)
	third, err := tm.Create("third", "carol", hanabi.Options{})
	require.NoError(t, err)
	assert.Equal(uint64(3), third.ID)

	_, err = tm.Get(second.ID)
	assert.ErrorIs(err, ErrTableNotFound)
}

func TestTableManager_CreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		opts      hanabi.Options
		wantErr   error
	}{
		{"empty name", "   ", hanabi.Options{}, ErrInvalidName},
		{"long name", strings.Repeat("x", maxTableNameLength+1), hanabi.Options{}, ErrInvalidName},
		{"unknown variant", "table", hanabi.Options{Variant: "No Such Variant"}, hanabi.ErrUnknownVariant},
		{"timed without base time", "table", hanabi.Options{Timed: true}, hanabi.ErrInvalidTimeSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := NewTableManager()
			_, err := tm.Create(tt.tableName, "alice", tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, tm.Len())
		})
	}
}

func TestTableManager_CreateTrimsName(t *testing.T) {
	tm := NewTableManager()
	tbl, err := tm.Create("  friday night  ", "alice", hanabi.Options{})
	require.NoError(t, err)
	assert.Equal(t, "friday night", tbl.Name)
}

func TestTableManager_InsertMovesCounter(t *testing.T) {
	assert := assert.New(t)
	tm := NewTableManager()

	restored := &Table{ID: 41}
	restored.init()
	tm.Insert(restored)

	got, err := tm.Get(41)
	require.NoError(t, err)
	assert.Same(restored, got)

	next, err := tm.Create("new", "alice", hanabi.Options{})
	require.NoError(t, err)
	assert.Equal(uint64(42), next.ID)
}

func TestTableManager_ForEachOrder(t *testing.T) {
	tm := NewTableManager()
	for _, id := range []uint64{7, 3, 12} {
		tbl := &Table{ID: id}
		tbl.init()
		tm.Insert(tbl)
	}

	var ids []uint64
	tm.ForEach(func(tbl *Table) {
		ids = append(ids, tbl.ID)
		// The registry lock is not held while fn runs.
		_, err := tm.Get(tbl.ID)
		assert.NoError(t, err)
	})
	assert.Equal(t, []uint64{3, 7, 12}, ids)
}
