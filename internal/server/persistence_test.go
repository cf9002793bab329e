package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"hanabi-server/internal/hanabi"
	"hanabi-server/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playDefaultMoves(t *testing.T, s *Server, tbl *Table, n int) {
	t.Helper()
	for range n {
		require.NoError(t, s.executeMove(tbl, func(g *hanabi.Game) (hanabi.Move, error) {
			return g.DefaultMove(), nil
		}))
	}
}

func TestSerializeAndRestore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RestoreGrace = 20 * time.Second
	store := storage.NewFileStore(t.TempDir())

	first := newTestServerWithStore(t, cfg, store)
	tbl, _ := startedTable(t, first, hanabi.Options{
		Timed:       true,
		BaseTime:    10 * time.Minute,
		TimePerTurn: 5 * time.Second,
	}, "alice", "bob", "carol")
	playDefaultMoves(t, first, tbl, 4)

	lobbyOwner := first.addSession("dave")
	require.NoError(t, run(first, lobbyOwner, cmdTableCreate, TableCreateRequest{Name: "lobby"}))

	finished, finishedSessions := startedTable(t, first, hanabi.Options{}, "erin", "frank")
	require.NoError(t, run(first, finishedSessions[0], cmdTableTerminate, TableRequest{TableID: finished.ID}))

	require.NoError(t, first.Shutdown(ctx))

	// Only the game in progress is kept.
	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, tbl.ID, records[0].ID)

	tbl.mu.Lock()
	settled := tbl.Game.ActivePlayer().Time
	tbl.mu.Unlock()

	second := newTestServerWithStore(t, cfg, store)
	restored, err := second.tableManager.Get(tbl.ID)
	require.NoError(t, err)

	restored.mu.Lock()
	assert.Equal(t, tbl.Name, restored.Name)
	assert.Equal(t, tbl.Owner, restored.Owner)
	assert.True(t, restored.inProgress())
	assert.Equal(t, tbl.Options, restored.Options)
	assert.Equal(t, tbl.Game.Actions, restored.Game.Actions)
	assert.Equal(t, tbl.Game.Stacks, restored.Game.Stacks)
	assert.Equal(t, tbl.Game.DiscardPile, restored.Game.DiscardPile)
	assert.Equal(t, tbl.Game.ClueTokens, restored.Game.ClueTokens)
	assert.Equal(t, tbl.Game.Turn, restored.Game.Turn)
	assert.Equal(t, tbl.Game.Deck, restored.Game.Deck)
	for _, p := range restored.Players {
		assert.False(t, p.Present, "player %s should start absent", p.UserID)
	}
	assert.Equal(t, settled+cfg.RestoreGrace, restored.Game.ActivePlayer().Time)
	assert.True(t, restored.timer.Armed())
	assert.Equal(t, 0, restored.NumSpectators())
	restored.mu.Unlock()

	// Restored records are consumed.
	records, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// New tables never reuse a restored ID.
	newcomer := second.addSession("grace")
	require.NoError(t, run(second, newcomer, cmdTableCreate, TableCreateRequest{Name: "fresh"}))
	assert.Greater(t, newcomer.TableID(), tbl.ID)
}

func TestRestore_PlayersReconnect(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStore(t.TempDir())

	first := newTestServerWithStore(t, testConfig(), store)
	tbl, _ := startedTable(t, first, hanabi.Options{}, "alice", "bob")
	playDefaultMoves(t, first, tbl, 1)
	require.NoError(t, first.Shutdown(ctx))

	second := newTestServerWithStore(t, testConfig(), store)
	alice := second.addSession("alice")
	require.NoError(t, run(second, alice, cmdTableReconnect, TableRequest{TableID: tbl.ID}))

	msgs := drain(alice)
	states := ofType(msgs, msgGameState)
	require.Len(t, states, 1)
	state := decodeAs[GameStateMessage](t, states[0]).State
	assert.Equal(t, 1, state.Turn)
	assert.Equal(t, 0, state.OurPlayerIndex)

	restored, err := second.tableManager.Get(tbl.ID)
	require.NoError(t, err)
	restored.mu.Lock()
	defer restored.mu.Unlock()
	assert.Equal(t, []bool{true, false}, restored.connectedMessage().List)

	// The restored game keeps accepting moves.
	assert.Equal(t, 1, restored.Game.ActivePlayerIndex)
}

type failingStore struct {
	storage.TableStore
	saves int
}

func (f *failingStore) Save(ctx context.Context, id uint64, data []byte) error {
	f.saves++
	return errors.New("disk full")
}

func TestSerializeTables_StopsAtFirstFailure(t *testing.T) {
	store := &failingStore{TableStore: storage.NewFileStore(t.TempDir())}
	s := newTestServerWithStore(t, testConfig(), store)

	startedTable(t, s, hanabi.Options{}, "alice", "bob")
	startedTable(t, s, hanabi.Options{}, "carol", "dave")

	err := s.SerializeTables(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, store.saves)
}

func TestLoadTables_RejectsMismatchedRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStore(t.TempDir())

	first := newTestServerWithStore(t, testConfig(), store)
	tbl, _ := startedTable(t, first, hanabi.Options{}, "alice", "bob")
	tbl.mu.Lock()
	require.NoError(t, first.persistenceManager.SaveTable(ctx, tbl))
	tbl.mu.Unlock()

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, store.Save(ctx, tbl.ID+1, records[0].Data))

	_, err = NewPersistenceManager(store).LoadTables(ctx)
	assert.ErrorContains(t, err, "contains table")
}
