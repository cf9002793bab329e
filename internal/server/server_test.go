package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"hanabi-server/internal/config"
	"hanabi-server/internal/hanabi"
	"hanabi-server/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.IdleTimeout = time.Hour
	cfg.AwayTimeout = time.Hour
	cfg.RateLimit = 1000
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServerWithStore(t *testing.T, cfg config.Config, store storage.TableStore) *Server {
	t.Helper()
	s, err := NewServer(context.Background(), cfg, store, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.cancel()
		s.tableManager.ForEach(func(tbl *Table) {
			tbl.mu.Lock()
			tbl.timer.Stop()
			tbl.mu.Unlock()
		})
	})
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithStore(t, testConfig(), storage.NewFileStore(t.TempDir()))
}

// addSession registers a session without a socket; its messages stay in the
// send queue for the test to read.
func (s *Server) addSession(userID string) *Session {
	return s.sessionManager.Register(nil, userID, "Name-"+userID)
}

func run(s *Server, sess *Session, cmd string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return s.commands[cmd](s, sess, data)
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// drain empties a session's queue.
func drain(sess *Session) []received {
	var out []received
	for {
		select {
		case data := <-sess.send:
			var msg received
			if err := json.Unmarshal(data, &msg); err != nil {
				panic(err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func ofType(msgs []received, msgType string) []received {
	var out []received
	for _, m := range msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// startedTable seats one session per user at a new table and starts the game.
func startedTable(t *testing.T, s *Server, opts hanabi.Options, users ...string) (*Table, []*Session) {
	t.Helper()
	require.GreaterOrEqual(t, len(users), 2)

	sessions := make([]*Session, len(users))
	for i, u := range users {
		sessions[i] = s.addSession(u)
	}

	require.NoError(t, run(s, sessions[0], cmdTableCreate, TableCreateRequest{Name: "test table", Options: opts}))
	id := sessions[0].TableID()
	require.NotZero(t, id)

	for _, sess := range sessions[1:] {
		require.NoError(t, run(s, sess, cmdTableJoin, TableRequest{TableID: id}))
	}
	require.NoError(t, run(s, sessions[0], cmdTableStart, TableRequest{TableID: id}))

	tbl, err := s.tableManager.Get(id)
	require.NoError(t, err)
	for _, sess := range sessions {
		drain(sess)
	}
	return tbl, sessions
}

func TestNewServer_RestoreFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewFileStore(dir)
	require.NoError(t, store.Save(context.Background(), 3, []byte(`{"id":3,"game":{"actions":[{"type":"bogus"}]}}`)))

	_, err := NewServer(context.Background(), testConfig(), store, quietLogger())
	assert.Error(t, err)

	_, err = NewServer(context.Background(), testConfig(), storage.NewFileStore(dir+"/missing"), quietLogger())
	assert.Error(t, err)
}

func TestShutdown_RefusesNewCommands(t *testing.T) {
	s := newTestServer(t)
	sess := s.addSession("alice")

	require.NoError(t, s.Shutdown(context.Background()))

	assert.True(t, s.isShuttingDown())
	assert.False(t, s.beginCommand())
	assert.True(t, sess.closed())

	// The warning was queued before the session closed.
	warnings := ofType(drain(sess), msgWarning)
	assert.Len(t, warnings, 1)
}

func TestShutdown_WaitsForCommands(t *testing.T) {
	s := newTestServer(t)
	require.True(t, s.beginCommand())

	finished := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		s.commandWG.Done()
	}()

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before the command in flight finished")
	}
}

func TestShutdown_Timeout(t *testing.T) {
	s := newTestServer(t)
	require.True(t, s.beginCommand())
	defer s.commandWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s := newTestServer(t)
	sess := s.addSession("alice")
	drain(sess)

	s.dispatch(sess, []byte(`{"type":"teleport"}`))
	s.dispatch(sess, []byte(`not json`))

	errs := ofType(drain(sess), msgError)
	require.Len(t, errs, 2)

	var first ErrorMessage
	require.NoError(t, json.Unmarshal(errs[0].Payload, &first))
	assert.Equal(t, "INVALID_MESSAGE_TYPE", first.Code)
	assert.Contains(t, first.Message, "teleport")
	assert.Contains(t, string(errs[1].Payload), "INVALID_PAYLOAD")
}

func TestDispatch_AwayFlagClearsOnActivity(t *testing.T) {
	s := newTestServer(t)
	sess := s.addSession("alice")
	watcher := s.addSession("bob")
	sess.setAway(true)
	drain(watcher)

	s.dispatch(sess, []byte(`{"type":"ping"}`))

	assert.False(t, sess.Away())
	statuses := ofType(drain(watcher), msgUserStatus)
	require.Len(t, statuses, 1)

	var status UserStatusMessage
	require.NoError(t, json.Unmarshal(statuses[0].Payload, &status))
	assert.Equal(t, statusOnline, status.Status)
	assert.Equal(t, "alice", status.UserID)
}

func TestMarkAway(t *testing.T) {
	cfg := testConfig()
	cfg.AwayTimeout = 10 * time.Millisecond
	s := newTestServerWithStore(t, cfg, storage.NewFileStore(t.TempDir()))

	sess := s.addSession("alice")
	s.connectionHealth.UpdateActivity(sess.ID)
	time.Sleep(30 * time.Millisecond)

	s.markAway()
	assert.True(t, sess.Away())

	statuses := ofType(drain(sess), msgUserStatus)
	require.NotEmpty(t, statuses)
	assert.Contains(t, string(statuses[len(statuses)-1].Payload), fmt.Sprintf("%q", statusAway))
}

func TestWatchIdle_RemovesQuietTable(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	s := newTestServerWithStore(t, cfg, storage.NewFileStore(t.TempDir()))

	alice := s.addSession("alice")
	require.NoError(t, run(s, alice, cmdTableCreate, TableCreateRequest{Name: "quiet"}))
	id := alice.TableID()
	drain(alice)

	require.Eventually(t, func() bool { return len(alice.send) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.tableManager.Len())
	assert.Equal(t, uint64(0), alice.TableID())

	gone := ofType(drain(alice), msgTableGone)
	require.Len(t, gone, 1)
	assert.Contains(t, string(gone[0].Payload), fmt.Sprintf(`"tableID":%d`, id))
}

func TestRemoveTable_ReleasesTableBeforeSessionLookups(t *testing.T) {
	s := newTestServer(t)
	tbl, sessions := startedTable(t, s, hanabi.Options{Timed: true, BaseTime: time.Hour}, "alice", "bob")

	s.sessionManager.mu.Lock()
	removed := make(chan struct{})
	go func() {
		s.removeTable(tbl)
		close(removed)
	}()

	require.Eventually(t, func() bool { return !tbl.timer.Armed() }, 2*time.Second, time.Millisecond)
	// removeTable is now waiting on the session registry; the table must
	// already be unlocked.
	require.Eventually(t, tbl.mu.TryLock, 2*time.Second, time.Millisecond)
	tbl.mu.Unlock()
	s.sessionManager.mu.Unlock()

	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("removeTable did not finish")
	}
	_, err := s.tableManager.Get(tbl.ID)
	assert.ErrorIs(t, err, ErrTableNotFound)
	for _, sess := range sessions {
		assert.Equal(t, uint64(0), sess.TableID())
	}
}
