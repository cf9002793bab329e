package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SendQueuesJSON(t *testing.T) {
	sess := newTestSessionManager().Register(nil, "alice", "Alice")

	sess.Send(msgTableGone, TableGoneMessage{TableID: 9})

	msgs := drain(sess)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgTableGone, msgs[0].Type)
	assert.JSONEq(t, `{"tableID":9}`, string(msgs[0].Payload))
}

func TestSession_SendErrorCarriesCode(t *testing.T) {
	sess := newTestSessionManager().Register(nil, "alice", "Alice")

	sess.SendError(fmt.Errorf("%w: extra detail", ErrTableFull))

	msgs := drain(sess)
	require.Len(t, msgs, 1)
	var payload ErrorMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "TABLE_FULL", payload.Code)
	assert.Contains(t, payload.Message, "extra detail")
}

func TestSession_FullQueueClosesSession(t *testing.T) {
	sess := newTestSessionManager().Register(nil, "alice", "Alice")

	for range sendBufferSize + 1 {
		sess.Send(msgPong, struct{}{})
	}
	assert.True(t, sess.closed())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	sess := newTestSessionManager().Register(nil, "alice", "Alice")

	assert.False(t, sess.closed())
	sess.Close(websocket.StatusNormalClosure, "bye")
	sess.Close(websocket.StatusNormalClosure, "bye again")
	assert.True(t, sess.closed())
}

func TestSession_Location(t *testing.T) {
	assert := assert.New(t)
	sess := newTestSessionManager().Register(nil, "alice", "Alice")

	sess.setTable(4, true)
	id, spectating := sess.Location()
	assert.Equal(uint64(4), id)
	assert.True(spectating)

	// Clearing a different table leaves the session where it is.
	sess.clearTable(5)
	assert.Equal(uint64(4), sess.TableID())

	sess.clearTable(4)
	assert.Equal(uint64(0), sess.TableID())
	assert.False(sess.Spectating())

	assert.True(sess.setAway(true))
	assert.False(sess.setAway(true))
	assert.True(sess.Away())
}
