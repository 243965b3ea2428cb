package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{send: make(chan []byte, sendBufferSize)}
}

func TestRoomMembershipTable_AddRemoveCount(t *testing.T) {
	table := NewRoomMembershipTable()

	first := testClient()
	second := testClient()

	assert.Zero(t, table.Count(1))

	table.Add(1, first)
	table.Add(1, second)
	assert.Equal(t, 2, table.Count(1))

	// removing a client from the wrong room changes nothing
	table.Remove(2, first)
	assert.Equal(t, 2, table.Count(1))

	table.Remove(1, first)
	assert.Equal(t, 1, table.Count(1))

	table.Remove(1, second)
	assert.Zero(t, table.Count(1))
}

func TestRoomMembershipTable_DetachedSeat(t *testing.T) {
	table := NewRoomMembershipTable()

	first := testClient()
	first.setSession(1, 0)
	second := testClient()
	second.setSession(1, 1)

	table.Add(1, first)
	table.Add(1, second)

	// both seats attached: nothing to recover
	_, detached := table.DetachedSeat(1)
	assert.False(t, detached)

	// one connection gone: its seat is reported detached
	table.Remove(1, second)

	seat, detached := table.DetachedSeat(1)
	require.True(t, detached)
	assert.Equal(t, 1, seat)

	// an emptied group cannot say which seat a caller held
	table.Remove(1, first)

	_, detached = table.DetachedSeat(1)
	assert.False(t, detached)
}

func TestRoomMembershipTable_Broadcast(t *testing.T) {
	table := NewRoomMembershipTable()

	sender := testClient()
	other := testClient()
	elsewhere := testClient()

	table.Add(1, sender)
	table.Add(1, other)
	table.Add(2, elsewhere)

	// When: a payload is sent to room 1 excluding the sender
	table.Broadcast(1, sender, []byte("move"))

	// Then: only the other room member receives it
	require.Len(t, other.send, 1)
	assert.Equal(t, []byte("move"), <-other.send)
	assert.Empty(t, sender.send)
	assert.Empty(t, elsewhere.send)
}

func TestRoomMembershipTable_BroadcastWholeRoom(t *testing.T) {
	table := NewRoomMembershipTable()

	first := testClient()
	second := testClient()

	table.Add(1, first)
	table.Add(1, second)

	table.Broadcast(1, nil, []byte("switch"))

	assert.Len(t, first.send, 1)
	assert.Len(t, second.send, 1)
}
