package websocket

import (
	"sync"

	"gridmatch/internal/entity"
)

// RoomMembershipTable tracks which connections are attached to which room.
// It is owned by the Server, never shared ambient state, and is process
// local: the registry does not synchronize across processes, which limits
// deployment to a single process.
type RoomMembershipTable struct {
	mu    sync.RWMutex
	rooms map[int]map[*Client]struct{}
}

func NewRoomMembershipTable() *RoomMembershipTable {
	return &RoomMembershipTable{
		rooms: make(map[int]map[*Client]struct{}),
	}
}

func (that *RoomMembershipTable) Add(roomID int, client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	group, ok := that.rooms[roomID]
	if !ok {
		group = make(map[*Client]struct{})
		that.rooms[roomID] = group
	}

	group[client] = struct{}{}
}

func (that *RoomMembershipTable) Remove(roomID int, client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	group, ok := that.rooms[roomID]
	if !ok {
		return
	}

	delete(group, client)
	if len(group) == 0 {
		delete(that.rooms, roomID)
	}
}

// Count reports the current membership size of a room's connection group;
// the disconnect grace timer compares two readings of it to tell a
// transient drop from a permanent one.
func (that *RoomMembershipTable) Count(roomID int) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms[roomID])
}

// DetachedSeat reports the seat of a room that currently has no live
// connection. It only answers while at least one member is still attached;
// an empty group leaves no way to tell which seat a returning connection
// held.
func (that *RoomMembershipTable) DetachedSeat(roomID int) (int, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	group, ok := that.rooms[roomID]
	if !ok || len(group) == 0 {
		return 0, false
	}

	attached := make(map[int]bool, len(group))
	for client := range group {
		if _, seat, seated := client.session(); seated {
			attached[seat] = true
		}
	}

	for _, seat := range []int{entity.SeatCross, entity.SeatNought} {
		if !attached[seat] {
			return seat, true
		}
	}

	return 0, false
}

// Broadcast enqueues data on every connection in the room except the one
// given (pass nil to reach the whole room).
func (that *RoomMembershipTable) Broadcast(roomID int, except *Client, data []byte) {
	that.mu.RLock()
	clients := make([]*Client, 0, len(that.rooms[roomID]))
	for client := range that.rooms[roomID] {
		clients = append(clients, client)
	}
	that.mu.RUnlock()

	for _, client := range clients {
		if client == except {
			continue
		}
		client.enqueue(data)
	}
}
