/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Rooms manager: the mapping from room names to the
connections currently subscribed. Rooms are created lazily on first join and
deleted when their last member leaves, so churn cannot leak memory.
*/
package hub

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

// Rooms maintains the member set of every active room. Join, Leave, and the
// member snapshot taken by Broadcast are serialized by one lock, so a broadcast
// never observes a partially-updated member set.
type Rooms struct {
	// mu protects members and joined.
	mu sync.RWMutex

	// members maps room name to the connections subscribed, keyed by connection id.
	members map[string]map[string]Conn

	// joined is the reverse index, mapping connection id to the rooms it occupies.
	// It makes LeaveAll proportional to the connection's memberships rather than
	// the total number of rooms.
	joined map[string]map[string]struct{}

	logger zerolog.Logger
}

// NewRooms constructs an empty Rooms manager.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Conn),
		joined:  make(map[string]map[string]struct{}),
		logger:  logx.Logger().With().Str("component", "Rooms").Logger(),
	}
}

// Join adds the connection to the room's member set, creating the room if
// absent. Callers must have already authorized the join.
func (r *Rooms) Join(room string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[string]Conn)
		r.members[room] = set
	}
	set[conn.ID()] = conn

	rooms, ok := r.joined[conn.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[conn.ID()] = rooms
	}
	rooms[room] = struct{}{}

	r.logger.Debug().
		Str("room", room).
		Str("conn_id", conn.ID()).
		Int("room_size", len(set)).
		Msg("Connection joined room.")
}

// Leave removes the connection from the room. Empty rooms are garbage-collected.
func (r *Rooms) Leave(room string, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(room, connID)
}

// LeaveAll removes the connection from every room it occupies.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[connID] {
		r.leaveLocked(room, connID)
	}
}

func (r *Rooms) leaveLocked(room string, connID string) {
	set, ok := r.members[room]
	if !ok {
		return
	}

	if _, ok := set[connID]; !ok {
		return
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(r.members, room)
	}

	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}

	r.logger.Debug().
		Str("room", room).
		Str("conn_id", connID).
		Int("room_size", len(set)).
		Msg("Connection left room.")
}

// IsMember reports whether the connection currently belongs to the room.
func (r *Rooms) IsMember(room string, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[room]
	if !ok {
		return false
	}
	_, ok = set[connID]
	return ok
}

// MemberCount reports the current size of the room's member set.
func (r *Rooms) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// Broadcast delivers payload to every connection in the room's member set at
// the moment of the call, under the given event name. The member set is
// snapshotted under the lock and delivery happens outside it, so a slow peer
// cannot stall joins or leaves on the same room. A connection joining
// concurrently is included only if its join completed before the snapshot.
//
// Per-connection send failures are logged and skipped; a single failed delivery
// never aborts the rest of the room. Broadcast returns the count of successful
// deliveries, plus a joined error describing any failures.
func (r *Rooms) Broadcast(room string, event string, payload any) (int, error) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.members[room]))
	for _, conn := range r.members[room] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	var errsum error
	for _, conn := range targets {
		if err := conn.Emit(event, payload); err != nil {
			r.logger.Warn().
				Str("room", room).
				Str("conn_id", conn.ID()).
				Str("event", event).
				Err(err).
				Msg("Broadcast delivery failed, skipping connection.")
			errsum = errors.Join(errsum, err)
			continue
		}
		delivered++
	}

	return delivered, errsum
}
