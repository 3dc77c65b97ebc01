/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Registry, which owns the set of live connections and their
authenticated identities. All mutations go through the Registry; collaborator
calls never run while its lock is held.
*/
package hub

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

var (
	// ErrConnectionNotFound is returned when an operation references an unknown connection id.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrIdentityAttached is returned when attaching an identity to a connection
	// that already has one. Identity is immutable for the life of the connection.
	ErrIdentityAttached = errors.New("identity already attached")
)

// Connection is the per-connection state owned by the Registry: the transport
// handle and the identity attached after successful token verification.
type Connection struct {
	id       string
	conn     Conn
	identity *Identity
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Registry tracks live connections and their authenticated identity.
type Registry struct {
	// mu protects concurrent access to the conns map.
	mu sync.RWMutex

	conns map[string]*Connection

	// rooms is notified on unregister so the connection leaves every room it occupies.
	rooms *Rooms

	logger zerolog.Logger
}

// NewRegistry constructs a Registry. The rooms manager is consulted on
// unregister to release all memberships of the departing connection.
func NewRegistry(rooms *Rooms) *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		rooms:  rooms,
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Register creates an unauthenticated connection record for conn.
func (r *Registry) Register(conn Conn) *Connection {
	c := &Connection{
		id:   conn.ID(),
		conn: conn,
	}

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	r.logger.Debug().Str("conn_id", c.id).Msg("Connection registered.")
	return c
}

// AttachIdentity sets the identity on an existing connection. It fails for an
// unknown connection id, and identity cannot be replaced once attached.
func (r *Registry) AttachIdentity(connID string, identity Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return ErrConnectionNotFound
	}

	if c.identity != nil {
		return ErrIdentityAttached
	}

	c.identity = &identity
	return nil
}

// Identity returns the identity attached to the connection, if any.
func (r *Registry) Identity(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok || c.identity == nil {
		return Identity{}, false
	}
	return *c.identity, true
}

// Conn returns the transport handle for the connection id.
func (r *Registry) Conn(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// Unregister removes the connection and releases every room membership it
// holds. It is idempotent: unknown ids are a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	_, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	// Room cleanup happens outside the registry lock to keep the two locks
	// independent of each other.
	r.rooms.LeaveAll(connID)

	r.logger.Debug().Str("conn_id", connID).Msg("Connection unregistered.")
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// BroadcastAll delivers payload to every registered connection under the given
// event name. Per-connection send failures are logged and skipped. It returns
// the count of successful deliveries.
func (r *Registry) BroadcastAll(event string, payload any) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c.conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Emit(event, payload); err != nil {
			r.logger.Warn().
				Str("conn_id", conn.ID()).
				Str("event", event).
				Err(err).
				Msg("Global broadcast delivery failed, skipping connection.")
			continue
		}
		delivered++
	}

	return delivered
}
