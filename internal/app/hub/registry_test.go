package hub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AttachIdentity(t *testing.T) {
	rooms := NewRooms()
	registry := NewRegistry(rooms)

	conn := newMockConn("c1")
	registry.Register(conn)

	_, ok := registry.Identity("c1")
	assert.False(t, ok, "identity should be absent before attach")

	require.NoError(t, registry.AttachIdentity("c1", Identity{UserID: 7}))

	identity, ok := registry.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, int64(7), identity.UserID)
}

func TestRegistry_AttachIdentity_UnknownConnection(t *testing.T) {
	registry := NewRegistry(NewRooms())

	err := registry.AttachIdentity("nope", Identity{UserID: 1})
	assert.True(t, errors.Is(err, ErrConnectionNotFound))
}

func TestRegistry_AttachIdentity_Immutable(t *testing.T) {
	registry := NewRegistry(NewRooms())
	registry.Register(newMockConn("c1"))

	require.NoError(t, registry.AttachIdentity("c1", Identity{UserID: 7}))

	err := registry.AttachIdentity("c1", Identity{UserID: 8})
	assert.True(t, errors.Is(err, ErrIdentityAttached))

	identity, _ := registry.Identity("c1")
	assert.Equal(t, int64(7), identity.UserID, "original identity must survive")
}

func TestRegistry_Unregister_LeavesAllRooms(t *testing.T) {
	rooms := NewRooms()
	registry := NewRegistry(rooms)

	conn := newMockConn("c1")
	registry.Register(conn)
	rooms.Join("42", conn)
	rooms.Join("group_5", conn)

	registry.Unregister("c1")

	assert.False(t, rooms.IsMember("42", "c1"), "connection must not leak in direct room")
	assert.False(t, rooms.IsMember("group_5", "c1"), "connection must not leak in group room")
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_Unregister_Idempotent(t *testing.T) {
	registry := NewRegistry(NewRooms())
	registry.Register(newMockConn("c1"))

	registry.Unregister("c1")
	registry.Unregister("c1")
	registry.Unregister("never-existed")

	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_BroadcastAll(t *testing.T) {
	registry := NewRegistry(NewRooms())

	a := newMockConn("a")
	b := newMockConn("b")
	broken := newMockConn("broken")
	broken.emitErr = errors.New("peer gone")

	registry.Register(a)
	registry.Register(b)
	registry.Register(broken)

	delivered := registry.BroadcastAll(EventMessage, "hello")

	assert.Equal(t, 2, delivered, "failed delivery must be skipped, not counted")
	assert.Len(t, a.eventsNamed(EventMessage), 1)
	assert.Len(t, b.eventsNamed(EventMessage), 1)
	assert.Empty(t, broken.eventsNamed(EventMessage))
}
