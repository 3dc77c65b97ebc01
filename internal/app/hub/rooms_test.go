package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_JoinLeave(t *testing.T) {
	rooms := NewRooms()
	conn := newMockConn("c1")

	assert.False(t, rooms.IsMember("r1", "c1"))

	rooms.Join("r1", conn)
	assert.True(t, rooms.IsMember("r1", "c1"))
	assert.Equal(t, 1, rooms.MemberCount("r1"))

	rooms.Leave("r1", "c1")
	assert.False(t, rooms.IsMember("r1", "c1"))
	assert.Equal(t, 0, rooms.MemberCount("r1"), "empty room must be garbage-collected")
}

func TestRooms_Leave_UnknownIsNoop(t *testing.T) {
	rooms := NewRooms()

	rooms.Leave("r1", "ghost")
	rooms.Join("r1", newMockConn("c1"))
	rooms.Leave("r1", "ghost")

	assert.Equal(t, 1, rooms.MemberCount("r1"))
}

func TestRooms_Broadcast(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(*Rooms) []*mockConn
		room          string
		wantDelivered int
		wantErr       bool
		wantReceived  map[string]int
	}{
		{
			name: "delivers to every room member",
			setup: func(r *Rooms) []*mockConn {
				a := newMockConn("a")
				b := newMockConn("b")
				r.Join("r1", a)
				r.Join("r1", b)
				return []*mockConn{a, b}
			},
			room:          "r1",
			wantDelivered: 2,
			wantReceived:  map[string]int{"a": 1, "b": 1},
		},
		{
			name: "no cross-room delivery",
			setup: func(r *Rooms) []*mockConn {
				a := newMockConn("a")
				other := newMockConn("other")
				r.Join("r1", a)
				r.Join("r2", other)
				return []*mockConn{a, other}
			},
			room:          "r1",
			wantDelivered: 1,
			wantReceived:  map[string]int{"a": 1, "other": 0},
		},
		{
			name: "failed delivery is skipped, rest of room still served",
			setup: func(r *Rooms) []*mockConn {
				a := newMockConn("a")
				broken := newMockConn("broken")
				broken.emitErr = errors.New("send queue full")
				b := newMockConn("b")
				r.Join("r1", a)
				r.Join("r1", broken)
				r.Join("r1", b)
				return []*mockConn{a, broken, b}
			},
			room:          "r1",
			wantDelivered: 2,
			wantErr:       true,
			wantReceived:  map[string]int{"a": 1, "broken": 0, "b": 1},
		},
		{
			name:          "empty room delivers to nobody",
			setup:         func(r *Rooms) []*mockConn { return nil },
			room:          "nowhere",
			wantDelivered: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := NewRooms()
			conns := tt.setup(rooms)

			delivered, err := rooms.Broadcast(tt.room, EventGroupMessage, "payload")

			assert.Equal(t, tt.wantDelivered, delivered)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			for _, conn := range conns {
				want := tt.wantReceived[conn.id]
				assert.Len(t, conn.eventsNamed(EventGroupMessage), want, "conn %s", conn.id)
			}
		})
	}
}

// Broadcast, Join, Leave, and LeaveAll on the same room must be safe to run
// concurrently; this test exists to fail under the race detector if any
// snapshotting is torn.
func TestRooms_ConcurrentChurnAndBroadcast(t *testing.T) {
	rooms := NewRooms()

	const workers = 16
	const iterations = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			conn := newMockConn(fmt.Sprintf("c%d", w))
			for i := 0; i < iterations; i++ {
				rooms.Join("busy", conn)
				rooms.Broadcast("busy", EventMessage, i)
				rooms.IsMember("busy", conn.id)
				if i%2 == 0 {
					rooms.Leave("busy", conn.id)
				} else {
					rooms.LeaveAll(conn.id)
				}
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, 0, rooms.MemberCount("busy"), "all workers left, room must be empty")
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "42", UserRoom(42))
	assert.Equal(t, "group_5", GroupRoom(5))
}
