package hub

import (
	"context"
	"fmt"
	"sync"
)

// mockConn is an in-memory Conn that records every emitted event.
type mockConn struct {
	id string

	mu          sync.Mutex
	events      []emittedEvent
	emitErr     error
	closed      bool
	closeReason string
}

type emittedEvent struct {
	event   string
	payload any
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id}
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Emit(event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emitErr != nil {
		return m.emitErr
	}
	m.events = append(m.events, emittedEvent{event: event, payload: payload})
	return nil
}

func (m *mockConn) Close(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeReason = reason
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// eventsNamed returns the payloads of every recorded event with the given name.
func (m *mockConn) eventsNamed(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payloads []any
	for _, e := range m.events {
		if e.event == event {
			payloads = append(payloads, e.payload)
		}
	}
	return payloads
}

func (m *mockConn) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// stubVerifier resolves tokens from a fixed table.
type stubVerifier struct {
	identities map[string]Identity
}

func (s *stubVerifier) Verify(_ context.Context, token string) (Identity, error) {
	identity, ok := s.identities[token]
	if !ok {
		return Identity{}, fmt.Errorf("invalid token")
	}
	return identity, nil
}

// stubMessageStore persists direct messages in memory with sequential ids.
type stubMessageStore struct {
	mu      sync.Mutex
	seq     int
	created []PersistedMessage
	err     error
}

func (s *stubMessageStore) CreateMessage(_ context.Context, req MessageRequest, senderID int64) (PersistedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return PersistedMessage{}, s.err
	}
	s.seq++
	msg := PersistedMessage{
		ID:          fmt.Sprintf("msg-%d", s.seq),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}
	s.created = append(s.created, msg)
	return msg, nil
}

// stubGroupStore serves groups and group messages from memory.
type stubGroupStore struct {
	mu      sync.Mutex
	groups  map[int64]*Group
	history map[int64][]GroupMessage
	seq     int

	findErr    error
	historyErr error
	addErr     error
}

func newStubGroupStore() *stubGroupStore {
	return &stubGroupStore{
		groups:  make(map[int64]*Group),
		history: make(map[int64][]GroupMessage),
	}
}

func (s *stubGroupStore) FindGroupByID(_ context.Context, groupID int64) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.groups[groupID], nil
}

func (s *stubGroupStore) GetMessagesByGroupID(_ context.Context, groupID int64) ([]GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.history[groupID], nil
}

func (s *stubGroupStore) AddMessageToGroup(_ context.Context, groupID int64, sender User, content string) (GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return GroupMessage{}, s.addErr
	}
	s.seq++
	msg := GroupMessage{
		ID:       fmt.Sprintf("gm-%d", s.seq),
		GroupID:  groupID,
		SenderID: sender.ID,
		Content:  content,
	}
	s.history[groupID] = append(s.history[groupID], msg)
	return msg, nil
}

// stubUserStore resolves users from a fixed table.
type stubUserStore struct {
	users map[int64]*User
	err   error
}

func (s *stubUserStore) FindByID(_ context.Context, userID int64) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[userID], nil
}

// newTestHub wires a full hub core over the given stubs.
func newTestHub(messages MessageStore, groups GroupStore, users UserStore) (*Registry, *Rooms, *Pipeline) {
	rooms := NewRooms()
	registry := NewRegistry(rooms)
	gate := NewGate(groups)
	pipeline := NewPipeline(registry, rooms, gate, messages, groups, users)
	return registry, rooms, pipeline
}
