/*
Package hub contains the core logic of the realtime messaging hub: the connection
registry, room membership and fanout, the group authorization gate, the message
pipeline, and the session gateway that ties them to a transport.

This file defines the shared data structures, the logical event names exchanged
with clients, and the collaborator interfaces the hub consumes. The hub is
written against the abstract Conn primitive so any bidirectional transport can
back it; the gorilla/websocket adapter lives in client.go.
*/
package hub

import (
	"context"
	"strconv"
	"time"
)

// Inbound event names accepted by the session gateway.
const (
	EventSendMessage      = "sendMessage"
	EventJoinChat         = "joinChat"
	EventJoinGroup        = "joinGroup"
	EventSendGroupMessage = "sendGroupMessage"
)

// Outbound event names emitted to clients.
const (
	EventMessage       = "message"
	EventNotification  = "notification"
	EventGroupMessage  = "groupMessage"
	EventGroupMessages = "groupMessages"
	EventError         = "error"
)

// Conn is the abstract bidirectional connection the hub operates on.
// One Conn corresponds to one live transport session.
type Conn interface {
	// ID returns the unique connection identifier assigned at connect time.
	ID() string

	// Emit delivers a single logical event with its payload to the peer.
	Emit(event string, payload any) error

	// Close terminates the underlying transport session.
	Close(reason string) error
}

// Identity is the minimal authenticated principal attached to a connection
// after successful token verification.
type Identity struct {
	UserID int64  `json:"id"`
	Email  string `json:"email,omitempty"`
}

// User is the full user record resolved from the external user store.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Group is a named set of member identities, fetched from the group store.
type Group struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Members []Identity `json:"members"`
}

// MessageRequest is the inbound payload of a direct message.
type MessageRequest struct {
	RecipientID int64  `json:"recipientUserId"`
	Content     string `json:"content"`
}

// GroupMessageRequest is the inbound payload of a group message.
type GroupMessageRequest struct {
	GroupID int64  `json:"groupId"`
	Content string `json:"content"`
}

// PersistedMessage is the stored form of a direct message, broadcast to clients
// under the "message" event.
type PersistedMessage struct {
	ID          string    `json:"id"`
	SenderID    int64     `json:"senderId"`
	RecipientID int64     `json:"recipientUserId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GroupMessage is the stored form of a message posted to a group, broadcast to
// the group room under the "groupMessage" event.
type GroupMessage struct {
	ID        string    `json:"id"`
	GroupID   int64     `json:"groupId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is the payload of the "notification" event.
type Notification struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserRoom returns the direct room name for a user id.
func UserRoom(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// GroupRoom returns the room name for a group id.
func GroupRoom(groupID int64) string {
	return "group_" + strconv.FormatInt(groupID, 10)
}

// TokenVerifier verifies a bearer token and yields the authenticated identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// MessageStore persists direct messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, req MessageRequest, senderID int64) (PersistedMessage, error)
}

// GroupStore provides group membership data and group message persistence.
// FindGroupByID returns (nil, nil) when the group does not exist.
type GroupStore interface {
	FindGroupByID(ctx context.Context, groupID int64) (*Group, error)
	GetMessagesByGroupID(ctx context.Context, groupID int64) ([]GroupMessage, error)
	AddMessageToGroup(ctx context.Context, groupID int64, sender User, content string) (GroupMessage, error)
}

// UserStore resolves user records. FindByID returns (nil, nil) when no user matches.
type UserStore interface {
	FindByID(ctx context.Context, userID int64) (*User, error)
}
