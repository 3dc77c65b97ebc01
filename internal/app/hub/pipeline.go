/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Pipeline: validation, persistence, and fanout for direct
and group messages, plus the room join operations. One quirk of the wire
contract is kept deliberately: the "message" event is broadcast to every
connected client rather than being scoped to the two participants. See
DESIGN.md.
*/
package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/errs"
	"cesuchat/internal/pkg/logx"
)

// Client-facing error strings carried by the "error" event.
const (
	errGroupAccessDenied = "Access denied to the group"
	errSendFailed        = "Failed to send message"
)

// MaxContentBytes is the maximum allowed size (in bytes) for message content.
const MaxContentBytes = 5000

const notificationTitle = "Nova mensagem"

// Pipeline orchestrates message validation, persistence via the external
// stores, and fanout through the registry and rooms.
type Pipeline struct {
	registry *Registry
	rooms    *Rooms
	gate     *Gate

	messages MessageStore
	groups   GroupStore
	users    UserStore

	// relay, when set, forwards locally-originated broadcasts to peer instances.
	relay Relay

	logger zerolog.Logger
}

// NewPipeline constructs a Pipeline over the hub core and its collaborators.
func NewPipeline(registry *Registry, rooms *Rooms, gate *Gate, messages MessageStore, groups GroupStore, users UserStore) *Pipeline {
	return &Pipeline{
		registry: registry,
		rooms:    rooms,
		gate:     gate,
		messages: messages,
		groups:   groups,
		users:    users,
		logger:   logx.Logger().With().Str("component", "Pipeline").Logger(),
	}
}

// SetRelay attaches the cross-instance broadcast relay. Must be called before
// the hub starts accepting connections.
func (p *Pipeline) SetRelay(relay Relay) {
	p.relay = relay
}

// SendDirect runs the direct message flow: verify the sender is authenticated,
// persist the message, broadcast it globally under "message", and emit the
// follow-up "notification". An unauthenticated sender is a silent no-op toward
// the client; the returned error is for the caller's logging only.
func (p *Pipeline) SendDirect(ctx context.Context, connID string, req MessageRequest) error {
	sender, ok := p.registry.Identity(connID)
	if !ok {
		return fmt.Errorf("send message: %w", ErrConnectionNotFound)
	}

	if len(req.Content) > MaxContentBytes {
		p.emitTo(connID, EventError, errs.NewError(errs.ErrMessageContentTooLong).Message)
		return nil
	}

	msg, err := p.messages.CreateMessage(ctx, req, sender.UserID)
	if err != nil {
		p.logger.Error().
			Int64("sender_id", sender.UserID).
			Err(err).
			Msg("Failed to persist direct message.")
		return fmt.Errorf("persist message: %w", err)
	}

	delivered := p.registry.BroadcastAll(EventMessage, msg)
	p.publish(ctx, relayScopeAll, "", EventMessage, msg)

	p.logger.Info().
		Str("message_id", msg.ID).
		Int64("sender_id", sender.UserID).
		Int("delivered", delivered).
		Msg("Direct message broadcast.")

	p.notify(ctx, UserRoom(req.RecipientID), sender.UserID)

	return nil
}

// SendGroup runs the group message flow. The sender must be authenticated and
// resolvable in the user store (unknown senders are dropped silently). On a
// persistence or delivery failure the sender alone receives an "error" event;
// the rest of the room is unaffected.
func (p *Pipeline) SendGroup(ctx context.Context, connID string, req GroupMessageRequest) error {
	identity, ok := p.registry.Identity(connID)
	if !ok {
		return fmt.Errorf("send group message: %w", ErrConnectionNotFound)
	}

	if len(req.Content) > MaxContentBytes {
		p.emitTo(connID, EventError, errs.NewError(errs.ErrMessageContentTooLong).Message)
		return nil
	}

	sender, err := p.users.FindByID(ctx, identity.UserID)
	if err != nil {
		p.logger.Error().
			Int64("sender_id", identity.UserID).
			Err(err).
			Msg("Sender lookup failed, dropping group message.")
		return fmt.Errorf("resolve sender: %w", err)
	}
	if sender == nil {
		p.logger.Warn().
			Int64("sender_id", identity.UserID).
			Msg("Sender not found in user store, dropping group message.")
		return nil
	}

	groupMsg, err := p.groups.AddMessageToGroup(ctx, req.GroupID, *sender, req.Content)
	if err != nil {
		p.logger.Error().
			Int64("group_id", req.GroupID).
			Int64("sender_id", sender.ID).
			Err(err).
			Msg("Failed to persist group message.")
		p.emitTo(connID, EventError, errSendFailed)
		return fmt.Errorf("persist group message: %w", err)
	}

	room := GroupRoom(req.GroupID)
	delivered, broadcastErr := p.rooms.Broadcast(room, EventGroupMessage, groupMsg)
	if broadcastErr != nil {
		// Partial failure: the affected members were skipped already; the
		// sender is told and the flow continues.
		p.emitTo(connID, EventError, errSendFailed)
	}
	p.publish(ctx, relayScopeRoom, room, EventGroupMessage, groupMsg)

	p.logger.Info().
		Str("message_id", groupMsg.ID).
		Str("room", room).
		Int("delivered", delivered).
		Msg("Group message broadcast.")

	p.notify(ctx, room, sender.ID)

	return nil
}

// JoinChat subscribes the connection to the direct room of userID. No ownership
// check is performed: any authenticated connection may join any user's direct
// room. This mirrors the original contract and is a documented gap.
func (p *Pipeline) JoinChat(connID string, userID int64) error {
	conn, ok := p.registry.Conn(connID)
	if !ok {
		return fmt.Errorf("join chat: %w", ErrConnectionNotFound)
	}

	p.rooms.Join(UserRoom(userID), conn)
	return nil
}

// JoinGroup runs the authorization gate and, on success, subscribes the
// connection to the group room and replays the stored history to the requester
// only. Denied requests receive an "error" event and no membership.
func (p *Pipeline) JoinGroup(ctx context.Context, connID string, groupID int64) error {
	conn, ok := p.registry.Conn(connID)
	if !ok {
		return fmt.Errorf("join group: %w", ErrConnectionNotFound)
	}

	identity, ok := p.registry.Identity(connID)
	if !ok || !p.gate.CanJoinGroup(ctx, identity, groupID) {
		p.emitTo(connID, EventError, errGroupAccessDenied)
		return nil
	}

	p.rooms.Join(GroupRoom(groupID), conn)

	p.logger.Info().
		Int64("user_id", identity.UserID).
		Int64("group_id", groupID).
		Msg("User joined group room.")

	history, err := p.groups.GetMessagesByGroupID(ctx, groupID)
	if err != nil {
		p.logger.Error().
			Int64("group_id", groupID).
			Err(err).
			Msg("Failed to load group history.")
		return fmt.Errorf("load group history: %w", err)
	}
	if history == nil {
		history = []GroupMessage{}
	}

	if err := conn.Emit(EventGroupMessages, history); err != nil {
		p.logger.Warn().
			Str("conn_id", connID).
			Err(err).
			Msg("Failed to deliver group history.")
	}

	return nil
}

// notify emits the "notification" event to the given room.
func (p *Pipeline) notify(ctx context.Context, room string, senderID int64) {
	payload := Notification{
		Title:     notificationTitle,
		Content:   fmt.Sprintf("Você recebeu uma nova mensagem de %d", senderID),
		Timestamp: time.Now().UTC(),
	}

	if _, err := p.rooms.Broadcast(room, EventNotification, payload); err != nil {
		p.logger.Warn().Str("room", room).Err(err).Msg("Notification delivery incomplete.")
	}
	p.publish(ctx, relayScopeRoom, room, EventNotification, payload)
}

// emitTo sends an event to a single connection, logging failures.
func (p *Pipeline) emitTo(connID string, event string, payload any) {
	conn, ok := p.registry.Conn(connID)
	if !ok {
		return
	}

	if err := conn.Emit(event, payload); err != nil {
		p.logger.Warn().
			Str("conn_id", connID).
			Str("event", event).
			Err(err).
			Msg("Failed to emit event to connection.")
	}
}

// publish forwards a locally-originated broadcast to the relay, if configured.
func (p *Pipeline) publish(ctx context.Context, scope string, room string, event string, payload any) {
	if p.relay == nil {
		return
	}

	if err := p.relay.Publish(ctx, scope, room, event, payload); err != nil {
		p.logger.Warn().
			Str("scope", scope).
			Str("room", room).
			Str("event", event).
			Err(err).
			Msg("Relay publish failed.")
	}
}
