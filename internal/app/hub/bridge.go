/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Bridge, an optional Redis pub/sub relay that carries
broadcast frames between hub instances. Each instance publishes its
locally-originated broadcasts and replays frames from peers into its own
registry and rooms. Frames carry the origin instance id so an instance ignores
its own publications.
*/
package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

// fanoutChannel is the Redis channel shared by all hub instances.
const fanoutChannel = "cesuchat:fanout"

// Relay scopes for a published frame.
const (
	relayScopeAll  = "all"
	relayScopeRoom = "room"
)

// Relay forwards locally-originated broadcasts to peer instances.
type Relay interface {
	Publish(ctx context.Context, scope string, room string, event string, payload any) error
}

// relayFrame is the wire format exchanged over the Redis channel.
type relayFrame struct {
	Origin  string          `json:"origin"`
	Scope   string          `json:"scope"`
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge relays broadcast frames between hub instances over Redis pub/sub.
type Bridge struct {
	rdb      *redis.Client
	registry *Registry
	rooms    *Rooms

	// instanceID distinguishes this instance's frames from peers'.
	instanceID string

	logger zerolog.Logger
}

// NewBridge constructs a Bridge over the given Redis client. instanceID must be
// unique per running instance.
func NewBridge(rdb *redis.Client, registry *Registry, rooms *Rooms, instanceID string) *Bridge {
	return &Bridge{
		rdb:        rdb,
		registry:   registry,
		rooms:      rooms,
		instanceID: instanceID,
		logger:     logx.Logger().With().Str("component", "Bridge").Str("instance_id", instanceID).Logger(),
	}
}

// Publish implements Relay: it encodes the frame and publishes it on the shared
// fanout channel.
func (b *Bridge) Publish(ctx context.Context, scope string, room string, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal relay payload: %w", err)
	}

	frame := relayFrame{
		Origin:  b.instanceID,
		Scope:   scope,
		Room:    room,
		Event:   event,
		Payload: data,
	}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal relay frame: %w", err)
	}

	return b.rdb.Publish(ctx, fanoutChannel, frameBytes).Err()
}

// Run subscribes to the fanout channel and replays peer frames into the local
// registry and rooms until ctx is cancelled. Peer frames are re-broadcast
// locally only; they are never published again, so frames cannot loop.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, fanoutChannel)
	defer pubsub.Close()

	b.logger.Info().Msg("Fanout bridge subscribed.")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Fanout bridge stopped.")
			return

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn().Msg("Fanout subscription channel closed.")
				return
			}
			b.deliver([]byte(msg.Payload))
		}
	}
}

// deliver decodes one frame from a peer instance and broadcasts it locally.
func (b *Bridge) deliver(frameBytes []byte) {
	var frame relayFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed relay frame.")
		return
	}

	if frame.Origin == b.instanceID {
		return
	}

	switch frame.Scope {
	case relayScopeAll:
		b.registry.BroadcastAll(frame.Event, frame.Payload)

	case relayScopeRoom:
		if _, err := b.rooms.Broadcast(frame.Room, frame.Event, frame.Payload); err != nil {
			b.logger.Warn().
				Str("room", frame.Room).
				Str("event", frame.Event).
				Err(err).
				Msg("Relayed broadcast delivery incomplete.")
		}

	default:
		b.logger.Warn().Str("scope", frame.Scope).Msg("Dropping relay frame with unknown scope.")
	}
}
