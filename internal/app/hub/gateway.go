/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Gateway, the session orchestrator and the only component
that touches the transport. It handles connect (token verification and identity
attachment), disconnect (cleanup), and routes each inbound application event to
the pipeline.
*/
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

// ErrAuthenticationFailed is returned by HandleConnect when the token is
// missing or invalid. The connection is force-closed with no event emitted.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Gateway orchestrates the registry, gate, and pipeline on connect, disconnect,
// and each inbound event.
type Gateway struct {
	registry *Registry
	pipeline *Pipeline
	verifier TokenVerifier

	// verifyTimeout bounds the token verification call made on connect.
	verifyTimeout time.Duration

	logger zerolog.Logger
}

// NewGateway constructs a Gateway. verifyTimeout caps how long token
// verification may block a connecting session.
func NewGateway(registry *Registry, pipeline *Pipeline, verifier TokenVerifier, verifyTimeout time.Duration) *Gateway {
	return &Gateway{
		registry:      registry,
		pipeline:      pipeline,
		verifier:      verifier,
		verifyTimeout: verifyTimeout,
		logger:        logx.Logger().With().Str("component", "Gateway").Logger(),
	}
}

// HandleConnect registers the connection, verifies the bearer token, and
// attaches the resulting identity. A missing or invalid token results in a
// forced disconnect with no event emitted to the client.
func (g *Gateway) HandleConnect(ctx context.Context, conn Conn, token string) error {
	g.registry.Register(conn)

	if token == "" {
		g.logger.Warn().Str("conn_id", conn.ID()).Msg("Connection rejected: missing token.")
		g.forceDisconnect(conn, "authentication required")
		return ErrAuthenticationFailed
	}

	verifyCtx, cancel := context.WithTimeout(ctx, g.verifyTimeout)
	defer cancel()

	identity, err := g.verifier.Verify(verifyCtx, token)
	if err != nil {
		g.logger.Warn().
			Str("conn_id", conn.ID()).
			Err(err).
			Msg("Connection rejected: token verification failed.")
		g.forceDisconnect(conn, "authentication failed")
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	if err := g.registry.AttachIdentity(conn.ID(), identity); err != nil {
		g.forceDisconnect(conn, "session error")
		return fmt.Errorf("attach identity: %w", err)
	}

	g.logger.Info().
		Str("conn_id", conn.ID()).
		Int64("user_id", identity.UserID).
		Msg("Client connected.")

	return nil
}

// HandleDisconnect releases all state held for the connection. Idempotent.
func (g *Gateway) HandleDisconnect(connID string) {
	g.registry.Unregister(connID)
}

// Dispatch routes one inbound application event to the pipeline. Payloads that
// fail to decode are logged and dropped; pipeline errors are scoped to the
// single operation and never fatal.
func (g *Gateway) Dispatch(ctx context.Context, connID string, event string, data json.RawMessage) {
	var err error

	switch event {
	case EventSendMessage:
		var req MessageRequest
		if err = json.Unmarshal(data, &req); err == nil {
			err = g.pipeline.SendDirect(ctx, connID, req)
		}

	case EventJoinChat:
		var userID int64
		if err = json.Unmarshal(data, &userID); err == nil {
			err = g.pipeline.JoinChat(connID, userID)
		}

	case EventJoinGroup:
		var groupID int64
		if err = json.Unmarshal(data, &groupID); err == nil {
			err = g.pipeline.JoinGroup(ctx, connID, groupID)
		}

	case EventSendGroupMessage:
		var req GroupMessageRequest
		if err = json.Unmarshal(data, &req); err == nil {
			err = g.pipeline.SendGroup(ctx, connID, req)
		}

	default:
		g.logger.Warn().
			Str("conn_id", connID).
			Str("event", event).
			Msg("Client sent unsupported event.")
		return
	}

	if err != nil {
		g.logger.Warn().
			Str("conn_id", connID).
			Str("event", event).
			Err(err).
			Msg("Event handling failed.")
	}
}

// forceDisconnect removes the connection and closes the transport.
func (g *Gateway) forceDisconnect(conn Conn, reason string) {
	g.registry.Unregister(conn.ID())

	if err := conn.Close(reason); err != nil {
		g.logger.Warn().
			Str("conn_id", conn.ID()).
			Err(err).
			Msg("Error closing rejected connection.")
	}
}
