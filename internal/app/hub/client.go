/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Client struct, the gorilla/websocket adapter behind the
Conn interface. It manages the connection lifecycle and the message pumps
(ReadPump and WritePump) that shuttle event frames between the peer and the
session gateway.
*/
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// sendQueueSize is the capacity of the per-client outbound queue.
	sendQueueSize = 256

	// WsCloseCodeAuthFailed is a custom WebSocket Close Code (4000-4999 range)
	// signalling that authentication was rejected.
	WsCloseCodeAuthFailed = 4001
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is an active WebSocket connection implementing Conn.
type Client struct {
	id      string
	conn    *websocket.Conn
	gateway *Gateway

	// send queues outbound frames for the WritePump. sendMu serializes
	// queueing against queue close: a disconnect may run concurrently with an
	// in-flight broadcast, and Emit must never send on a closed channel.
	send   chan []byte
	sendMu sync.RWMutex
	closed bool

	logger zerolog.Logger
}

// NewClient constructs a Client over an upgraded WebSocket connection.
func NewClient(id string, wsConn *websocket.Conn, gateway *Gateway) *Client {
	return &Client{
		id:      id,
		conn:    wsConn,
		gateway: gateway,
		send:    make(chan []byte, sendQueueSize),
		logger:  logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Emit queues a single event frame for delivery. A full queue is treated as a
// delivery failure so slow consumers cannot block broadcasts.
func (c *Client) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	frameBytes, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed {
		return fmt.Errorf("client %s disconnected", c.id)
	}

	select {
	case c.send <- frameBytes:
		return nil
	default:
		c.logger.Warn().
			Str("event", event).
			Int("queue_len", len(c.send)).
			Msg("Client send queue full, dropping frame.")
		return fmt.Errorf("client send queue full")
	}
}

// Close terminates the session, sending a close frame with the given reason.
func (c *Client) Close(reason string) error {
	closeMessage := websocket.FormatCloseMessage(WsCloseCodeAuthFailed, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send close frame.")
	}

	c.closeSendQueue()

	return c.conn.Close()
}

// closeSendQueue closes the send channel exactly once, which stops WritePump.
// After it returns, Emit reports a delivery failure instead of queueing.
func (c *Client) closeSendQueue() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames from the WebSocket connection and dispatches them to
// the gateway. It handles heartbeats (Pong) and performs cleanup on close.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(frameBytes, &frame); err != nil {
			c.logger.Warn().Err(err).
				Bytes("frame_bytes", frameBytes).
				Msg("Client sent invalid JSON")
			continue
		}

		c.gateway.Dispatch(ctx, c.id, frame.Event, frame.Data)
	}
}

// cleanupOnDisconnect releases session state when ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.gateway.HandleDisconnect(c.id)

	c.closeSendQueue()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames from the send channel to the WebSocket
// connection and keeps the heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel. Returns true
// if the WritePump loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping to maintain the heartbeat. Returns
// false if the WritePump loop should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
