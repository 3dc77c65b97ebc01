/*
Package handler provides the HTTP handlers and routing setup for the messaging hub.

This file contains the HandleWebSocket function, which upgrades the HTTP
connection, hands the session to the gateway for authentication, and drives the
client read/write pumps for the life of the connection.
*/
package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cesuchat/internal/app/hub"
	"cesuchat/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The bearer token travels in the "token" query parameter, the handshake-auth
// equivalent for browser WebSocket clients that cannot set headers.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := uuid.NewString()
		client := hub.NewClient(connID, conn, deps.Gateway)

		go client.WritePump()

		if err := deps.Gateway.HandleConnect(r.Context(), client, token); err != nil {
			// The gateway already closed the connection; nothing more to emit.
			return
		}

		logx.Info("WebSocket connection established", "conn_id", connID)

		client.ReadPump(r.Context())
	}
}
