/*
Package handler provides the HTTP handlers and routing setup for the Code-Collab server.

This file contains the HandleWebSocket function, responsible for rate
limiting, upgrading the HTTP connection to WebSocket, assigning the
connection its socket ID, and starting the client read/write loops.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tanmay-110/Code-Collab/internal/app/session"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/errs"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/limiter"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/logx"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/randx"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades connection
// requests and wires the resulting client into the coordinator. Room
// admission happens later, over the socket, via a join-request event.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		socketID := randx.SocketID()

		client := session.NewClient(deps.Coordinator, conn, socketID)
		deps.Coordinator.AttachPeer(client)

		go client.WritePump()

		logx.Info("WebSocket connection established", "socket_id", socketID)

		client.ReadPump()
	}
}
