/*
Package session contains the core coordination logic for collaboration rooms.

This file defines the Client struct, representing an active WebSocket
connection. It manages the connection's read and write loops, decodes
inbound wire envelopes into coordinator events, and guarantees that the
disconnect protocol runs exactly once per connection.
*/
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tanmay-110/Code-Collab/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	// Sized generously: file-content updates carry whole files.
	maxMessageSize = 1 << 20

	// sendQueueSize bounds the per-connection outbound queue. A slow reader
	// overflowing it loses messages rather than stalling the coordinator.
	sendQueueSize = 256
)

// Client represents one active WebSocket connection known to the coordinator.
type Client struct {
	// socketID is the connection identifier assigned at upgrade time.
	socketID string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// coord receives every event this connection produces.
	coord *Coordinator

	// a buffered channel queueing messages waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the single run of the disconnect protocol.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(coord *Coordinator, wsConn *websocket.Conn, socketID string) *Client {
	clientLogger := logx.Logger().With().
		Str("socket_id", socketID).
		Logger()

	return &Client{
		socketID: socketID,
		conn:     wsConn,
		coord:    coord,
		send:     make(chan []byte, sendQueueSize),
		logger:   clientLogger,
	}
}

// SocketID implements Peer.
func (c *Client) SocketID() string {
	return c.socketID
}

// Send implements Peer: it marshals the event envelope and queues it for the
// write loop. A full queue drops the message and reports the failure.
func (c *Client) Send(event SocketEvent, payload any) error {
	envelope := struct {
		Event   SocketEvent `json:"event"`
		Payload any         `json:"payload,omitempty"`
	}{Event: event, Payload: payload}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(event)).Msg("Error marshaling outbound event.")
		return err
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().
			Int("queue_len", len(c.send)).
			Str("event", string(event)).
			Msg("Client send channel full, dropping message.")
		return fmt.Errorf("client send queue full")
	}
}

// ReadPump reads wire envelopes from the WebSocket connection and dispatches
// them to the coordinator. It handles heartbeats (Pong) and performs cleanup
// when the connection closes.
func (c *Client) ReadPump() {
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
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(messageBytes, &envelope); err != nil {
			c.logger.Warn().Err(err).
				Bytes("message_bytes", messageBytes).
				Msg("Client sent invalid JSON")
			continue
		}

		if envelope.Event == "" || envelope.Event == eventDisconnecting {
			c.logger.Warn().Str("event", string(envelope.Event)).Msg("Client sent invalid event tag")
			continue
		}

		c.coord.Dispatch(c.socketID, envelope.Event, envelope.Payload)
	}
}

// cleanupOnDisconnect runs the disconnect protocol exactly once and closes
// the underlying connection.
func (c *Client) cleanupOnDisconnect() {
	c.closeOnce.Do(func() {
		c.logger.Info().Msg("Client connection cleanup starting.")

		c.coord.Disconnect(c.socketID)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// WritePump writes queued messages from the send channel to the WebSocket
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
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one queued message to the WebSocket. It returns
// false when the write loop should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping frame to maintain the heartbeat.
// It returns false when the write loop should terminate.
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
