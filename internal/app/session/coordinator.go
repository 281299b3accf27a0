/*
Package session contains the core coordination logic for collaboration rooms.

This file defines the Coordinator, the single authority every inbound event
flows through. One goroutine consumes the event queue and runs each handler to
completion, so the admission check-then-insert of a join and every registry
mutation are atomic with respect to other events. Handlers resolve the
sender's room through the registry and fan the event out to the computed
target set: the rest of the room, or one addressed peer.
*/
package session

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Tanmay-110/Code-Collab/internal/app/user"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/logx"
)

const eventQueueBuffer = 1024

// Peer is one connected participant able to receive outbound events. The
// WebSocket client implements it; tests substitute in-memory sinks.
type Peer interface {
	// SocketID returns the connection identifier assigned at upgrade time.
	SocketID() string

	// Send queues one outbound event for delivery. It must not block the
	// caller; a peer that cannot accept the event returns an error.
	Send(event SocketEvent, payload any) error
}

// inboundEvent is one tagged event awaiting the coordinator's run loop.
type inboundEvent struct {
	socketID string
	event    SocketEvent
	payload  json.RawMessage
}

// Coordinator routes every event of every room in the process. It owns the
// peer table; the registry is injected so tests can run several independent
// coordinators side by side.
type Coordinator struct {
	registry *Registry

	// peers maps socket IDs to live delivery endpoints. Attached by the
	// transport handler before the first read, detached during disconnect.
	peers   map[string]Peer
	peersMu sync.RWMutex

	// events is the serialized inbound queue; the run loop is its only consumer.
	events chan inboundEvent

	stop chan struct{}
	wg   sync.WaitGroup

	logger zerolog.Logger
}

// NewCoordinator constructs a Coordinator around the given registry and
// starts its run loop.
func NewCoordinator(registry *Registry) *Coordinator {
	c := &Coordinator{
		registry: registry,
		peers:    make(map[string]Peer),
		events:   make(chan inboundEvent, eventQueueBuffer),
		stop:     make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "Coordinator").Logger(),
	}

	c.wg.Add(1)
	go c.run()

	return c
}

// Registry exposes the injected registry, mainly for inspection in tests and
// the health surface.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// AttachPeer makes a connection addressable for outbound delivery. It must be
// called before the connection's first event is dispatched.
func (c *Coordinator) AttachPeer(p Peer) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()

	c.peers[p.SocketID()] = p
}

// Dispatch submits one inbound event for processing. Events from one
// connection are processed in submission order. After Shutdown, events are
// dropped.
func (c *Coordinator) Dispatch(socketID string, event SocketEvent, payload json.RawMessage) {
	select {
	case c.events <- inboundEvent{socketID: socketID, event: event, payload: payload}:
	case <-c.stop:
		c.logger.Debug().Str("event", string(event)).Msg("Coordinator stopped; dropping event.")
	}
}

// Disconnect runs the disconnect protocol for the connection: departure is
// announced to the rest of its room while the record is still resolvable,
// then the record and the peer are removed. Unknown connections are a no-op.
func (c *Coordinator) Disconnect(socketID string) {
	c.Dispatch(socketID, eventDisconnecting, nil)
}

// Shutdown stops the run loop and waits for it to drain.
func (c *Coordinator) Shutdown() {
	c.logger.Info().Msg("Shutting down coordinator...")

	close(c.stop)
	c.wg.Wait()

	c.logger.Info().Msg("Coordinator shutdown complete.")
}

// run is the single consumer of the inbound queue.
func (c *Coordinator) run() {
	defer c.wg.Done()

	c.logger.Info().Msg("Coordinator event loop started.")

	for {
		select {
		case ev := <-c.events:
			c.handleEvent(ev)
		case <-c.stop:
			c.logger.Info().Msg("Coordinator event loop stopped.")
			return
		}
	}
}

// handleEvent dispatches one event to its handler. A panicking handler is
// contained here so a single bad event cannot take down the authority.
func (c *Coordinator) handleEvent(ev inboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("event", string(ev.event)).
				Str("socket_id", ev.socketID).
				Interface("panic", r).
				Msg("Recovered from panic in event handler.")
		}
	}()

	switch ev.event {
	case EventJoinRequest:
		c.handleJoin(ev)

	case eventDisconnecting:
		c.handleDisconnect(ev)

	case EventSyncFileStructure:
		var p SyncFileStructurePayload
		if !c.decode(ev, &p) {
			return
		}
		c.unicast(p.SocketID, ev.event, p)

	case EventDirectoryCreated:
		var p DirectoryCreatedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventDirectoryUpdated:
		var p DirectoryUpdatedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventDirectoryRenamed:
		var p DirectoryRenamedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventDirectoryDeleted:
		var p DirectoryDeletedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventFileCreated:
		var p FileCreatedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventFileUpdated:
		var p FileUpdatedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventFileRenamed:
		var p FileRenamedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventFileDeleted:
		var p FileDeletedPayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	case EventUserOffline:
		c.handleStatusToggle(ev, user.StatusOffline)

	case EventUserOnline:
		c.handleStatusToggle(ev, user.StatusOnline)

	case EventSendMessage:
		var p MessagePayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, EventReceiveMessage, p)
		}

	case EventTypingStart:
		c.handleTypingStart(ev)

	case EventTypingPause:
		c.handleTypingPause(ev)

	case EventRequestDrawing:
		c.broadcastToRoom(ev.socketID, ev.event, SocketIDPayload{SocketID: ev.socketID})

	case EventSyncDrawing:
		var p SyncDrawingPayload
		if !c.decode(ev, &p) {
			return
		}
		target := p.SocketID
		p.SocketID = ""
		c.unicast(target, ev.event, p)

	case EventDrawingUpdate:
		var p DrawingUpdatePayload
		if c.decode(ev, &p) {
			c.broadcastToRoom(ev.socketID, ev.event, p)
		}

	default:
		c.logger.Warn().
			Str("event", string(ev.event)).
			Str("socket_id", ev.socketID).
			Msg("Client sent unsupported event.")
	}
}

// handleJoin runs the admission protocol: reject a username already taken in
// the room, otherwise register the user, announce the arrival to existing
// members, and reply to the joiner with the post-insert membership snapshot.
func (c *Coordinator) handleJoin(ev inboundEvent) {
	var p JoinRequestPayload
	if !c.decode(ev, &p) {
		return
	}

	if p.RoomID == "" || p.Username == "" {
		c.logger.Warn().
			Str("socket_id", ev.socketID).
			Msg("Join request missing roomId or username.")
		return
	}

	for _, member := range c.registry.MembersOf(p.RoomID) {
		if member.Username == p.Username {
			c.logger.Info().
				Str("room_id", p.RoomID).
				Str("username", p.Username).
				Msg("Join rejected: username already taken in room.")

			c.unicast(ev.socketID, EventUsernameExists, nil)
			return
		}
	}

	newUser := user.User{
		SocketID: ev.socketID,
		Username: p.Username,
		RoomID:   p.RoomID,
		Status:   user.StatusOnline,
	}

	if err := c.registry.Add(newUser); err != nil {
		// A second join on an admitted connection breaks the transport
		// contract; nothing may be double-registered.
		c.logger.Error().
			Err(err).
			Str("socket_id", ev.socketID).
			Str("room_id", p.RoomID).
			Msg("Join failed: connection already registered.")
		return
	}

	c.logger.Info().
		Str("socket_id", ev.socketID).
		Str("room_id", p.RoomID).
		Str("username", p.Username).
		Msg("User joined room.")

	c.broadcastToRoom(ev.socketID, EventUserJoined, UserPayload{User: newUser})

	snapshot := c.registry.MembersOf(p.RoomID)
	c.unicast(ev.socketID, EventJoinAccepted, JoinAcceptedPayload{User: newUser, Users: snapshot})
}

// handleDisconnect announces the departure while the user is still a
// resolvable room member, then removes the record and the peer. The departing
// connection is excluded from the recipient set but still queryable to
// resolve which room to broadcast into.
func (c *Coordinator) handleDisconnect(ev inboundEvent) {
	departing, ok := c.registry.ByConnection(ev.socketID)
	if ok {
		c.broadcastToRoom(ev.socketID, EventUserDisconnected, UserPayload{User: departing})
		c.registry.Remove(ev.socketID)

		c.logger.Info().
			Str("socket_id", ev.socketID).
			Str("room_id", departing.RoomID).
			Str("username", departing.Username).
			Msg("User disconnected from room.")
	}

	c.peersMu.Lock()
	delete(c.peers, ev.socketID)
	c.peersMu.Unlock()
}

// handleStatusToggle flips the online/offline status of the connection named
// in the payload and broadcasts the bare socket ID to the rest of the room.
func (c *Coordinator) handleStatusToggle(ev inboundEvent, status user.ConnectionStatus) {
	var p SocketIDPayload
	if !c.decode(ev, &p) {
		return
	}

	if _, ok := c.registry.Update(p.SocketID, func(u *user.User) { u.Status = status }); !ok {
		c.logger.Debug().
			Str("socket_id", p.SocketID).
			Msg("Status toggle for unknown connection; dropping.")
		return
	}

	event := EventUserOffline
	if status == user.StatusOnline {
		event = EventUserOnline
	}

	c.broadcastToRoomOf(p.SocketID, ev.socketID, event, SocketIDPayload{SocketID: p.SocketID})
}

// handleTypingStart records the sender's cursor position, marks them typing,
// and broadcasts the updated record.
func (c *Coordinator) handleTypingStart(ev inboundEvent) {
	var p TypingStartPayload
	if !c.decode(ev, &p) {
		return
	}

	updated, ok := c.registry.Update(ev.socketID, func(u *user.User) {
		u.Typing = true
		u.CursorPosition = p.CursorPosition
	})
	if !ok {
		c.logger.Debug().
			Str("socket_id", ev.socketID).
			Msg("Typing event from unknown connection; dropping.")
		return
	}

	c.broadcastToRoom(ev.socketID, EventTypingStart, UserPayload{User: updated})
}

// handleTypingPause clears the sender's typing flag and broadcasts the
// updated record.
func (c *Coordinator) handleTypingPause(ev inboundEvent) {
	updated, ok := c.registry.Update(ev.socketID, func(u *user.User) {
		u.Typing = false
	})
	if !ok {
		c.logger.Debug().
			Str("socket_id", ev.socketID).
			Msg("Typing event from unknown connection; dropping.")
		return
	}

	c.broadcastToRoom(ev.socketID, EventTypingPause, UserPayload{User: updated})
}

// broadcastToRoom delivers the event to every member of the sender's room
// except the sender. An unknown sender drops the event silently.
func (c *Coordinator) broadcastToRoom(senderID string, event SocketEvent, payload any) {
	c.broadcastToRoomOf(senderID, senderID, event, payload)
}

// broadcastToRoomOf resolves the room through subjectID but excludes
// senderID from the recipients. The two differ only for status toggles,
// where the payload names the subject connection.
func (c *Coordinator) broadcastToRoomOf(subjectID, senderID string, event SocketEvent, payload any) {
	roomID, ok := c.registry.RoomOf(subjectID)
	if !ok {
		c.logger.Debug().
			Str("socket_id", subjectID).
			Str("event", string(event)).
			Msg("Room lookup failed for event; dropping.")
		return
	}

	for _, member := range c.registry.MembersOf(roomID) {
		if member.SocketID == senderID {
			continue
		}
		c.deliver(member.SocketID, event, payload)
	}
}

// unicast delivers the event to exactly the named connection.
func (c *Coordinator) unicast(targetID string, event SocketEvent, payload any) {
	c.deliver(targetID, event, payload)
}

// deliver hands the event to the peer's send queue, if the peer is attached.
func (c *Coordinator) deliver(socketID string, event SocketEvent, payload any) {
	c.peersMu.RLock()
	peer, ok := c.peers[socketID]
	c.peersMu.RUnlock()

	if !ok {
		c.logger.Debug().
			Str("socket_id", socketID).
			Str("event", string(event)).
			Msg("No attached peer for delivery target; dropping.")
		return
	}

	if err := peer.Send(event, payload); err != nil {
		c.logger.Warn().
			Err(err).
			Str("socket_id", socketID).
			Str("event", string(event)).
			Msg("Failed to queue event for peer.")
	}
}

// decode unmarshals the event payload, dropping the event with a warning on
// malformed input.
func (c *Coordinator) decode(ev inboundEvent, dst any) bool {
	if err := json.Unmarshal(ev.payload, dst); err != nil {
		c.logger.Warn().
			Err(err).
			Str("event", string(ev.event)).
			Str("socket_id", ev.socketID).
			Msg("Client sent malformed payload; dropping event.")
		return false
	}
	return true
}
