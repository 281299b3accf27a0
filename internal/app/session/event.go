/*
Package session contains the core coordination logic for collaboration rooms:
the connection registry, the join/disconnect protocols, presence tracking, and
the event router that fans mutation events out to the right subset of peers.

This file defines the closed catalogue of wire event tags and the typed
payload carried by each. Every inbound event is decoded into its variant
before dispatch; the coordinator never re-emits a payload it could not parse.
*/
package session

import (
	"encoding/json"

	"github.com/Tanmay-110/Code-Collab/internal/app/user"
)

// SocketEvent is the tag identifying one event on the wire.
type SocketEvent string

// Inbound events accepted from clients. Structural mutation payloads
// (directories, files, drawings, chat) are opaque to the coordinator and kept
// as raw JSON; only the fields needed for routing are typed.
const (
	EventJoinRequest SocketEvent = "join-request"

	EventSyncFileStructure SocketEvent = "sync-file-structure"
	EventDirectoryCreated  SocketEvent = "directory-created"
	EventDirectoryUpdated  SocketEvent = "directory-updated"
	EventDirectoryRenamed  SocketEvent = "directory-renamed"
	EventDirectoryDeleted  SocketEvent = "directory-deleted"
	EventFileCreated       SocketEvent = "file-created"
	EventFileUpdated       SocketEvent = "file-updated"
	EventFileRenamed       SocketEvent = "file-renamed"
	EventFileDeleted       SocketEvent = "file-deleted"

	EventUserOffline SocketEvent = "offline"
	EventUserOnline  SocketEvent = "online"

	EventSendMessage SocketEvent = "send-message"

	EventTypingStart SocketEvent = "typing-start"
	EventTypingPause SocketEvent = "typing-pause"

	EventRequestDrawing SocketEvent = "request-drawing"
	EventSyncDrawing    SocketEvent = "sync-drawing"
	EventDrawingUpdate  SocketEvent = "drawing-update"
)

// Outbound-only events produced by the coordinator.
const (
	EventUsernameExists   SocketEvent = "username-exists"
	EventJoinAccepted     SocketEvent = "join-accepted"
	EventUserJoined       SocketEvent = "user-joined"
	EventUserDisconnected SocketEvent = "user-disconnected"
	EventReceiveMessage   SocketEvent = "receive-message"
)

// eventDisconnecting is the internal tag submitted by the transport layer
// when a connection starts tearing down. It never appears on the wire.
const eventDisconnecting SocketEvent = "disconnecting"

// Envelope is the wire framing for every event in both directions.
type Envelope struct {
	Event   SocketEvent     `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRequestPayload asks for admission to a room under a username.
type JoinRequestPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// JoinAcceptedPayload confirms admission, carrying the new user's record and
// the full membership snapshot taken after insertion (so it includes the
// joiner itself).
type JoinAcceptedPayload struct {
	User  user.User   `json:"user"`
	Users []user.User `json:"users"`
}

// UserPayload wraps a full user record, used for join/disconnect
// announcements and typing updates.
type UserPayload struct {
	User user.User `json:"user"`
}

// SocketIDPayload carries a bare connection identifier, used for status
// toggles and drawing requests.
type SocketIDPayload struct {
	SocketID string `json:"socketId"`
}

// SyncFileStructurePayload delivers a full file-tree snapshot to the one
// connection named by SocketID. The snapshot fields are opaque.
type SyncFileStructurePayload struct {
	FileStructure json.RawMessage `json:"fileStructure"`
	OpenFiles     json.RawMessage `json:"openFiles"`
	ActiveFile    json.RawMessage `json:"activeFile"`
	SocketID      string          `json:"socketId,omitempty"`
}

// DirectoryCreatedPayload announces a new directory under a parent.
type DirectoryCreatedPayload struct {
	ParentDirID  string          `json:"parentDirId"`
	NewDirectory json.RawMessage `json:"newDirectory"`
}

// DirectoryUpdatedPayload replaces a directory's children.
type DirectoryUpdatedPayload struct {
	DirID    string          `json:"dirId"`
	Children json.RawMessage `json:"children"`
}

// DirectoryRenamedPayload renames a directory.
type DirectoryRenamedPayload struct {
	DirID   string `json:"dirId"`
	NewName string `json:"newName"`
}

// DirectoryDeletedPayload removes a directory.
type DirectoryDeletedPayload struct {
	DirID string `json:"dirId"`
}

// FileCreatedPayload announces a new file under a parent directory.
type FileCreatedPayload struct {
	ParentDirID string          `json:"parentDirId"`
	NewFile     json.RawMessage `json:"newFile"`
}

// FileUpdatedPayload replaces a file's content. Content is opaque.
type FileUpdatedPayload struct {
	FileID     string          `json:"fileId"`
	NewContent json.RawMessage `json:"newContent"`
}

// FileRenamedPayload renames a file.
type FileRenamedPayload struct {
	FileID  string `json:"fileId"`
	NewName string `json:"newName"`
}

// FileDeletedPayload removes a file.
type FileDeletedPayload struct {
	FileID string `json:"fileId"`
}

// MessagePayload carries one chat message. The coordinator relays it without
// inspection, retagged from send-message to receive-message.
type MessagePayload struct {
	Message json.RawMessage `json:"message"`
}

// TypingStartPayload reports the sender's cursor offset when typing begins.
type TypingStartPayload struct {
	CursorPosition int `json:"cursorPosition"`
}

// SyncDrawingPayload delivers the current canvas to the one connection named
// by SocketID, answering a prior request-drawing broadcast.
type SyncDrawingPayload struct {
	DrawingData json.RawMessage `json:"drawingData"`
	SocketID    string          `json:"socketId,omitempty"`
}

// DrawingUpdatePayload broadcasts an updated canvas snapshot.
type DrawingUpdatePayload struct {
	Snapshot json.RawMessage `json:"snapshot"`
}
