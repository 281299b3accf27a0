/*
Package user contains the core data structure for a connected participant.

It defines the User struct shared between the session coordinator and clients:
identity fields fixed at join time (socket ID, username, room ID) plus the
mutable presence fields (status, typing, cursor position, current file).
*/
package user

// ConnectionStatus describes whether a participant is actively present in the room.
type ConnectionStatus string

const (
	// StatusOnline marks a participant as actively present.
	StatusOnline ConnectionStatus = "online"

	// StatusOffline marks a participant whose connection is alive but who has
	// reported themselves away (tab hidden, editor unfocused).
	StatusOffline ConnectionStatus = "offline"
)

// User represents one admitted participant of a collaboration room.
// Fields use JSON tags for serialization in WebSocket messages.
type User struct {
	// SocketID is the unique identifier of the underlying connection,
	// assigned by the server when the WebSocket is established.
	SocketID string `json:"socketId"`

	// Username is the display name, unique within the room at join time.
	Username string `json:"username"`

	// RoomID is the room this user joined. It never changes for the
	// lifetime of the connection.
	RoomID string `json:"roomId"`

	// Status is the reported online/offline state.
	Status ConnectionStatus `json:"status"`

	// Typing reports whether the user is currently typing.
	Typing bool `json:"typing"`

	// CursorPosition is the last reported cursor offset in the active file.
	CursorPosition int `json:"cursorPosition"`

	// CurrentFile is the identifier of the file the user has open, if any.
	// Informational only; the coordinator never resolves it.
	CurrentFile string `json:"currentFile,omitempty"`
}
