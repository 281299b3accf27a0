/*
Package randx provides generation and validation of unique connection identifiers.

Socket IDs are standard UUID v4 strings assigned by the server when a
WebSocket connection is established, so uniqueness is a server-side guarantee
rather than a client promise.
*/
package randx

import "github.com/google/uuid"

// SocketID generates a UUID v4 string identifying one live connection.
func SocketID() string {
	return uuid.New().String()
}

// IsValidSocketID reports whether the given string parses as a socket ID.
// Used to reject forged or truncated IDs arriving inside event payloads.
func IsValidSocketID(id string) bool {
	if id == "" {
		return false
	}

	_, err := uuid.Parse(id)
	return err == nil
}
