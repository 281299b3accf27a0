/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Session and Room Membership Errors
const (
	// ErrUsernameExists indicates that the requested username is already
	// taken by a connected member of the room.
	ErrUsernameExists = 2101

	// ErrUnknownConnection indicates that a lookup by socket ID found no
	// admitted user (never joined, or already disconnected).
	ErrUnknownConnection = 2102

	// ErrDuplicateConnection indicates an attempt to admit a socket ID that
	// is already registered. This signals a broken transport contract, not a
	// recoverable client condition.
	ErrDuplicateConnection = 2103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
