/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template corresponding to every application
// error code. The key is the error code; the value carries the user message
// and, where it differs from 200, the HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Session and Room Membership Errors
	ErrUsernameExists:      {Code: ErrUsernameExists, Message: "That username is already taken in this room."},
	ErrUnknownConnection:   {Code: ErrUnknownConnection, Message: "Connection is not a member of any room."},
	ErrDuplicateConnection: {Code: ErrDuplicateConnection, Message: "Connection is already registered."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
