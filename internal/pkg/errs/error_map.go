/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and socket error events.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Message Business Logic Errors
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Chat room not found."},
	ErrRoomIsFull:      {Code: ErrRoomIsFull, Message: "This chat room is full."},
	ErrNotRoomMember:   {Code: ErrNotRoomMember, Message: "You are not a member of this chat room."},
	ErrRoomNameInvalid: {Code: ErrRoomNameInvalid, Message: "Invalid room name."},
	ErrDirectRoomSelf:  {Code: ErrDirectRoomSelf, Message: "Cannot open a direct chat with yourself."},
	ErrMessageEmpty:    {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrMessageTooLong:  {Code: ErrMessageTooLong, Message: "Message is too long (max %d characters)."},

	// 3xxx: User, Session, and Security Errors
	ErrAuthTokenMissing: {Code: ErrAuthTokenMissing, Message: "A token is required."},
	ErrAuthTokenInvalid: {Code: ErrAuthTokenInvalid, Message: "Invalid or expired token."},
	ErrAuthUserNotFound: {Code: ErrAuthUserNotFound, Message: "Unknown user."},
	ErrNotAuthenticated: {Code: ErrNotAuthenticated, Message: "Please authenticate first."},
	ErrNotInRoom:        {Code: ErrNotInRoom, Message: "Please join the chat room first."},
	ErrSessionReplaced:  {Code: ErrSessionReplaced, Message: "You signed in from another place; this connection is closing."},

	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:     {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistence: {Code: ErrPersistence, Message: "Could not save your data. Please try again."},
}
