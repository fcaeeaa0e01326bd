/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in communication with clients, over REST responses as well as chat
socket error events.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Message Business Logic Errors
const (
	// ErrRoomNotFound indicates that the targeted room does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomIsFull indicates that a direct room already has its two members.
	ErrRoomIsFull = 2102

	// ErrNotRoomMember indicates the user has no membership in the room and
	// self-healing is disabled.
	ErrNotRoomMember = 2103

	// ErrRoomNameInvalid indicates an empty or oversized room name.
	ErrRoomNameInvalid = 2104

	// ErrDirectRoomSelf indicates an attempt to open a direct room with oneself.
	ErrDirectRoomSelf = 2105

	// ErrMessageEmpty indicates the message body was empty after trimming.
	ErrMessageEmpty = 2201

	// ErrMessageTooLong indicates the message body exceeded the maximum length.
	ErrMessageTooLong = 2202
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrAuthTokenMissing indicates the authenticate event carried no token.
	ErrAuthTokenMissing = 3001

	// ErrAuthTokenInvalid indicates a malformed, badly signed, or expired token.
	ErrAuthTokenInvalid = 3002

	// ErrAuthUserNotFound indicates the token references a user that no longer exists.
	ErrAuthUserNotFound = 3003

	// ErrNotAuthenticated indicates a protocol event that requires authentication
	// arrived on an unauthenticated connection.
	ErrNotAuthenticated = 3101

	// ErrNotInRoom indicates a protocol event that requires room occupancy
	// arrived before join-room, or targeted a different room.
	ErrNotInRoom = 3102

	// ErrSessionReplaced indicates the connection was evicted by a newer login.
	ErrSessionReplaced = 3201

	// ErrAlreadyLoggedIn indicates a register/login attempt while already authenticated.
	ErrAlreadyLoggedIn = 3301

	// ErrInvalidUsername indicates the username does not match the allowed pattern.
	ErrInvalidUsername = 3302

	// ErrInvalidPassword indicates the password length is out of bounds.
	ErrInvalidPassword = 3303

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = 3304

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = 3305

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3306

	// ErrUnauthorized indicates a REST call without a valid identity.
	ErrUnauthorized = 3307
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistence indicates a read or write against the database failed.
	ErrPersistence = 5001
)
