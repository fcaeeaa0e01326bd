/*
Package randx provides generation of the identifiers the chat layer needs at runtime.
*/
package randx

import "github.com/google/uuid"

// ConnectionID generates a UUID v4 string identifying a single live
// WebSocket connection for the duration of its lifetime.
func ConnectionID() string {
	return uuid.New().String()
}
