/*
Package chat contains the core logic for the live chat session layer: the
presence table of authenticated connections, the per-connection protocol
engine, room broadcasting, and the WebSocket client pumps.

This file defines the wire protocol: the JSON envelope exchanged over the
WebSocket and the payload structures of every event.
*/
package chat

import (
	"encoding/json"
	"time"

	"flirto/internal/app/store"
)

// EventType names a protocol event in the JSON envelope.
type EventType string

// Client → server events.
const (
	EventAuthenticate   EventType = "authenticate"
	EventJoinRoom       EventType = "join-room"
	EventSendMessage    EventType = "send-message"
	EventTypingStart    EventType = "typing-start"
	EventTypingStop     EventType = "typing-stop"
	EventMarkRead       EventType = "mark-read"
	EventGetOnlineUsers EventType = "get-online-users"
)

// Server → client events.
const (
	EventAuthenticated       EventType = "authenticated"
	EventAuthError           EventType = "auth-error"
	EventRoomJoined          EventType = "room-joined"
	EventUserJoinedRoom      EventType = "user-joined-room"
	EventUserLeftRoom        EventType = "user-left-room"
	EventReceiveMessage      EventType = "receive-message"
	EventUserTyping          EventType = "user-typing"
	EventMessageRead         EventType = "message-read"
	EventOnlineUsers         EventType = "online-users"
	EventAnalysisResult      EventType = "analysis-result"
	EventDuplicateConnection EventType = "duplicate-connection"
	EventError               EventType = "error"
)

// Envelope is the JSON frame exchanged over the WebSocket in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// encodeEvent wraps a payload in an Envelope and marshals the whole frame.
func encodeEvent(t EventType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// AuthenticatePayload carries the bearer credential of the authenticate event.
type AuthenticatePayload struct {
	Token string `json:"token"`
}

// JoinRoomPayload carries the target room of a join-room event.
type JoinRoomPayload struct {
	RoomID int64 `json:"roomId"`
}

// SendMessagePayload carries a new chat message. RoomID must match the
// sender's current room.
type SendMessagePayload struct {
	RoomID int64  `json:"roomId"`
	Body   string `json:"body"`
}

// RoomScopedPayload is shared by typing-start, typing-stop, and
// get-online-users, which only name the room they refer to.
type RoomScopedPayload struct {
	RoomID int64 `json:"roomId"`
}

// MarkReadPayload names the message a reader reached.
type MarkReadPayload struct {
	RoomID    int64 `json:"roomId"`
	MessageID int64 `json:"messageId"`
}

// AuthenticatedPayload confirms a successful authenticate event.
type AuthenticatedPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// RoomJoinedPayload confirms a join-room, returning the room and its recent
// history oldest-first.
type RoomJoinedPayload struct {
	RoomID   int64           `json:"roomId"`
	Room     store.Room      `json:"room"`
	Messages []store.Message `json:"messages"`
}

// UserEventPayload identifies the user a room notification is about
// (user-joined-room, user-left-room).
type UserEventPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// TypingEventPayload is the ephemeral typing indicator sent to other occupants.
type TypingEventPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// MessageReadPayload notifies other occupants that a user read up to a message.
type MessageReadPayload struct {
	MessageID int64     `json:"messageId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// OccupantInfo is one entry of an online-users reply.
type OccupantInfo struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// OnlineUsersPayload answers a get-online-users request.
type OnlineUsersPayload struct {
	RoomID int64          `json:"roomId"`
	Users  []OccupantInfo `json:"users"`
	Count  int            `json:"count"`
}

// ErrorPayload reports a business error over the socket (error and
// auth-error events, and the duplicate-connection notice).
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
