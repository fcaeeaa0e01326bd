/*
Package store is the persistence gateway for users, rooms, memberships, and
messages. It exposes a narrow CRUD-style interface backed by PostgreSQL, and
an optional Redis cache for the recent-message window of each room.
*/
package store

import "time"

// User is a registered account. Immutable after creation except for
// credential updates; never deleted by the chat core.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Room is a persisted chat room. A direct room is constrained to exactly
// two members for its whole lifetime.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsDirect  bool      `json:"isDirect"`
	CreatedAt time.Time `json:"createdAt"`
}

// Membership records that a user may send and read in a room. Memberships
// are created explicitly or by the join-room self-heal, never implicitly
// deleted.
type Membership struct {
	UserID   int64     `json:"userId"`
	RoomID   int64     `json:"roomId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is an immutable chat message. Username is the resolved author
// handle, joined in on read so broadcasts need no second lookup.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}
