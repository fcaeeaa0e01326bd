/*
Package chat contains the core logic for the live chat session layer.

This file defines the Presence table: the in-memory, bidirectional index of
live sessions. It maps connection → session and user → connection, and
derives room occupancy from the sessions. It is rebuilt incrementally on
every join/leave/disconnect and never persisted.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"flirto/internal/app/store"
	"flirto/internal/pkg/logx"
)

// session is the runtime record binding one live connection to one
// authenticated user and, optionally, one room. Fields are only read or
// written while holding the Presence lock.
type session struct {
	connID string
	user   store.User
	roomID int64 // 0 means not in any room
	client *Client
}

// Snapshot is a point-in-time copy of a session, safe to use outside the
// Presence lock.
type Snapshot struct {
	ConnID string
	User   store.User
	RoomID int64
}

// Evicted describes a session that was displaced by a newer login of the
// same user. The caller notifies and tears down the carried client.
type Evicted struct {
	Snapshot
	Client *Client
}

// Presence is the shared index of live sessions. Its invariants are global
// (at most one session per user, both maps always in step), so every
// operation runs under one lock.
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]*session
	byUser map[int64]string
	logger zerolog.Logger
}

// NewPresence returns an empty Presence table.
func NewPresence() *Presence {
	return &Presence{
		byConn: make(map[string]*session),
		byUser: make(map[int64]string),
		logger: logx.Logger().With().Str("component", "Presence").Logger(),
	}
}

// Register records a new session for the user on the given client's
// connection. If the user already has a live session on another connection,
// that session is fully removed from both indexes before Register returns,
// and described in the returned Evicted so the caller can notify it.
// Re-authentication on the same connection just rebinds the session.
func (p *Presence) Register(c *Client, u store.User) *Evicted {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted *Evicted

	if oldConnID, ok := p.byUser[u.ID]; ok && oldConnID != c.ID() {
		if old, ok := p.byConn[oldConnID]; ok {
			evicted = &Evicted{
				Snapshot: Snapshot{ConnID: old.connID, User: old.user, RoomID: old.roomID},
				Client:   old.client,
			}
			delete(p.byConn, oldConnID)
		}
		delete(p.byUser, u.ID)

		p.logger.Warn().
			Int64("user_id", u.ID).
			Str("old_conn_id", oldConnID).
			Str("new_conn_id", c.ID()).
			Msg("Duplicate login, evicting previous session.")
	}

	// A connection that re-authenticates as a different user releases its
	// previous identity first.
	if old, ok := p.byConn[c.ID()]; ok && old.user.ID != u.ID {
		delete(p.byUser, old.user.ID)
	}

	p.byConn[c.ID()] = &session{connID: c.ID(), user: u, client: c}
	p.byUser[u.ID] = c.ID()

	return evicted
}

// SetRoom moves the connection's occupancy to roomID and returns the room it
// previously occupied (0 for none). ok is false when the connection has no
// live session.
func (p *Presence) SetRoom(connID string, roomID int64) (prevRoomID int64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, found := p.byConn[connID]
	if !found {
		return 0, false
	}

	prevRoomID = s.roomID
	s.roomID = roomID
	return prevRoomID, true
}

// View returns a copy of the session bound to connID.
func (p *Presence) View(connID string) (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.byConn[connID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{ConnID: s.connID, User: s.user, RoomID: s.roomID}, true
}

// Remove tears down the session bound to connID, deleting it from every
// index, and returns a copy of what was removed.
func (p *Presence) Remove(connID string) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.byConn[connID]
	if !ok {
		return Snapshot{}, false
	}

	delete(p.byConn, connID)
	if current, ok := p.byUser[s.user.ID]; ok && current == connID {
		delete(p.byUser, s.user.ID)
	}

	return Snapshot{ConnID: s.connID, User: s.user, RoomID: s.roomID}, true
}

// OccupantUsers returns a point-in-time snapshot of the users occupying a
// room. Never cached beyond the instant of use.
func (p *Presence) OccupantUsers(roomID int64) []store.User {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]store.User, 0, 4)
	for _, s := range p.byConn {
		if s.roomID == roomID {
			users = append(users, s.user)
		}
	}
	return users
}

// ConnOfUser reports which connection currently holds the user's session.
func (p *Presence) ConnOfUser(userID int64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	connID, ok := p.byUser[userID]
	return connID, ok
}

// clientsInRoom snapshots the clients occupying a room, optionally skipping
// one connection. Used by the Broadcaster; delivery happens outside the lock.
func (p *Presence) clientsInRoom(roomID int64, excludeConnID string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clients := make([]*Client, 0, 4)
	for _, s := range p.byConn {
		if s.roomID != roomID || s.connID == excludeConnID {
			continue
		}
		clients = append(clients, s.client)
	}
	return clients
}
