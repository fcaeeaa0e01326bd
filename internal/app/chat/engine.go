/*
Package chat contains the core logic for the live chat session layer.

This file defines the protocol engine: the per-connection state machine that
interprets inbound events, enforces the authenticate → join-room → chat
ordering, and drives presence, persistence, broadcast, and analysis.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"flirto/internal/app/store"
	"flirto/internal/pkg/auth/jwt"
	"flirto/internal/pkg/errs"
	"flirto/internal/pkg/logx"
)

// opTimeout bounds every database round trip made on behalf of one event.
const opTimeout = 5 * time.Second

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*jwt.Payload, error)
}

// AnalysisDispatcher schedules background analysis of a room after a new
// message. Implementations must return immediately.
type AnalysisDispatcher interface {
	Dispatch(roomID, messageID int64)
}

// Options carries the tunable limits of the protocol engine.
type Options struct {
	// HistoryLimit is how many recent messages a join-room returns.
	HistoryLimit int

	// MaxMessageRunes is the maximum message body length, counted in runes.
	MaxMessageRunes int

	// SelfHealMembership makes join-room create a missing membership row
	// instead of rejecting the join.
	SelfHealMembership bool
}

// EngineDeps lists the collaborators of the protocol engine.
type EngineDeps struct {
	Store     store.Store
	Cache     *store.MessageCache
	Verifier  TokenVerifier
	Presence  *Presence
	Broadcast *Broadcaster
	Analysis  AnalysisDispatcher
}

// Engine interprets the chat protocol for every live connection. It holds no
// per-connection state of its own; that lives in the Presence table.
type Engine struct {
	store    store.Store
	cache    *store.MessageCache
	verifier TokenVerifier
	presence *Presence
	bcast    *Broadcaster
	analysis AnalysisDispatcher
	opts     Options
	logger   zerolog.Logger
}

// NewEngine wires a protocol engine. Cache and Analysis may be nil; the
// engine then skips those steps.
func NewEngine(deps EngineDeps, opts Options) *Engine {
	return &Engine{
		store:    deps.Store,
		cache:    deps.Cache,
		verifier: deps.Verifier,
		presence: deps.Presence,
		bcast:    deps.Broadcast,
		analysis: deps.Analysis,
		opts:     opts,
		logger:   logx.Logger().With().Str("component", "Engine").Logger(),
	}
}

// HandleInbound dispatches one inbound frame. Malformed frames and unknown
// event types are logged and dropped; they never tear the connection down.
func (e *Engine) HandleInbound(c *Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		e.logger.Warn().Err(err).Str("conn_id", c.ID()).Msg("Ignoring malformed frame.")
		return
	}

	switch env.Type {
	case EventAuthenticate:
		e.handleAuthenticate(c, env.Payload)
	case EventJoinRoom:
		e.handleJoinRoom(c, env.Payload)
	case EventSendMessage:
		e.handleSendMessage(c, env.Payload)
	case EventTypingStart:
		e.handleTyping(c, env.Payload, true)
	case EventTypingStop:
		e.handleTyping(c, env.Payload, false)
	case EventMarkRead:
		e.handleMarkRead(c, env.Payload)
	case EventGetOnlineUsers:
		e.handleGetOnlineUsers(c, env.Payload)
	default:
		e.logger.Warn().
			Str("conn_id", c.ID()).
			Str("event_type", string(env.Type)).
			Msg("Ignoring unknown event type.")
	}
}

// handleAuthenticate verifies the token, loads the account, and registers the
// session, evicting any previous session of the same user.
func (e *Engine) handleAuthenticate(c *Client, raw json.RawMessage) {
	var p AuthenticatePayload
	if raw != nil {
		if err := json.Unmarshal(raw, &p); err != nil {
			c.sendEvent(EventAuthError, errorPayloadFor(errs.NewError(errs.ErrAuthTokenInvalid)))
			return
		}
	}

	if p.Token == "" {
		c.sendEvent(EventAuthError, errorPayloadFor(errs.NewError(errs.ErrAuthTokenMissing)))
		return
	}

	claims, err := e.verifier.Verify(p.Token)
	if err != nil {
		c.sendEvent(EventAuthError, errorPayloadFor(errs.NewError(errs.ErrAuthTokenInvalid)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	user, err := e.store.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		c.sendEvent(EventAuthError, errorPayloadFor(errs.NewError(errs.ErrAuthUserNotFound)))
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to load user during authenticate.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	evicted := e.presence.Register(c, user)
	if evicted != nil {
		e.evictSession(evicted)
	}

	c.sendEvent(EventAuthenticated, AuthenticatedPayload{UserID: user.ID, Username: user.Username})

	e.logger.Info().
		Str("conn_id", c.ID()).
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("Connection authenticated.")
}

// evictSession notifies a displaced session, closes it, and tells its old
// room it left. The session is already gone from presence.
func (e *Engine) evictSession(ev *Evicted) {
	ev.Client.sendEvent(EventDuplicateConnection, errorPayloadFor(errs.NewError(errs.ErrSessionReplaced)))
	ev.Client.Kick("session replaced by a newer login")

	if ev.RoomID != 0 {
		e.bcast.ToRoom(ev.RoomID, EventUserLeftRoom, UserEventPayload{
			UserID:   ev.User.ID,
			Username: ev.User.Username,
		}, "")
	}
}

// handleJoinRoom validates membership, moves the connection's occupancy, and
// replies with the room plus its recent history oldest-first.
func (e *Engine) handleJoinRoom(c *Client, raw json.RawMessage) {
	sess, ok := e.presence.View(c.ID())
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID <= 0 {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	room, err := e.store.GetRoom(ctx, p.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		c.SendError(errs.NewError(errs.ErrRoomNotFound))
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Int64("room_id", p.RoomID).Msg("Failed to load room.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	isMember, err := e.store.HasMembership(ctx, sess.User.ID, room.ID)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to check membership.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	if !isMember {
		if !e.opts.SelfHealMembership {
			c.SendError(errs.NewError(errs.ErrNotRoomMember))
			return
		}
		if room.IsDirect {
			count, err := e.store.CountMembers(ctx, room.ID)
			if err != nil {
				e.logger.Error().Err(err).Msg("Failed to count room members.")
				c.SendError(errs.NewError(errs.ErrPersistence))
				return
			}
			if count >= 2 {
				c.SendError(errs.NewError(errs.ErrRoomIsFull))
				return
			}
		}
		created, err := e.store.EnsureMembership(ctx, sess.User.ID, room.ID)
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to create membership.")
			c.SendError(errs.NewError(errs.ErrPersistence))
			return
		}
		if created {
			e.logger.Info().
				Int64("user_id", sess.User.ID).
				Int64("room_id", room.ID).
				Msg("Recreated missing membership on join.")
		}
	}

	prevRoomID, ok := e.presence.SetRoom(c.ID(), room.ID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	// Leaving a different room notifies its remaining occupants. A re-join of
	// the same room is just a snapshot refresh and stays silent.
	moved := prevRoomID != room.ID
	if moved && prevRoomID != 0 {
		e.bcast.ToRoom(prevRoomID, EventUserLeftRoom, UserEventPayload{
			UserID:   sess.User.ID,
			Username: sess.User.Username,
		}, "")
	}

	history := e.roomHistory(ctx, room.ID)

	c.sendEvent(EventRoomJoined, RoomJoinedPayload{
		RoomID:   room.ID,
		Room:     room,
		Messages: history,
	})

	if moved {
		e.bcast.ToRoom(room.ID, EventUserJoinedRoom, UserEventPayload{
			UserID:   sess.User.ID,
			Username: sess.User.Username,
		}, c.ID())
	}
}

// roomHistory returns the room's recent messages oldest-first, serving from
// the cache when warm and falling back to the store otherwise.
func (e *Engine) roomHistory(ctx context.Context, roomID int64) []store.Message {
	if e.cache != nil {
		if msgs := e.cache.Recent(roomID, e.opts.HistoryLimit); msgs != nil {
			return msgs
		}
	}

	msgs, err := e.store.RecentMessages(ctx, roomID, e.opts.HistoryLimit)
	if err != nil {
		e.logger.Error().Err(err).Int64("room_id", roomID).Msg("Failed to load message history.")
		return []store.Message{}
	}
	if msgs == nil {
		msgs = []store.Message{}
	}

	if e.cache != nil && len(msgs) > 0 {
		e.cache.Warm(roomID, msgs)
	}
	return msgs
}

// handleSendMessage validates, persists, and fans out a chat message, then
// hands the room to the analysis dispatcher.
func (e *Engine) handleSendMessage(c *Client, raw json.RawMessage) {
	sess, ok := roomScopedSession(e, c, raw, func(p *SendMessagePayload) int64 { return p.RoomID })
	if !ok {
		return
	}

	var p SendMessagePayload
	_ = json.Unmarshal(raw, &p)

	body := strings.TrimSpace(p.Body)
	if body == "" {
		c.SendError(errs.NewError(errs.ErrMessageEmpty))
		return
	}
	if utf8.RuneCountInString(body) > e.opts.MaxMessageRunes {
		c.SendError(errs.NewError(errs.ErrMessageTooLong, e.opts.MaxMessageRunes))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := e.store.CreateMessage(ctx, sess.RoomID, sess.User.ID, body)
	if err != nil {
		e.logger.Error().Err(err).Int64("room_id", sess.RoomID).Msg("Failed to persist message.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	if e.cache != nil {
		e.cache.Append(msg)
	}

	e.bcast.ToRoom(sess.RoomID, EventReceiveMessage, msg, "")

	if e.analysis != nil {
		e.analysis.Dispatch(sess.RoomID, msg.ID)
	}
}

// handleTyping relays a typing indicator to the other occupants. Indicators
// for a room the sender does not occupy are dropped without an error reply.
func (e *Engine) handleTyping(c *Client, raw json.RawMessage, isTyping bool) {
	sess, ok := e.presence.View(c.ID())
	if !ok || sess.RoomID == 0 {
		return
	}

	var p RoomScopedPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID != sess.RoomID {
		return
	}

	e.bcast.ToRoom(sess.RoomID, EventUserTyping, TypingEventPayload{
		UserID:   sess.User.ID,
		Username: sess.User.Username,
		IsTyping: isTyping,
	}, c.ID())
}

// handleMarkRead relays a read receipt to the other occupants.
func (e *Engine) handleMarkRead(c *Client, raw json.RawMessage) {
	sess, ok := roomScopedSession(e, c, raw, func(p *MarkReadPayload) int64 { return p.RoomID })
	if !ok {
		return
	}

	var p MarkReadPayload
	_ = json.Unmarshal(raw, &p)

	e.bcast.ToRoom(sess.RoomID, EventMessageRead, MessageReadPayload{
		MessageID: p.MessageID,
		UserID:    sess.User.ID,
		Username:  sess.User.Username,
		Timestamp: time.Now().UTC(),
	}, c.ID())
}

// handleGetOnlineUsers replies with a point-in-time occupant list of the
// sender's current room.
func (e *Engine) handleGetOnlineUsers(c *Client, raw json.RawMessage) {
	sess, ok := roomScopedSession(e, c, raw, func(p *RoomScopedPayload) int64 { return p.RoomID })
	if !ok {
		return
	}

	users := e.presence.OccupantUsers(sess.RoomID)
	occupants := lo.Map(users, func(u store.User, _ int) OccupantInfo {
		return OccupantInfo{UserID: u.ID, Username: u.Username}
	})

	c.sendEvent(EventOnlineUsers, OnlineUsersPayload{
		RoomID: sess.RoomID,
		Users:  occupants,
		Count:  len(occupants),
	})
}

// Disconnect removes the connection's session and, if it occupied a room,
// notifies the remaining occupants. Called once by the read pump on exit.
func (e *Engine) Disconnect(c *Client) {
	sess, ok := e.presence.Remove(c.ID())
	if !ok {
		return
	}

	if sess.RoomID != 0 {
		e.bcast.ToRoom(sess.RoomID, EventUserLeftRoom, UserEventPayload{
			UserID:   sess.User.ID,
			Username: sess.User.Username,
		}, "")
	}

	e.logger.Info().
		Str("conn_id", c.ID()).
		Int64("user_id", sess.User.ID).
		Msg("Session closed.")
}

// roomScopedSession unmarshals a room-scoped payload and checks the common
// preconditions of room-scoped events: an authenticated session, current room
// occupancy, and a payload whose room matches the occupied room.
func roomScopedSession[P any](e *Engine, c *Client, raw json.RawMessage, roomOf func(*P) int64) (Snapshot, bool) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return Snapshot{}, false
	}

	sess, ok := e.presence.View(c.ID())
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return Snapshot{}, false
	}
	if sess.RoomID == 0 || roomOf(&p) != sess.RoomID {
		c.SendError(errs.NewError(errs.ErrNotInRoom))
		return Snapshot{}, false
	}
	return sess, true
}

// errorPayloadFor converts a CustomError into the wire error payload.
func errorPayloadFor(e *errs.CustomError) ErrorPayload {
	return ErrorPayload{Code: e.Code, Message: e.Message}
}
