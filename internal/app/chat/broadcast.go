/*
Package chat contains the core logic for the live chat session layer.

This file defines the Broadcaster, which fans an event out to every
connection currently occupying a room.
*/
package chat

import (
	"github.com/rs/zerolog"

	"flirto/internal/pkg/logx"
)

// Broadcaster delivers events to all current occupants of a room, per the
// Presence snapshot taken at call time.
type Broadcaster struct {
	presence *Presence
	logger   zerolog.Logger
}

// NewBroadcaster returns a Broadcaster reading occupancy from presence.
func NewBroadcaster(presence *Presence) *Broadcaster {
	return &Broadcaster{
		presence: presence,
		logger:   logx.Logger().With().Str("component", "Broadcaster").Logger(),
	}
}

// ToRoom marshals the event once and enqueues it to every occupant of
// roomID, optionally skipping excludeConnID (used for others-only
// notifications). A connection that disappeared or whose queue is full
// between snapshot and delivery is skipped silently.
func (b *Broadcaster) ToRoom(roomID int64, t EventType, payload any, excludeConnID string) {
	data, err := encodeEvent(t, payload)
	if err != nil {
		b.logger.Error().Err(err).
			Str("event_type", string(t)).
			Int64("room_id", roomID).
			Msg("Failed to marshal event for broadcast.")
		return
	}

	clients := b.presence.clientsInRoom(roomID, excludeConnID)
	for _, c := range clients {
		if !c.enqueue(data) {
			b.logger.Warn().
				Str("conn_id", c.ID()).
				Int64("room_id", roomID).
				Str("event_type", string(t)).
				Msg("Dropped broadcast for slow or closed connection.")
		}
	}
}
