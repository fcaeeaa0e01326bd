package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheOpTimeout = 2 * time.Second

// cacheKey returns the Redis key for a room's recent-message window.
func cacheKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10) + ":recent"
}

// MessageCache keeps the recent-message window of each room in a Redis list,
// so a join-room does not hit PostgreSQL when the window is warm. It is pure
// acceleration: every method degrades to a miss on Redis failure and the
// caller falls back to the store.
type MessageCache struct {
	client  redis.Cmdable
	maxSize int64
	logger  zerolog.Logger
}

// NewMessageCache creates a cache retaining up to maxSize messages per room.
func NewMessageCache(client redis.Cmdable, maxSize int, logger zerolog.Logger) *MessageCache {
	return &MessageCache{
		client:  client,
		maxSize: int64(maxSize),
		logger:  logger.With().Str("component", "MessageCache").Logger(),
	}
}

// Append pushes a freshly persisted message onto the room's window, trimming
// to maxSize. Only called after the database write succeeded.
func (c *MessageCache) Append(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal message for cache")
		return
	}

	key := cacheKey(msg.RoomID)
	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -c.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Int64("room_id", msg.RoomID).Msg("Failed to append message to cache")
	}
}

// Recent returns the last n cached messages for a room, oldest-first.
// A nil result means the window is cold and the store must be queried.
func (c *MessageCache) Recent(roomID int64, n int) []Message {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	vals, err := c.client.LRange(ctx, cacheKey(roomID), int64(-n), -1).Result()
	if err != nil {
		c.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to read cached messages")
		return nil
	}

	if len(vals) == 0 {
		return nil
	}

	msgs := make([]Message, 0, len(vals))
	for _, v := range vals {
		var m Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// Warm replaces the room's window with messages freshly read from the store.
func (c *MessageCache) Warm(roomID int64, msgs []Message) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	key := cacheKey(roomID)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -c.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to warm message cache")
	}
}
