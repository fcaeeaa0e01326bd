package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxSize int) *MessageCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewMessageCache(client, maxSize, zerolog.Nop())
}

func cacheMsg(id, roomID int64, body string) Message {
	return Message{
		ID:        id,
		RoomID:    roomID,
		UserID:    1,
		Username:  "alice",
		Body:      body,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCacheColdRoomReturnsNil(t *testing.T) {
	c := newTestCache(t, 50)

	assert.Nil(t, c.Recent(1, 50))
}

func TestCacheAppendAndRecent(t *testing.T) {
	c := newTestCache(t, 50)

	c.Append(cacheMsg(1, 1, "first"))
	c.Append(cacheMsg(2, 1, "second"))
	c.Append(cacheMsg(3, 2, "other room"))

	msgs := c.Recent(1, 50)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)

	msgs = c.Recent(2, 50)
	require.Len(t, msgs, 1)
	assert.Equal(t, "other room", msgs[0].Body)
}

func TestCacheTrimsToMaxSize(t *testing.T) {
	c := newTestCache(t, 3)

	for i := int64(1); i <= 5; i++ {
		c.Append(cacheMsg(i, 1, fmt.Sprintf("msg-%d", i)))
	}

	msgs := c.Recent(1, 10)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-3", msgs[0].Body)
	assert.Equal(t, "msg-5", msgs[2].Body)
}

func TestCacheRecentHonorsWindow(t *testing.T) {
	c := newTestCache(t, 50)

	for i := int64(1); i <= 10; i++ {
		c.Append(cacheMsg(i, 1, fmt.Sprintf("msg-%d", i)))
	}

	msgs := c.Recent(1, 4)
	require.Len(t, msgs, 4)
	assert.Equal(t, "msg-7", msgs[0].Body)
	assert.Equal(t, "msg-10", msgs[3].Body)
}

func TestCacheWarmReplacesWindow(t *testing.T) {
	c := newTestCache(t, 50)

	c.Append(cacheMsg(99, 1, "stale"))

	c.Warm(1, []Message{
		cacheMsg(1, 1, "fresh-1"),
		cacheMsg(2, 1, "fresh-2"),
	})

	msgs := c.Recent(1, 50)
	require.Len(t, msgs, 2)
	assert.Equal(t, "fresh-1", msgs[0].Body)
	assert.Equal(t, "fresh-2", msgs[1].Body)
}
