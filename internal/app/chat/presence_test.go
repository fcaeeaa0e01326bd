package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirto/internal/app/store"
)

func testUser(id int64) store.User {
	return store.User{ID: id, Username: fmt.Sprintf("user_%d", id)}
}

func testClient() *Client {
	return NewClient(nil, &stubConn{})
}

func TestPresenceRegisterAndView(t *testing.T) {
	p := NewPresence()
	c := testClient()

	evicted := p.Register(c, testUser(1))
	require.Nil(t, evicted)

	sess, ok := p.View(c.ID())
	require.True(t, ok)
	assert.Equal(t, int64(1), sess.User.ID)
	assert.Equal(t, int64(0), sess.RoomID)

	connID, ok := p.ConnOfUser(1)
	require.True(t, ok)
	assert.Equal(t, c.ID(), connID)
}

func TestPresenceRegisterEvictsPreviousSession(t *testing.T) {
	p := NewPresence()
	c1 := testClient()
	c2 := testClient()

	require.Nil(t, p.Register(c1, testUser(1)))
	_, ok := p.SetRoom(c1.ID(), 7)
	require.True(t, ok)

	evicted := p.Register(c2, testUser(1))
	require.NotNil(t, evicted)
	assert.Equal(t, c1.ID(), evicted.ConnID)
	assert.Equal(t, int64(7), evicted.RoomID)
	assert.Same(t, c1, evicted.Client)

	// The old session must be gone before Register returns.
	_, ok = p.View(c1.ID())
	assert.False(t, ok)

	connID, ok := p.ConnOfUser(1)
	require.True(t, ok)
	assert.Equal(t, c2.ID(), connID)
}

func TestPresenceReauthenticateSameConnection(t *testing.T) {
	p := NewPresence()
	c := testClient()

	require.Nil(t, p.Register(c, testUser(1)))
	require.Nil(t, p.Register(c, testUser(2)))

	// The first identity is released, the second owns the connection.
	_, ok := p.ConnOfUser(1)
	assert.False(t, ok)

	connID, ok := p.ConnOfUser(2)
	require.True(t, ok)
	assert.Equal(t, c.ID(), connID)
}

func TestPresenceSetRoomReturnsPrevious(t *testing.T) {
	p := NewPresence()
	c := testClient()
	p.Register(c, testUser(1))

	prev, ok := p.SetRoom(c.ID(), 10)
	require.True(t, ok)
	assert.Equal(t, int64(0), prev)

	prev, ok = p.SetRoom(c.ID(), 20)
	require.True(t, ok)
	assert.Equal(t, int64(10), prev)

	_, ok = p.SetRoom("no-such-conn", 30)
	assert.False(t, ok)
}

func TestPresenceRemove(t *testing.T) {
	p := NewPresence()
	c := testClient()
	p.Register(c, testUser(1))
	p.SetRoom(c.ID(), 5)

	sess, ok := p.Remove(c.ID())
	require.True(t, ok)
	assert.Equal(t, int64(5), sess.RoomID)

	_, ok = p.View(c.ID())
	assert.False(t, ok)
	_, ok = p.ConnOfUser(1)
	assert.False(t, ok)

	_, ok = p.Remove(c.ID())
	assert.False(t, ok)
}

func TestPresenceRemoveStaleConnKeepsNewSession(t *testing.T) {
	p := NewPresence()
	c1 := testClient()
	c2 := testClient()

	p.Register(c1, testUser(1))
	p.Register(c2, testUser(1))

	// A late disconnect of the evicted connection must not clear the live one.
	_, ok := p.Remove(c1.ID())
	assert.False(t, ok)

	connID, ok := p.ConnOfUser(1)
	require.True(t, ok)
	assert.Equal(t, c2.ID(), connID)
}

func TestPresenceOccupantUsers(t *testing.T) {
	p := NewPresence()

	for i := int64(1); i <= 3; i++ {
		c := testClient()
		p.Register(c, testUser(i))
		if i < 3 {
			p.SetRoom(c.ID(), 42)
		}
	}

	occupants := p.OccupantUsers(42)
	assert.Len(t, occupants, 2)

	ids := []int64{occupants[0].ID, occupants[1].ID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	assert.Empty(t, p.OccupantUsers(99))
}

func TestPresenceConcurrentRegisterSingleSession(t *testing.T) {
	p := NewPresence()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Register(testClient(), testUser(1))
		}()
	}
	wg.Wait()

	// Whatever the interleaving, exactly one session survives.
	connID, ok := p.ConnOfUser(1)
	require.True(t, ok)

	sess, ok := p.View(connID)
	require.True(t, ok)
	assert.Equal(t, int64(1), sess.User.ID)

	count := 0
	for _, u := range p.OccupantUsers(0) {
		if u.ID == 1 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
