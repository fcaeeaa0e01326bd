package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence gateway consumed by the chat core and the REST
// handlers. Implementations must be safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, username, displayName, passwordHash string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	CreateRoom(ctx context.Context, name string, isDirect bool) (Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]Room, error)
	FindDirectRoom(ctx context.Context, userA, userB int64) (Room, error)

	// EnsureMembership creates the membership row if absent and reports
	// whether it created one. Existing rows are left untouched.
	EnsureMembership(ctx context.Context, userID, roomID int64) (bool, error)
	HasMembership(ctx context.Context, userID, roomID int64) (bool, error)
	CountMembers(ctx context.Context, roomID int64) (int, error)

	CreateMessage(ctx context.Context, roomID, userID int64, body string) (Message, error)

	// RecentMessages returns up to limit of the newest messages in the room,
	// ordered oldest-first.
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]Message, error)
}

// Queries implements Store over a pgx connection pool.
type Queries struct {
	pool *pgxpool.Pool
}

// New returns a Queries bound to the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// CreateUser inserts a new account. Unique-violation errors pass through so
// callers can map them to a taken-username response.
func (q *Queries) CreateUser(ctx context.Context, username, displayName, passwordHash string) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx,
		`INSERT INTO users (username, display_name, password_hash)
		 VALUES ($1, NULLIF($2, ''), $3)
		 RETURNING id, username, COALESCE(display_name, ''), password_hash, created_at`,
		username, displayName, passwordHash,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx,
		`SELECT id, username, COALESCE(display_name, ''), password_hash, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx,
		`SELECT id, username, COALESCE(display_name, ''), password_hash, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (q *Queries) CreateRoom(ctx context.Context, name string, isDirect bool) (Room, error) {
	var r Room
	err := q.pool.QueryRow(ctx,
		`INSERT INTO rooms (name, is_direct) VALUES ($1, $2)
		 RETURNING id, name, is_direct, created_at`,
		name, isDirect,
	).Scan(&r.ID, &r.Name, &r.IsDirect, &r.CreatedAt)
	if err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	return r, nil
}

func (q *Queries) GetRoom(ctx context.Context, id int64) (Room, error) {
	var r Room
	err := q.pool.QueryRow(ctx,
		`SELECT id, name, is_direct, created_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Name, &r.IsDirect, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

func (q *Queries) ListRoomsForUser(ctx context.Context, userID int64) ([]Room, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT r.id, r.name, r.is_direct, r.created_at
		 FROM rooms r
		 JOIN user_rooms ur ON ur.room_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY ur.joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms for user: %w", err)
	}
	defer rows.Close()

	var result []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.IsDirect, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list rooms for user: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// FindDirectRoom returns the direct room whose two members are exactly userA
// and userB, or ErrNotFound.
func (q *Queries) FindDirectRoom(ctx context.Context, userA, userB int64) (Room, error) {
	var r Room
	err := q.pool.QueryRow(ctx,
		`SELECT r.id, r.name, r.is_direct, r.created_at
		 FROM rooms r
		 WHERE r.is_direct
		   AND EXISTS (SELECT 1 FROM user_rooms WHERE room_id = r.id AND user_id = $1)
		   AND EXISTS (SELECT 1 FROM user_rooms WHERE room_id = r.id AND user_id = $2)
		 LIMIT 1`,
		userA, userB,
	).Scan(&r.ID, &r.Name, &r.IsDirect, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("find direct room: %w", err)
	}
	return r, nil
}

func (q *Queries) EnsureMembership(ctx context.Context, userID, roomID int64) (bool, error) {
	tag, err := q.pool.Exec(ctx,
		`INSERT INTO user_rooms (user_id, room_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, room_id) DO NOTHING`,
		userID, roomID,
	)
	if err != nil {
		return false, fmt.Errorf("ensure membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) HasMembership(ctx context.Context, userID, roomID int64) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_rooms WHERE user_id = $1 AND room_id = $2)`,
		userID, roomID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has membership: %w", err)
	}
	return exists, nil
}

func (q *Queries) CountMembers(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_rooms WHERE room_id = $1`,
		roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// CreateMessage persists a message with a server-assigned timestamp and
// returns it with the author handle resolved.
func (q *Queries) CreateMessage(ctx context.Context, roomID, userID int64, body string) (Message, error) {
	var m Message
	err := q.pool.QueryRow(ctx,
		`INSERT INTO messages (room_id, user_id, body) VALUES ($1, $2, $3)
		 RETURNING id, room_id, user_id,
		           (SELECT username FROM users WHERE id = $2),
		           body, created_at`,
		roomID, userID, body,
	).Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

func (q *Queries) RecentMessages(ctx context.Context, roomID int64, limit int) ([]Message, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, room_id, user_id, username, body, created_at FROM (
		     SELECT m.id, m.room_id, m.user_id, u.username, m.body, m.created_at
		     FROM messages m
		     JOIN users u ON u.id = m.user_id
		     WHERE m.room_id = $1
		     ORDER BY m.created_at DESC, m.id DESC
		     LIMIT $2
		 ) newest ORDER BY created_at ASC, id ASC`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("recent messages: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
