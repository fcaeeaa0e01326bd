package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"flirto/internal/app/store"
	"flirto/internal/configs"
	"flirto/internal/pkg/errs"
	"flirto/internal/pkg/resp"
)

// fakeStore covers the account and room methods the REST handlers touch.
type fakeStore struct {
	usersByName map[string]store.User
	rooms       map[int64]store.Room
	members     map[[2]int64]bool
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		usersByName: make(map[string]store.User),
		rooms:       make(map[int64]store.Room),
		members:     make(map[[2]int64]bool),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, username, displayName, passwordHash string) (store.User, error) {
	if _, exists := f.usersByName[username]; exists {
		return store.User{}, &pgconn.PgError{Code: "23505"}
	}
	f.nextID++
	u := store.User{ID: f.nextID, Username: username, DisplayName: displayName, PasswordHash: passwordHash}
	f.usersByName[username] = u
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (store.User, error) {
	for _, u := range f.usersByName {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	u, ok := f.usersByName[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateRoom(_ context.Context, name string, isDirect bool) (store.Room, error) {
	f.nextID++
	r := store.Room{ID: f.nextID, Name: name, IsDirect: isDirect}
	f.rooms[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetRoom(_ context.Context, id int64) (store.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return store.Room{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRoomsForUser(_ context.Context, userID int64) ([]store.Room, error) {
	var result []store.Room
	for key := range f.members {
		if key[0] == userID {
			result = append(result, f.rooms[key[1]])
		}
	}
	return result, nil
}

func (f *fakeStore) FindDirectRoom(_ context.Context, userA, userB int64) (store.Room, error) {
	for _, r := range f.rooms {
		if r.IsDirect && f.members[[2]int64{userA, r.ID}] && f.members[[2]int64{userB, r.ID}] {
			return r, nil
		}
	}
	return store.Room{}, store.ErrNotFound
}

func (f *fakeStore) EnsureMembership(_ context.Context, userID, roomID int64) (bool, error) {
	key := [2]int64{userID, roomID}
	if f.members[key] {
		return false, nil
	}
	f.members[key] = true
	return true, nil
}

func (f *fakeStore) HasMembership(_ context.Context, userID, roomID int64) (bool, error) {
	return f.members[[2]int64{userID, roomID}], nil
}

func (f *fakeStore) CountMembers(_ context.Context, roomID int64) (int, error) {
	count := 0
	for key := range f.members {
		if key[1] == roomID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, roomID, userID int64, body string) (store.Message, error) {
	return store.Message{}, fmt.Errorf("not implemented")
}

func (f *fakeStore) RecentMessages(_ context.Context, roomID int64, limit int) ([]store.Message, error) {
	return nil, nil
}

func testDeps() (*AppDeps, *fakeStore) {
	fs := newFakeStore()
	return &AppDeps{
		Config: &configs.AppConfig{
			Environment: "development",
			JWTSecret:   "test-secret",
		},
		Store: fs,
	}, fs
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) resp.JSONResponse {
	t.Helper()
	var body resp.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterCreatesAccountAndToken(t *testing.T) {
	deps, fs := testDeps()

	rec := postJSON(t, HandleRegister(deps), "/api/auth/register", RegisterInput{
		Username: "alice_01",
		Password: "secret123",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, 0, body.Code)

	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])

	stored, err := fs.GetUserByUsername(context.Background(), "alice_01")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegisterValidation(t *testing.T) {
	deps, _ := testDeps()

	cases := []struct {
		name  string
		input RegisterInput
		code  int
	}{
		{"username too short", RegisterInput{Username: "ab", Password: "secret123"}, errs.ErrInvalidUsername},
		{"username bad chars", RegisterInput{Username: "Alice!", Password: "secret123"}, errs.ErrInvalidUsername},
		{"password too short", RegisterInput{Username: "alice_01", Password: "12345"}, errs.ErrInvalidPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, HandleRegister(deps), "/api/auth/register", tc.input)
			body := decodeResponse(t, rec)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	deps, _ := testDeps()

	rec := postJSON(t, HandleRegister(deps), "/api/auth/register", RegisterInput{
		Username: "alice_01",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, HandleRegister(deps), "/api/auth/register", RegisterInput{
		Username: "alice_01",
		Password: "other-password",
	})
	body := decodeResponse(t, rec)
	assert.Equal(t, errs.ErrUserAlreadyExists, body.Code)
}

func TestLogin(t *testing.T) {
	deps, fs := testDeps()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = fs.CreateUser(context.Background(), "alice_01", "", string(hash))
	require.NoError(t, err)

	rec := postJSON(t, HandleLogin(deps), "/api/auth/login", LoginInput{
		Username: "alice_01",
		Password: "secret123",
	})
	body := decodeResponse(t, rec)
	require.Equal(t, 0, body.Code)

	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	deps, fs := testDeps()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = fs.CreateUser(context.Background(), "alice_01", "", string(hash))
	require.NoError(t, err)

	cases := []struct {
		name  string
		input LoginInput
	}{
		{"wrong password", LoginInput{Username: "alice_01", Password: "wrong"}},
		{"unknown user", LoginInput{Username: "nobody", Password: "secret123"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, HandleLogin(deps), "/api/auth/login", tc.input)
			body := decodeResponse(t, rec)
			assert.Equal(t, errs.ErrInvalidCredentials, body.Code)
		})
	}
}
