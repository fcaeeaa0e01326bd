/*
Package handler provides HTTP handler functions for room management: listing
the caller's rooms, creating group rooms, and opening direct rooms.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"flirto/internal/app/store"
	"flirto/internal/pkg/auth/jwt"
	"flirto/internal/pkg/errs"
	"flirto/internal/pkg/logx"
	"flirto/internal/pkg/req"
	"flirto/internal/pkg/resp"
)

const maxRoomNameRunes = 60

type CreateRoomInput struct {
	Name string `json:"name"`
}

type DirectRoomInput struct {
	UserID int64 `json:"userId" validate:"required"`
}

// HandleListRooms returns the rooms the caller belongs to, most recently
// joined first.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		rooms, err := deps.Store.ListRoomsForUser(r.Context(), payload.UserID)
		if err != nil {
			logx.Error(err, "failed to list rooms", "user_id", payload.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if rooms == nil {
			rooms = []store.Room{}
		}

		resp.RespondSuccess(w, r, map[string]any{"rooms": rooms})
	}
}

// HandleCreateRoom creates a group room with the caller as its first member.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		name := strings.TrimSpace(input.Name)
		if name == "" || utf8.RuneCountInString(name) > maxRoomNameRunes {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		room, err := deps.Store.CreateRoom(r.Context(), name, false)
		if err != nil {
			logx.Error(err, "failed to create room", "user_id", payload.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if _, err := deps.Store.EnsureMembership(r.Context(), payload.UserID, room.ID); err != nil {
			logx.Error(err, "failed to add creator membership", "room_id", room.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"room": room})
	}
}

// HandleDirectRoom finds or creates the direct room between the caller and
// another user. Both memberships are ensured so either side can join.
func HandleDirectRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input DirectRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == payload.UserID {
			resp.RespondError(w, r, errs.NewError(errs.ErrDirectRoomSelf))
			return
		}

		other, err := deps.Store.GetUserByID(r.Context(), input.UserID)
		if errors.Is(err, store.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "failed to load direct room peer", "user_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		room, err := deps.Store.FindDirectRoom(r.Context(), payload.UserID, other.ID)
		if errors.Is(err, store.ErrNotFound) {
			room, err = deps.Store.CreateRoom(r.Context(), payload.Username+" & "+other.Username, true)
		}
		if err != nil {
			logx.Error(err, "failed to find or create direct room", "peer_id", other.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		for _, uid := range []int64{payload.UserID, other.ID} {
			if _, err := deps.Store.EnsureMembership(r.Context(), uid, room.ID); err != nil {
				logx.Error(err, "failed to ensure direct room membership", "room_id", room.ID, "user_id", uid)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
		}

		resp.RespondSuccess(w, r, map[string]any{"room": room})
	}
}
