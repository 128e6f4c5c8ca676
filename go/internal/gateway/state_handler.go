package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/rs/zerolog/log"
)

// RoomService is the slice of game.Service the REST routes need.
type RoomService interface {
	CreateRoom(ctx context.Context, cfg game.RoomConfig) (*game.Room, error)
	CloseRoom(id string) error
	RoomIDs() []string
	Snapshot(roomID string) (game.RoomState, error)
}

// RoomSummary is one entry of GET /api/rooms.
type RoomSummary struct {
	ID           string          `json:"id"`
	Format       models.Format   `json:"format"`
	Mode         models.PlayMode `json:"mode"`
	Round        int             `json:"round"`
	Participants int             `json:"participants"`
	Moderator    string          `json:"moderator,omitempty"`
}

// StateHandler handles HTTP requests for room state
type StateHandler struct {
	rooms RoomService
}

func NewStateHandler(rooms RoomService) *StateHandler {
	return &StateHandler{rooms: rooms}
}

// HandleCreateRoom handles POST /api/rooms
func (h *StateHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var cfg game.RoomConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), cfg)
	if err != nil {
		log.Warn().Err(err).Str("format", string(cfg.Format)).Msg("failed to create room")
		writeError(w, statusFor(err), game.ErrorCode(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, room.Snapshot())
}

// HandleListRooms handles GET /api/rooms
func (h *StateHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	ids := h.rooms.RoomIDs()
	out := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		state, err := h.rooms.Snapshot(id)
		if err != nil {
			// Closed between listing and snapshot.
			continue
		}
		out = append(out, RoomSummary{
			ID:           state.Config.ID,
			Format:       state.Config.Format,
			Mode:         state.Config.Mode,
			Round:        state.Round,
			Participants: len(state.Participants),
			Moderator:    state.Moderator,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetRoomState handles GET /api/rooms/{id}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.rooms.Snapshot(id)
	if err != nil {
		writeError(w, statusFor(err), game.ErrorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleCloseRoom handles DELETE /api/rooms/{id}
func (h *StateHandler) HandleCloseRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.CloseRoom(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), game.ErrorCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.HandleCreateRoom)
	mux.HandleFunc("GET /api/rooms", h.HandleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}/state", h.HandleGetRoomState)
	mux.HandleFunc("DELETE /api/rooms/{id}", h.HandleCloseRoom)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrRoomExists):
		return http.StatusConflict
	case errors.Is(err, rules.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]string{"code": code, "message": err.Error()})
}
