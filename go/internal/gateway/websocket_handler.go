package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for room connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleRoomConnection handles /ws/room?room_id=..&user_id=..[&role=moderator][&team_id=..]
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ConnectParams{
		RoomID: q.Get("room_id"),
		UserID: q.Get("user_id"),
		Role:   q.Get("role"),
		TeamID: q.Get("team_id"),
	}
	if params.RoomID == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}
	// In production the user would come from a session or token.
	if params.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.connectionManager.UpgradeConnection(w, r, params); err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("room_id", params.RoomID).
			Str("user_id", params.UserID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
