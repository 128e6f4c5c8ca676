package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/models"
)

func TestRoomRoutes(t *testing.T) {
	h := newHarness(t)
	base := h.server.URL

	resp, err := http.Post(base+"/api/rooms", "application/json", strings.NewReader(`{"id":"r1","format":"naqt","mode":"pvp"}`))
	if err != nil {
		t.Fatal(err)
	}
	var created game.RoomState
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if created.Config.ID != "r1" || created.Config.Format != models.FormatNAQT {
		t.Fatalf("created = %+v", created.Config)
	}

	resp, err = http.Post(base+"/api/rooms", "application/json", strings.NewReader(`{"id":"r1","format":"NAQT"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	var list []RoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(list) != 1 || list[0].ID != "r1" || list[0].Round != 1 {
		t.Fatalf("list = %+v", list)
	}

	resp, err = http.Get(base + "/api/rooms/r1/state")
	if err != nil {
		t.Fatal(err)
	}
	var state game.RoomState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || state.Config.ID != "r1" {
		t.Fatalf("state status=%d config=%+v", resp.StatusCode, state.Config)
	}

	req, _ := http.NewRequest(http.MethodDelete, base+"/api/rooms/r1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
}

func TestRoomRoutesErrors(t *testing.T) {
	h := newHarness(t)
	base := h.server.URL

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown format", http.MethodPost, "/api/rooms", `{"format":"chess"}`, http.StatusUnprocessableEntity, "configuration"},
		{"unknown mode", http.MethodPost, "/api/rooms", `{"format":"NAQT","mode":"solo"}`, http.StatusUnprocessableEntity, "configuration"},
		{"bad body", http.MethodPost, "/api/rooms", `{`, http.StatusBadRequest, "malformed_request"},
		{"missing room", http.MethodGet, "/api/rooms/nope/state", "", http.StatusNotFound, "room_not_found"},
		{"delete missing", http.MethodDelete, "/api/rooms/nope", "", http.StatusNotFound, "room_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, base+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["code"] != tt.code {
				t.Fatalf("code = %q, want %q", body["code"], tt.code)
			}
		})
	}
}

func TestHealthAndStats(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(h.server.URL + "/ws/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalConnections != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
