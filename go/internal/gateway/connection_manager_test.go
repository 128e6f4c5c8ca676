package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/packets"
	"github.com/mcdev12/quizbowl/go/internal/rules"
)

var gatewayQuestions = packets.StaticProvider{
	models.FormatNAQT: {
		{ID: "n1", Kind: models.QuestionKindPyramidal, Answer: "Waterloo", Clues: []string{"hard", "medium", "easy"}},
	},
}

type harness struct {
	gw     *Service
	svc    *game.Service
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gw, err := NewService(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc := game.NewService(game.Config{
		Rules:       reg,
		Packets:     gatewayQuestions,
		Broadcaster: gw.Broadcaster(),
		Clock:       clockwork.NewFakeClock(),
	})
	gw.Bind(svc)

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	gw.Start(ctx)

	t.Cleanup(func() {
		server.Close()
		cancel()
		gw.Stop()
		svc.Close()
	})
	return &harness{gw: gw, svc: svc, server: server}
}

func (h *harness) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/room?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", query, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads envelopes until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want events.NotificationType) RoomEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var ev RoomEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if ev.Type == want {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketBuzzFlow(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.CreateRoom(context.Background(), game.RoomConfig{ID: "r1", Format: models.FormatNAQT}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	mod := h.dial(t, "room_id=r1&user_id=mod&role=moderator")
	readUntil(t, mod, events.PlayerList)

	alice := h.dial(t, "room_id=r1&user_id=alice")
	bob := h.dial(t, "room_id=r1&user_id=bob")

	// Wait until both players are visible to the moderator.
	for {
		ev := readUntil(t, mod, events.PlayerList)
		var list events.PlayerListPayload
		if err := json.Unmarshal(ev.Data, &list); err != nil {
			t.Fatal(err)
		}
		if len(list.Players) == 3 {
			if list.Moderator != "mod" {
				t.Fatalf("moderator = %q", list.Moderator)
			}
			break
		}
	}

	send(t, mod, "startQuestion", nil)
	ack := readUntil(t, mod, TypeAck)
	var ackData AckPayload
	if err := json.Unmarshal(ack.Data, &ackData); err != nil {
		t.Fatal(err)
	}
	if ackData.Command != "startQuestion" {
		t.Fatalf("ack command = %q", ackData.Command)
	}
	readUntil(t, alice, events.QuestionStarted)
	readUntil(t, bob, events.QuestionStarted)

	send(t, alice, "buzz", nil)
	readUntil(t, alice, TypeAck)
	locked := readUntil(t, bob, events.BuzzLocked)
	var lp events.BuzzLockedPayload
	if err := json.Unmarshal(locked.Data, &lp); err != nil {
		t.Fatal(err)
	}
	if lp.Subject != "alice" {
		t.Fatalf("buzzLocked subject = %q", lp.Subject)
	}

	send(t, bob, "buzz", nil)
	errEv := readUntil(t, bob, events.Error)
	var ep events.ErrorPayload
	if err := json.Unmarshal(errEv.Data, &ep); err != nil {
		t.Fatal(err)
	}
	if ep.Code != "already_buzzed" {
		t.Fatalf("error code = %q", ep.Code)
	}
	if errEv.Target != "bob" {
		t.Fatalf("error target = %q", errEv.Target)
	}

	send(t, mod, "resolveAnswer", map[string]any{"subject": "alice", "correct": true})
	score := readUntil(t, alice, events.ScoreUpdate)
	var sp events.ScoreUpdatePayload
	if err := json.Unmarshal(score.Data, &sp); err != nil {
		t.Fatal(err)
	}
	if sp.Subject != "alice" || sp.PointsDelta <= 0 {
		t.Fatalf("score update = %+v", sp)
	}
}

func TestWebSocketRejectsUnknownRoom(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "room_id=missing&user_id=alice")

	ev := readUntil(t, conn, events.Error)
	var ep events.ErrorPayload
	if err := json.Unmarshal(ev.Data, &ep); err != nil {
		t.Fatal(err)
	}
	if ep.Code != "room_not_found" {
		t.Fatalf("code = %q", ep.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed after rejected join")
	}
}

func TestWebSocketMalformedMessage(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.CreateRoom(context.Background(), game.RoomConfig{ID: "r1", Format: models.FormatNAQT}); err != nil {
		t.Fatal(err)
	}
	conn := h.dial(t, "room_id=r1&user_id=alice")
	readUntil(t, conn, events.PlayerList)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	ev := readUntil(t, conn, events.Error)
	var ep events.ErrorPayload
	if err := json.Unmarshal(ev.Data, &ep); err != nil {
		t.Fatal(err)
	}
	if ep.Code != "malformed_command" {
		t.Fatalf("code = %q", ep.Code)
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.CreateRoom(context.Background(), game.RoomConfig{ID: "r1", Format: models.FormatNAQT}); err != nil {
		t.Fatal(err)
	}
	conn := h.dial(t, "room_id=r1&user_id=alice")
	readUntil(t, conn, events.PlayerList)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, err := h.svc.Snapshot("r1")
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Participants) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("participant still joined after disconnect")
}

func TestWebSocketRequiresParams(t *testing.T) {
	h := newHarness(t)
	for _, query := range []string{"user_id=alice", "room_id=r1"} {
		resp, err := http.Get(h.server.URL + "/ws/room?" + query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, resp.StatusCode)
		}
	}
}

func TestHandleBroadcastRoutesTargetedEvents(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), clockwork.NewFakeClock())
	alice := &Connection{ID: "c1", UserID: "alice", RoomID: "r1", Send: make(chan []byte, 4), Manager: cm}
	bob := &Connection{ID: "c2", UserID: "bob", RoomID: "r1", Send: make(chan []byte, 4), Manager: cm}
	other := &Connection{ID: "c3", UserID: "carol", RoomID: "r2", Send: make(chan []byte, 4), Manager: cm}
	for _, c := range []*Connection{alice, bob, other} {
		cm.registerConnection(c)
	}

	cm.handleBroadcast(&RoomEvent{ID: "e1", RoomID: "r1", Type: events.LockoutActive, Target: "bob", Data: json.RawMessage(`{}`)})
	if len(alice.Send) != 0 || len(bob.Send) != 1 || len(other.Send) != 0 {
		t.Fatalf("targeted: alice=%d bob=%d carol=%d", len(alice.Send), len(bob.Send), len(other.Send))
	}

	cm.handleBroadcast(&RoomEvent{ID: "e2", RoomID: "r1", Type: events.BuzzLocked, Data: json.RawMessage(`{}`)})
	if len(alice.Send) != 1 || len(bob.Send) != 2 || len(other.Send) != 0 {
		t.Fatalf("room-wide: alice=%d bob=%d carol=%d", len(alice.Send), len(bob.Send), len(other.Send))
	}

	stats := cm.Stats()
	if stats.TotalConnections != 3 || stats.ActiveRooms != 2 || stats.RoomConnections["r1"] != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	cm.unregisterConnection(alice)
	<-alice.Send
	if _, ok := <-alice.Send; ok {
		t.Fatal("send channel not closed on unregister")
	}
	if !alice.enqueue([]byte("late")) {
		t.Fatal("enqueue after close should be a no-op")
	}
}

func TestDeliverDropsWhenFull(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.BroadcastBuffer = 1
	cm := NewConnectionManager(cfg, clockwork.NewFakeClock())

	cm.Notify(events.Notification{Type: events.BuzzLocked, RoomID: "r1"})
	cm.Notify(events.Notification{Type: events.BuzzLocked, RoomID: "r1"})

	if got := cm.Stats().Dropped; got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
}

func TestStatsReportsStalestPing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cm := NewConnectionManager(DefaultConnectionConfig(), clock)
	fresh := &Connection{ID: "c1", UserID: "alice", RoomID: "r1", Send: make(chan []byte, 1), Manager: cm, lastPing: clock.Now()}
	stale := &Connection{ID: "c2", UserID: "bob", RoomID: "r1", Send: make(chan []byte, 1), Manager: cm, lastPing: clock.Now()}
	cm.registerConnection(fresh)
	cm.registerConnection(stale)

	clock.Advance(30 * time.Second)
	fresh.touch()
	if got := fresh.LastPing(); !got.Equal(clock.Now()) {
		t.Fatalf("touch did not update last ping: %v", got)
	}

	if got := cm.Stats().StalestPing; got != 30*time.Second {
		t.Fatalf("stalest ping = %v, want 30s", got)
	}
}
