package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/identity"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/packets"
	"github.com/mcdev12/quizbowl/go/internal/rules"
)

// recorder is an in-memory Broadcaster.
type recorder struct {
	mu    sync.Mutex
	notes []events.Notification
	ch    chan events.Notification
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan events.Notification, 512)}
}

func (r *recorder) Notify(n events.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
	select {
	case r.ch <- n:
	default:
	}
}

func (r *recorder) ofType(t events.NotificationType) []events.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Notification
	for _, n := range r.notes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

// waitFor consumes notifications until one of type t arrives.
func (r *recorder) waitFor(tb testing.TB, t events.NotificationType) events.Notification {
	tb.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-r.ch:
			if n.Type == t {
				return n
			}
		case <-timeout:
			tb.Fatalf("timed out waiting for %s", t)
			return events.Notification{}
		}
	}
}

var testQuestions = packets.StaticProvider{
	models.FormatNAQT: {
		{ID: "n1", Kind: models.QuestionKindPyramidal, Answer: "Waterloo", Clues: []string{"hard", "medium", "easy"}},
		{ID: "n2", Kind: models.QuestionKindPyramidal, Answer: "Photosynthesis", Clues: []string{"one", "two"}},
	},
	models.FormatTrivia: {
		{ID: "t1", Kind: models.QuestionKindFlat, Text: "Largest ocean?", Answer: "Pacific", Category: models.CategoryGeography},
	},
}

type fixture struct {
	svc   *Service
	clock *clockwork.FakeClock
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	roster, err := identity.NewRoster(map[string][]string{
		"red":  {"alice", "amy"},
		"blue": {"bob"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		clock: clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)),
		rec:   newRecorder(),
	}
	f.svc = NewService(Config{
		Rules:       reg,
		Packets:     testQuestions,
		Directory:   roster,
		Broadcaster: f.rec,
		Clock:       f.clock,
		Arbiter:     ArbiterConfig{Lockout: DefaultLockout},
	})
	t.Cleanup(f.svc.Close)
	return f
}

// room creates a room with a moderator "mod" and the given players joined.
func (f *fixture) room(t *testing.T, cfg RoomConfig, players ...string) *Room {
	t.Helper()
	r, err := f.svc.CreateRoom(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := r.Join(context.Background(), "mod", models.RoleModerator, ""); err != nil {
		t.Fatalf("join moderator: %v", err)
	}
	for _, p := range players {
		if _, err := r.Join(context.Background(), p, models.RolePlayer, ""); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
	}
	return r
}
