package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type fakeJetStream struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
	sent chan struct{}
}

func newFakeJetStream() *fakeJetStream {
	return &fakeJetStream{sent: make(chan struct{}, 16)}
}

func (f *fakeJetStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	f.sent <- struct{}{}
	return &jetstream.PubAck{Stream: "QUIZ_ROOM_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

func (f *fakeJetStream) published() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.msgs...)
}

func TestPublisherPublishesEnvelope(t *testing.T) {
	js := newFakeJetStream()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := newJetStreamPublisher(js, DefaultJetStreamConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Notify(events.Notification{
		Type:   events.LockoutActive,
		RoomID: "r1",
		Target: "bob",
		Data:   events.LockoutActivePayload{RemainingSeconds: 2.5},
	})

	select {
	case <-js.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("nothing published")
	}
	cancel()
	<-done

	msgs := js.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages", len(msgs))
	}
	msg := msgs[0]
	if msg.Subject != "quiz.rooms.events.lockoutActive" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.Header.Get("Room-ID") != "r1" {
		t.Fatalf("Room-ID header = %q", msg.Header.Get("Room-ID"))
	}

	var ev RoomEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.ID == "" || msg.Header.Get("Event-ID") != ev.ID {
		t.Fatalf("event id %q, header %q", ev.ID, msg.Header.Get("Event-ID"))
	}
	if ev.Target != "bob" || ev.RoomID != "r1" || !ev.Timestamp.Equal(clock.Now()) {
		t.Fatalf("envelope = %+v", ev)
	}
	var payload events.LockoutActivePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.RemainingSeconds != 2.5 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestPublisherQueueDrops(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	cfg.Buffer = 1
	p := newJetStreamPublisher(newFakeJetStream(), cfg, clockwork.NewFakeClock())

	p.Notify(events.Notification{Type: events.TimerTick, RoomID: "r1"})
	p.Notify(events.Notification{Type: events.TimerTick, RoomID: "r1"})

	if got := p.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
}

func TestPublishError(t *testing.T) {
	js := newFakeJetStream()
	js.err = errors.New("no responders")
	p := newJetStreamPublisher(js, DefaultJetStreamConfig(), clockwork.NewFakeClock())

	ev, err := NewRoomEvent(events.Notification{Type: events.BuzzLocked, RoomID: "r1"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), ev); err == nil || !errors.Is(err, js.err) {
		t.Fatalf("err = %v", err)
	}
}
