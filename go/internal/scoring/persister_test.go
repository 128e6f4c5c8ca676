package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []models.ScoreRecord
	fail  bool
	done  chan struct{}
}

func (f *fakeStore) SaveBatch(_ context.Context, records []models.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()
	if f.fail {
		return errors.New("db down")
	}
	f.saved = append(f.saved, records...)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func waitSaved(t *testing.T, done <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for batch %d", i+1)
		}
	}
}

func TestPersisterSavesSubmittedBatches(t *testing.T) {
	store := &fakeStore{done: make(chan struct{}, 10)}
	p := NewPersister(store, 2, 10)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(stopped)
	}()

	l := NewLedger(nil, WithSink(p))
	for i := 0; i < 3; i++ {
		if _, err := l.RecordIndividual(room, "gus", models.FormatNAQT, 1, 10, nil); err != nil {
			t.Fatal(err)
		}
	}
	waitSaved(t, store.done, 3)
	if store.count() != 3 {
		t.Errorf("saved %d records, want 3", store.count())
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("persister did not stop")
	}
}

func TestPersisterDropsWhenFull(t *testing.T) {
	store := &fakeStore{done: make(chan struct{}, 10)}
	p := NewPersister(store, 1, 1)

	batch := []models.ScoreRecord{{Subject: models.Individual("hal")}}
	p.Submit(batch)
	p.Submit(batch)
	p.Submit(batch)

	if got := p.Dropped(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
}

func TestPersisterFlushesOnShutdown(t *testing.T) {
	store := &fakeStore{done: make(chan struct{}, 10)}
	p := NewPersister(store, 1, 4)
	p.Submit([]models.ScoreRecord{{Subject: models.Individual("ivy")}})
	p.Submit([]models.ScoreRecord{{Subject: models.Individual("jo")}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if store.count() != 2 {
		t.Errorf("saved %d records after shutdown, want 2", store.count())
	}
}

func TestPersisterSurvivesStoreErrors(t *testing.T) {
	store := &fakeStore{done: make(chan struct{}, 10), fail: true}
	p := NewPersister(store, 1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Submit([]models.ScoreRecord{{Subject: models.Individual("kim")}})
	waitSaved(t, store.done, 1)

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()

	p.Submit([]models.ScoreRecord{{Subject: models.Individual("kim")}})
	waitSaved(t, store.done, 1)
	if store.count() != 1 {
		t.Errorf("saved %d records, want 1", store.count())
	}
}
