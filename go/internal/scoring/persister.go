package scoring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultPersistWorkers = 2
	defaultPersistBuffer  = 256
	flushTimeout          = 5 * time.Second
)

// Store durably records score snapshots. Repository satisfies it.
type Store interface {
	SaveBatch(ctx context.Context, records []models.ScoreRecord) error
}

// Persister is a Sink that writes snapshots on a worker pool so room commands
// never wait on the database.
type Persister struct {
	store      Store
	workCh     chan []models.ScoreRecord
	numWorkers int
	dropped    atomic.Int64
}

// NewPersister creates a persister. Non-positive sizes use defaults.
func NewPersister(store Store, numWorkers, buffer int) *Persister {
	if numWorkers <= 0 {
		numWorkers = defaultPersistWorkers
	}
	if buffer <= 0 {
		buffer = defaultPersistBuffer
	}
	return &Persister{
		store:      store,
		workCh:     make(chan []models.ScoreRecord, buffer),
		numWorkers: numWorkers,
	}
}

// Submit queues a batch. When the queue is full the batch is dropped; the
// next snapshot of the same record supersedes it.
func (p *Persister) Submit(records []models.ScoreRecord) {
	select {
	case p.workCh <- records:
	default:
		n := p.dropped.Add(1)
		log.Warn().Int("records", len(records)).Int64("dropped_total", n).Msg("persist queue full, dropping score batch")
	}
}

// Dropped returns how many batches were discarded.
func (p *Persister) Dropped() int64 { return p.dropped.Load() }

// Run starts the workers and blocks until ctx is done. Queued batches are
// flushed before it returns.
func (p *Persister) Run(ctx context.Context) error {
	log.Info().Int("workers", p.numWorkers).Msg("score persister started")

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, i)
	}
	wg.Wait()

	log.Info().Msg("score persister stopped")
	return nil
}

func (p *Persister) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.drain(workerID)
			return
		case batch := <-p.workCh:
			p.save(ctx, workerID, batch)
		}
	}
}

func (p *Persister) drain(workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case batch := <-p.workCh:
			p.save(ctx, workerID, batch)
		default:
			return
		}
	}
}

func (p *Persister) save(ctx context.Context, workerID int, batch []models.ScoreRecord) {
	if err := p.store.SaveBatch(ctx, batch); err != nil {
		log.Error().
			Err(err).
			Int("worker_id", workerID).
			Int("records", len(batch)).
			Msg("failed to persist score batch")
		return
	}
	log.Debug().Int("worker_id", workerID).Int("records", len(batch)).Msg("persisted score batch")
}
