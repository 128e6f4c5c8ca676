package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/rs/zerolog/log"
)

// TimerHandle is one countdown. After Cancel it never emits again.
type TimerHandle struct {
	mu        sync.Mutex
	event     string
	remaining int
	live      bool
	stop      chan struct{}
}

func (h *TimerHandle) Event() string { return h.event }

// Remaining is the last announced number of seconds left.
func (h *TimerHandle) Remaining() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remaining
}

func (h *TimerHandle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

func (h *TimerHandle) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.live {
		h.live = false
		close(h.stop)
	}
}

// TimerSnapshot describes the running countdown, if any.
type TimerSnapshot struct {
	Event            string `json:"event"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// TimerService runs at most one countdown for a room. Ticks are produced on
// their own goroutine and never take the room lock.
type TimerService struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	roomID string
	emit   func(events.Notification)
	active *TimerHandle
	wg     sync.WaitGroup
}

func NewTimerService(clock clockwork.Clock, roomID string, emit func(events.Notification)) *TimerService {
	return &TimerService{clock: clock, roomID: roomID, emit: emit}
}

// Start cancels any running countdown and begins a new one. It emits
// timerTick for seconds..1, one per elapsed second, then timerEnd.
func (s *TimerService) Start(event string, seconds int) *TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.cancel()
	}
	h := &TimerHandle{event: event, remaining: seconds, live: true, stop: make(chan struct{})}
	s.active = h

	ticker := s.clock.NewTicker(time.Second)
	s.wg.Add(1)
	go s.run(h, ticker)

	log.Debug().Str("room_id", s.roomID).Str("event", event).Int("seconds", seconds).Msg("timer started")
	return h
}

func (s *TimerService) run(h *TimerHandle, ticker clockwork.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	defer s.clear(h)

	if !s.announce(h, false) {
		return
	}
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.Chan():
			if !s.announce(h, true) {
				return
			}
		}
	}
}

// announce emits the next notification while holding the handle lock so a
// concurrent cancel cannot interleave. It returns false once the handle is
// finished.
func (s *TimerService) announce(h *TimerHandle, elapsed bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.live {
		return false
	}
	if elapsed {
		h.remaining--
	}
	if h.remaining > 0 {
		s.emit(events.Notification{
			Type:   events.TimerTick,
			RoomID: s.roomID,
			Data:   events.TimerTickPayload{Event: h.event, RemainingSeconds: h.remaining},
		})
		return true
	}

	h.live = false
	close(h.stop)
	s.emit(events.Notification{
		Type:   events.TimerEnd,
		RoomID: s.roomID,
		Data:   events.TimerEndPayload{Event: h.event},
	})
	return false
}

// clear runs after the handle lock is released.
func (s *TimerService) clear(h *TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == h {
		s.active = nil
	}
}

// Cancel stops the running countdown without a timerEnd.
func (s *TimerService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.cancel()
		s.active = nil
		log.Debug().Str("room_id", s.roomID).Msg("timer cancelled")
	}
}

// Active returns the running countdown.
func (s *TimerService) Active() (TimerSnapshot, bool) {
	s.mu.Lock()
	h := s.active
	s.mu.Unlock()
	if h == nil || !h.Live() {
		return TimerSnapshot{}, false
	}
	return TimerSnapshot{Event: h.event, RemainingSeconds: h.Remaining()}, true
}

// Close cancels the countdown and waits for its goroutine to exit.
func (s *TimerService) Close() {
	s.Cancel()
	s.wg.Wait()
}
