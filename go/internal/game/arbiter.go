package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultLockout is the window after an incorrect answer during which nobody
// may buzz.
const DefaultLockout = 5 * time.Second

// ArbiterConfig sets the lockout windows. LockoutAfterCorrect of zero clears
// the lockout on a correct answer.
type ArbiterConfig struct {
	Lockout             time.Duration
	LockoutAfterCorrect time.Duration
}

// BuzzState is a snapshot of who holds the buzz.
type BuzzState struct {
	Subject      string    `json:"subject,omitempty"`
	BuzzedAt     time.Time `json:"buzzed_at,omitzero"`
	LockoutUntil time.Time `json:"lockout_until,omitzero"`
}

// Arbiter decides the single winner of a buzz race. At most one subject holds
// the buzz at any time.
type Arbiter struct {
	mu    sync.Mutex
	clock clockwork.Clock
	cfg   ArbiterConfig

	buzzed       string
	buzzedAt     time.Time
	lockoutUntil time.Time
}

func NewArbiter(clock clockwork.Clock, cfg ArbiterConfig) *Arbiter {
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLockout
	}
	if cfg.LockoutAfterCorrect < 0 {
		cfg.LockoutAfterCorrect = 0
	}
	return &Arbiter{clock: clock, cfg: cfg}
}

// Buzz accepts the first subject to buzz outside a lockout window.
func (a *Arbiter) Buzz(subject string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if now.Before(a.lockoutUntil) {
		return &LockedOutError{Remaining: a.lockoutUntil.Sub(now)}
	}
	if a.buzzed != "" {
		return ErrAlreadyBuzzed
	}
	a.buzzed = subject
	a.buzzedAt = now
	return nil
}

// Check reports whether Resolve(subject) would be accepted without changing
// anything.
func (a *Arbiter) Check(subject string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.check(subject)
}

func (a *Arbiter) check(subject string) error {
	if a.buzzed == "" {
		return ErrNoActiveBuzz
	}
	if a.buzzed != subject {
		return ErrNotBuzzedSubject
	}
	return nil
}

// Resolve releases the buzz held by subject. An incorrect answer extends the
// lockout to at least now+Lockout.
func (a *Arbiter) Resolve(subject string, correct bool) (lockoutUntil time.Time, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(subject); err != nil {
		return time.Time{}, err
	}
	now := a.clock.Now()
	a.buzzed = ""
	a.buzzedAt = time.Time{}

	switch {
	case !correct:
		if until := now.Add(a.cfg.Lockout); until.After(a.lockoutUntil) {
			a.lockoutUntil = until
		}
	case a.cfg.LockoutAfterCorrect > 0:
		a.lockoutUntil = now.Add(a.cfg.LockoutAfterCorrect)
	default:
		a.lockoutUntil = time.Time{}
	}
	return a.lockoutUntil, nil
}

// ClearBuzz drops the current buzz. The lockout window is kept.
func (a *Arbiter) ClearBuzz() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buzzed = ""
	a.buzzedAt = time.Time{}
}

// Release drops the buzz if subject holds it.
func (a *Arbiter) Release(subject string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buzzed == "" || a.buzzed != subject {
		return false
	}
	a.buzzed = ""
	a.buzzedAt = time.Time{}
	return true
}

func (a *Arbiter) State() BuzzState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := BuzzState{Subject: a.buzzed, BuzzedAt: a.buzzedAt}
	if a.clock.Now().Before(a.lockoutUntil) {
		s.LockoutUntil = a.lockoutUntil
	}
	return s
}
