package game

import (
	"github.com/mcdev12/quizbowl/go/internal/events"
)

// Broadcaster delivers room notifications. Notify must not block; a
// notification with a Target goes to that participant only.
type Broadcaster interface {
	Notify(n events.Notification)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(n events.Notification)

func (f BroadcasterFunc) Notify(n events.Notification) { f(n) }

// MultiBroadcaster fans a notification out to several transports.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) Notify(n events.Notification) {
	for _, b := range m {
		if b != nil {
			b.Notify(n)
		}
	}
}

type discard struct{}

func (discard) Notify(events.Notification) {}
