package game

import (
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
)

// TiebreakerMonitor decides at round end whether sudden death begins.
type TiebreakerMonitor struct {
	ledger *scoring.Ledger
}

func NewTiebreakerMonitor(ledger *scoring.Ledger) TiebreakerMonitor {
	return TiebreakerMonitor{ledger: ledger}
}

// Check returns a notice only when it is the end of a round the format
// checks, and the two leading sides are level in scope.
func (m TiebreakerMonitor) Check(engine *rules.Engine, scope models.Scope, sides []models.Subject, round int, endOfRound bool) (events.TiebreakerNoticePayload, bool) {
	if !endOfRound || !engine.TiebreakerDue(round) || len(sides) < 2 {
		return events.TiebreakerNoticePayload{}, false
	}
	standings := m.ledger.Standings(scope, engine.Format(), sides)
	if standings[0].Cumulative != standings[1].Cumulative {
		return events.TiebreakerNoticePayload{}, false
	}
	return events.TiebreakerNoticePayload{Message: engine.TiebreakerMessage(), Round: round}, true
}
