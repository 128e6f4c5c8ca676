package rules

import (
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

// BaselineTossupPoints is awarded when a schema defines no tossup value at all.
const BaselineTossupPoints = 10

// DefaultTimerSeconds applies to events with neither a schema nor a format default.
const DefaultTimerSeconds = 5

// DefaultCategoryWeight applies to categories absent from the schema table.
const DefaultCategoryWeight = 1

// PointSource names which schema value produced a tossup award.
type PointSource string

const (
	SourcePower          PointSource = "power"
	SourceRegular        PointSource = "regular"
	SourceQuarterDefault PointSource = "quarter_default"
	SourceBaseline       PointSource = "baseline"
)

// TossupState is the minimal input needed to score a correct tossup.
type TossupState struct {
	Power bool
}

// formatDefaults are the documented per-format fallbacks used when a schema is silent.
type formatDefaults struct {
	negPenalty        int
	bonusPoints       int
	timers            map[string]int
	tiebreakerMessage string
	boundary          Boundary
	finalRound        int
}

const genericTiebreakerMessage = "Sudden-death tossups begin."

var defaultsByFormat = map[models.Format]formatDefaults{
	models.FormatNAQT: {
		negPenalty:        -5,
		bonusPoints:       10,
		timers:            map[string]int{"tossup": 5, "bonus": 5},
		tiebreakerMessage: genericTiebreakerMessage,
		boundary:          BoundaryEveryRound,
	},
	models.FormatOSSAA: {
		negPenalty:        -5,
		bonusPoints:       10,
		timers:            map[string]int{"tossup": 5, "sixty_second": 60},
		tiebreakerMessage: "OSSAA sudden-death tossups until a clear winner.",
		boundary:          BoundaryFinalRound,
		finalRound:        4,
	},
	models.FormatFroshmore: {
		negPenalty:        0,
		bonusPoints:       10,
		timers:            map[string]int{"tossup": 5, "bonus": 5},
		tiebreakerMessage: "Froshmore final tiebreaker: individual tossups until a clear winner.",
		boundary:          BoundaryFinalRound,
		finalRound:        4,
	},
	models.FormatTrivia: {
		negPenalty:        0,
		bonusPoints:       0,
		timers:            map[string]int{"tossup": 10},
		tiebreakerMessage: genericTiebreakerMessage,
		boundary:          BoundaryEveryRound,
	},
}

// Engine answers scoring and timing questions from a Schema. Every method is a
// pure function of the schema and its arguments.
type Engine struct {
	schema   *Schema
	defaults formatDefaults
}

// NewEngine wraps a validated schema.
func NewEngine(schema *Schema) *Engine {
	return &Engine{schema: schema, defaults: defaultsByFormat[schema.Format]}
}

// Format returns the schema's format.
func (e *Engine) Format() models.Format { return e.schema.Format }

// PointsForTossup returns the award for a correct tossup.
func (e *Engine) PointsForTossup(state TossupState) int {
	pts, _ := e.TossupPointsSource(state)
	return pts
}

// TossupPointsSource returns the award together with the source that produced it.
// Precedence is power > regular > quarter default > baseline; a source counts
// only when it is configured with a positive value.
func (e *Engine) TossupPointsSource(state TossupState) (int, PointSource) {
	g := e.schema.Sections.Gameplay
	var quarter *int
	if q := e.schema.firstQuarter(); q != nil {
		quarter = q.PointsEach
	}

	candidates := []struct {
		source  PointSource
		value   *int
		applies bool
	}{
		{SourcePower, g.TossupPoints.Power, state.Power},
		{SourceRegular, g.TossupPoints.Regular, true},
		{SourceQuarterDefault, quarter, true},
	}
	for _, c := range candidates {
		if c.applies && c.value != nil && *c.value > 0 {
			return *c.value, c.source
		}
	}
	return BaselineTossupPoints, SourceBaseline
}

// PointsForBonus returns the value of one bonus part. Formats scored by
// category instead of bonuses return 0.
func (e *Engine) PointsForBonus() int {
	if each := e.schema.Sections.Gameplay.BonusPoints.Each; each != nil && *each > 0 {
		return *each
	}
	if q := e.schema.firstQuarter(); q != nil && q.Bonus != nil && q.Bonus.PointsEach != nil && *q.Bonus.PointsEach > 0 {
		return *q.Bonus.PointsEach
	}
	return e.defaults.bonusPoints
}

// NegPenalty returns the signed penalty for an incorrect buzz; zero when the
// format does not penalize.
func (e *Engine) NegPenalty() int {
	if neg := e.schema.Sections.Gameplay.NegPenalty; neg != nil {
		return *neg
	}
	return e.defaults.negPenalty
}

// TimerSeconds returns the countdown length for an event such as "tossup",
// "bonus", "sixty_second" or "lightning".
func (e *Engine) TimerSeconds(event string) int {
	if secs, ok := e.schema.Sections.Gameplay.Timers[event]; ok {
		return secs
	}
	if secs, ok := e.defaults.timers[event]; ok {
		return secs
	}
	return DefaultTimerSeconds
}

// TiebreakerMessage is the announcement shown when sudden death begins.
func (e *Engine) TiebreakerMessage() string {
	if tb := strings.TrimSpace(e.schema.Sections.Gameplay.TiebreakerProcedure); tb != "" {
		return e.schema.Sections.Gameplay.TiebreakerProcedure
	}
	if e.defaults.tiebreakerMessage != "" {
		return e.defaults.tiebreakerMessage
	}
	return genericTiebreakerMessage
}

// TiebreakerDue reports whether a tie at the end of round would start sudden death.
func (e *Engine) TiebreakerDue(round int) bool {
	rule := e.schema.Sections.Gameplay.Tiebreaker
	boundary, final := rule.Boundary, rule.FinalRound
	if boundary == "" {
		boundary, final = e.defaults.boundary, e.defaults.finalRound
	}
	if boundary == BoundaryFinalRound {
		if final == 0 {
			final = e.defaults.finalRound
		}
		return round >= final
	}
	return true
}

// SupportsPower reports whether early correct answers earn a power value.
func (e *Engine) SupportsPower() bool {
	p := e.schema.Sections.Gameplay.TossupPoints.Power
	return p != nil && *p > 0
}

// HasTimedLightningRound reports whether the format runs a sixty-second or
// lightning round.
func (e *Engine) HasTimedLightningRound() bool {
	q := e.schema.Sections.Questions
	return e.schema.Sections.Gameplay.SixtySecondRound ||
		q.SixtySecondRound != nil ||
		q.LightningRound != nil ||
		q.Bonus.SixtySecondRound != nil
}

// Categories returns the format's category table.
func (e *Engine) Categories() map[models.Category]int {
	return e.schema.Categories()
}

// HasCategory reports whether the format defines the category.
func (e *Engine) HasCategory(c models.Category) bool {
	_, ok := e.schema.categories[c]
	return ok
}

// CategoryWeight returns the schema weight of a category, or the default.
func (e *Engine) CategoryWeight(c models.Category) int {
	if w, ok := e.schema.categories[c]; ok {
		return w
	}
	return DefaultCategoryWeight
}

// MaxActivePlayers returns the team size limit, 0 when unlimited.
func (e *Engine) MaxActivePlayers() int {
	return e.schema.Sections.Participants.Team.MaxActivePlayers
}
