package models

import "time"

// ScopeKind defines the aggregation level of a score.
type ScopeKind string

const (
	ScopeSingleRound ScopeKind = "single_round"
	ScopeTournament  ScopeKind = "tournament"
	ScopeHallOfFame  ScopeKind = "hall_of_fame"
)

// Scope identifies one aggregation bucket, e.g. a room's game or a tournament.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func (s Scope) String() string { return string(s.Kind) + ":" + s.ID }

// SubjectKind defines whether points belong to a team or a person.
type SubjectKind string

const (
	SubjectIndividual SubjectKind = "individual"
	SubjectTeam       SubjectKind = "team"
)

// Subject is a scorable participant.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func (s Subject) String() string { return string(s.Kind) + ":" + s.ID }

// Individual and Team build subjects.
func Individual(id string) Subject { return Subject{Kind: SubjectIndividual, ID: id} }
func Team(id string) Subject       { return Subject{Kind: SubjectTeam, ID: id} }

// Counters tally tossup outcomes.
type Counters struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Powers    int `json:"powers"`
	Negs      int `json:"negs"`
}

// Add returns the element-wise sum.
func (c Counters) Add(o Counters) Counters {
	return Counters{
		Correct:   c.Correct + o.Correct,
		Incorrect: c.Incorrect + o.Incorrect,
		Powers:    c.Powers + o.Powers,
		Negs:      c.Negs + o.Negs,
	}
}

// ScoreRecord holds running totals for one (scope, subject, format).
type ScoreRecord struct {
	Scope       Scope            `json:"scope"`
	Subject     Subject          `json:"subject"`
	Format      Format           `json:"format"`
	RoundTotals map[int]int      `json:"round_totals"`
	Cumulative  int              `json:"cumulative_total"`
	Categories  map[Category]int `json:"categories,omitempty"`
	Counters    Counters         `json:"counters"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RoundTotal returns the total scored in the given round.
func (r ScoreRecord) RoundTotal(round int) int {
	return r.RoundTotals[round]
}

// Clone deep-copies the maps so snapshots can leave the ledger.
func (r ScoreRecord) Clone() ScoreRecord {
	out := r
	out.RoundTotals = make(map[int]int, len(r.RoundTotals))
	for k, v := range r.RoundTotals {
		out.RoundTotals[k] = v
	}
	if r.Categories != nil {
		out.Categories = make(map[Category]int, len(r.Categories))
		for k, v := range r.Categories {
			out.Categories[k] = v
		}
	}
	return out
}
