package rules

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Schema is the typed rules document for one format. It is immutable after
// Parse returns and is shared read-only by every room of that format.
type Schema struct {
	Format   models.Format `json:"format" yaml:"format"`
	Sections Sections      `json:"sections" yaml:"sections"`

	categories map[models.Category]int
}

type Sections struct {
	Gameplay     Gameplay     `json:"Gameplay" yaml:"Gameplay"`
	Questions    Questions    `json:"Questions" yaml:"Questions"`
	Tournaments  Tournaments  `json:"Tournaments" yaml:"Tournaments"`
	Participants Participants `json:"Participants" yaml:"Participants"`
}

type Gameplay struct {
	TossupPoints        TossupPoints   `json:"tossup_points" yaml:"tossup_points"`
	BonusPoints         BonusPoints    `json:"bonus_points" yaml:"bonus_points"`
	NegPenalty          *int           `json:"neg_penalty" yaml:"neg_penalty"`
	Timers              map[string]int `json:"timers" yaml:"timers"`
	TiebreakerProcedure string         `json:"tiebreaker_procedure" yaml:"tiebreaker_procedure"`
	Tiebreaker          TiebreakerRule `json:"tiebreaker" yaml:"tiebreaker"`
	SixtySecondRound    bool           `json:"sixty_second_round" yaml:"sixty_second_round"`
}

type TossupPoints struct {
	Power   *int `json:"power" yaml:"power"`
	Regular *int `json:"regular" yaml:"regular"`
}

type BonusPoints struct {
	Each *int `json:"each" yaml:"each"`
}

// Boundary says at which round ends a tie triggers sudden death.
type Boundary string

const (
	BoundaryEveryRound Boundary = "every_round"
	BoundaryFinalRound Boundary = "final_round"
)

type TiebreakerRule struct {
	Boundary   Boundary `json:"boundary" yaml:"boundary"`
	FinalRound int      `json:"final_round" yaml:"final_round"`
}

type Questions struct {
	Categories       map[string]int `json:"categories" yaml:"categories"`
	SixtySecondRound any            `json:"sixty_second_round" yaml:"sixty_second_round"`
	LightningRound   any            `json:"lightning_round" yaml:"lightning_round"`
	Bonus            struct {
		SixtySecondRound any `json:"sixty_second_round" yaml:"sixty_second_round"`
	} `json:"bonus" yaml:"bonus"`
}

type Tournaments struct {
	SingleRoundMode struct {
		Quarters Quarters `json:"quarters" yaml:"quarters"`
	} `json:"single_round_mode" yaml:"single_round_mode"`
}

type Quarters struct {
	FirstQuarter  *Quarter `json:"first_quarter" yaml:"first_quarter"`
	SecondQuarter *Quarter `json:"second_quarter" yaml:"second_quarter"`
	ThirdQuarter  *Quarter `json:"third_quarter" yaml:"third_quarter"`
	FourthQuarter *Quarter `json:"fourth_quarter" yaml:"fourth_quarter"`
}

type Quarter struct {
	PointsEach *int `json:"points_each" yaml:"points_each"`
	Bonus      *struct {
		PointsEach *int `json:"points_each" yaml:"points_each"`
	} `json:"bonus" yaml:"bonus"`
}

type Participants struct {
	Team struct {
		MaxActivePlayers int  `json:"max_active_players" yaml:"max_active_players"`
		MinActivePlayers int  `json:"min_active_players" yaml:"min_active_players"`
		RosterLimit      int  `json:"roster_limit" yaml:"roster_limit"`
		CaptainRequired  bool `json:"captain_required" yaml:"captain_required"`
	} `json:"team" yaml:"team"`
}

// Parse decodes a schema document. name selects the decoder by extension
// (.json, .yaml, .yml). The result is validated before it is returned.
func Parse(name string, data []byte) (*Schema, error) {
	var s Schema
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, configErr("", fmt.Sprintf("parse %s", name), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, configErr("", fmt.Sprintf("parse %s", name), err)
		}
	default:
		return nil, configErr("", fmt.Sprintf("unsupported schema file %s", name), nil)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	format, err := models.ParseFormat(string(s.Format))
	if err != nil {
		return configErr(s.Format, "format", err)
	}
	s.Format = format
	g := s.Sections.Gameplay

	for name, v := range map[string]*int{
		"tossup_points.power":   g.TossupPoints.Power,
		"tossup_points.regular": g.TossupPoints.Regular,
		"bonus_points.each":     g.BonusPoints.Each,
	} {
		if v != nil && *v < 0 {
			return configErr(format, fmt.Sprintf("%s must not be negative, got %d", name, *v), nil)
		}
	}
	if g.NegPenalty != nil && *g.NegPenalty > 0 {
		return configErr(format, fmt.Sprintf("neg_penalty must be zero or negative, got %d", *g.NegPenalty), nil)
	}
	for event, secs := range g.Timers {
		if secs <= 0 {
			return configErr(format, fmt.Sprintf("timer %q must be positive, got %d", event, secs), nil)
		}
	}
	switch g.Tiebreaker.Boundary {
	case "", BoundaryEveryRound:
	case BoundaryFinalRound:
		if g.Tiebreaker.FinalRound < 0 {
			return configErr(format, "tiebreaker.final_round must not be negative", nil)
		}
	default:
		return configErr(format, fmt.Sprintf("unknown tiebreaker boundary %q", g.Tiebreaker.Boundary), nil)
	}

	s.categories = make(map[models.Category]int, len(s.Sections.Questions.Categories))
	for name, weight := range s.Sections.Questions.Categories {
		c, err := models.ParseCategory(name)
		if err != nil {
			return configErr(format, "questions.categories", err)
		}
		if weight < 0 {
			return configErr(format, fmt.Sprintf("category %q weight must not be negative", name), nil)
		}
		s.categories[c] = weight
	}
	return nil
}

// Categories returns a copy of the validated category table.
func (s *Schema) Categories() map[models.Category]int {
	out := make(map[models.Category]int, len(s.categories))
	for k, v := range s.categories {
		out[k] = v
	}
	return out
}

func (s *Schema) firstQuarter() *Quarter {
	return s.Sections.Tournaments.SingleRoundMode.Quarters.FirstQuarter
}
