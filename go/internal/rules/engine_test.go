package rules

import (
	"testing"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

func mustParse(t *testing.T, doc string) *Schema {
	t.Helper()
	s, err := Parse("schema.yaml", []byte(doc))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

func TestPointsForTossupPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		power      bool
		wantPoints int
		wantSource PointSource
	}{
		{
			name: "power wins when requested",
			doc: `format: NAQT
sections:
  Gameplay:
    tossup_points: {power: 15, regular: 10}`,
			power:      true,
			wantPoints: 15,
			wantSource: SourcePower,
		},
		{
			name: "regular without power flag",
			doc: `format: NAQT
sections:
  Gameplay:
    tossup_points: {power: 15, regular: 10}`,
			power:      false,
			wantPoints: 10,
			wantSource: SourceRegular,
		},
		{
			name: "power requested but not configured falls to regular",
			doc: `format: OSSAA
sections:
  Gameplay:
    tossup_points: {regular: 10}`,
			power:      true,
			wantPoints: 10,
			wantSource: SourceRegular,
		},
		{
			name: "quarter default when no tossup points",
			doc: `format: FROSHMORE
sections:
  Tournaments:
    single_round_mode:
      quarters:
        first_quarter: {points_each: 20}`,
			power:      true,
			wantPoints: 20,
			wantSource: SourceQuarterDefault,
		},
		{
			name: "regular beats quarter default",
			doc: `format: FROSHMORE
sections:
  Gameplay:
    tossup_points: {regular: 7}
  Tournaments:
    single_round_mode:
      quarters:
        first_quarter: {points_each: 20}`,
			wantPoints: 7,
			wantSource: SourceRegular,
		},
		{
			name:       "baseline when nothing is configured",
			doc:        "format: TRIVIA\n",
			wantPoints: BaselineTossupPoints,
			wantSource: SourceBaseline,
		},
		{
			name: "zero values count as unset",
			doc: `format: NAQT
sections:
  Gameplay:
    tossup_points: {power: 0, regular: 0}`,
			power:      true,
			wantPoints: BaselineTossupPoints,
			wantSource: SourceBaseline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(mustParse(t, tt.doc))
			pts, src := e.TossupPointsSource(TossupState{Power: tt.power})
			if pts != tt.wantPoints || src != tt.wantSource {
				t.Errorf("got (%d, %s), want (%d, %s)", pts, src, tt.wantPoints, tt.wantSource)
			}
			if got := e.PointsForTossup(TossupState{Power: tt.power}); got != tt.wantPoints {
				t.Errorf("PointsForTossup = %d, want %d", got, tt.wantPoints)
			}
		})
	}
}

func TestNegPenalty(t *testing.T) {
	tests := []struct {
		doc  string
		want int
	}{
		{"format: NAQT\n", -5},
		{"format: OSSAA\n", -5},
		{"format: FROSHMORE\n", 0},
		{"format: TRIVIA\n", 0},
		{"format: NAQT\nsections:\n  Gameplay:\n    neg_penalty: 0\n", 0},
		{"format: FROSHMORE\nsections:\n  Gameplay:\n    neg_penalty: -2\n", -2},
	}
	for _, tt := range tests {
		if got := NewEngine(mustParse(t, tt.doc)).NegPenalty(); got != tt.want {
			t.Errorf("NegPenalty(%q) = %d, want %d", tt.doc, got, tt.want)
		}
	}
}

func TestPointsForBonus(t *testing.T) {
	tests := []struct {
		doc  string
		want int
	}{
		{"format: NAQT\nsections:\n  Gameplay:\n    bonus_points: {each: 20}\n", 20},
		{"format: NAQT\n", 10},
		{"format: TRIVIA\n", 0},
		{`format: FROSHMORE
sections:
  Tournaments:
    single_round_mode:
      quarters:
        first_quarter: {points_each: 10, bonus: {points_each: 30}}
`, 30},
	}
	for _, tt := range tests {
		if got := NewEngine(mustParse(t, tt.doc)).PointsForBonus(); got != tt.want {
			t.Errorf("PointsForBonus(%q) = %d, want %d", tt.doc, got, tt.want)
		}
	}
}

func TestTimerSeconds(t *testing.T) {
	tests := []struct {
		doc   string
		event string
		want  int
	}{
		{"format: NAQT\nsections:\n  Gameplay:\n    timers: {tossup: 8}\n", "tossup", 8},
		{"format: OSSAA\n", "sixty_second", 60},
		{"format: OSSAA\n", "tossup", 5},
		{"format: TRIVIA\n", "tossup", 10},
		{"format: FROSHMORE\n", "bonus", 5},
		{"format: TRIVIA\n", "unheard_of", DefaultTimerSeconds},
	}
	for _, tt := range tests {
		if got := NewEngine(mustParse(t, tt.doc)).TimerSeconds(tt.event); got != tt.want {
			t.Errorf("TimerSeconds(%s) for %q = %d, want %d", tt.event, tt.doc, got, tt.want)
		}
	}
}

func TestTiebreakerMessage(t *testing.T) {
	withText := mustParse(t, "format: OSSAA\nsections:\n  Gameplay:\n    tiebreaker_procedure: Toss a coin\n")
	if got := NewEngine(withText).TiebreakerMessage(); got != "Toss a coin" {
		t.Errorf("schema text not used: %q", got)
	}
	blank := mustParse(t, "format: OSSAA\nsections:\n  Gameplay:\n    tiebreaker_procedure: '   '\n")
	if got := NewEngine(blank).TiebreakerMessage(); got != "OSSAA sudden-death tossups until a clear winner." {
		t.Errorf("blank text should fall back to the OSSAA default, got %q", got)
	}
	if got := NewEngine(mustParse(t, "format: NAQT\n")).TiebreakerMessage(); got != genericTiebreakerMessage {
		t.Errorf("NAQT default = %q", got)
	}
}

func TestTiebreakerDue(t *testing.T) {
	ossaa := NewEngine(mustParse(t, "format: OSSAA\n"))
	for round, want := range map[int]bool{1: false, 3: false, 4: true, 5: true} {
		if got := ossaa.TiebreakerDue(round); got != want {
			t.Errorf("OSSAA round %d: got %v, want %v", round, got, want)
		}
	}
	naqt := NewEngine(mustParse(t, "format: NAQT\n"))
	if !naqt.TiebreakerDue(1) {
		t.Error("NAQT should check ties at every round end")
	}
	custom := NewEngine(mustParse(t, "format: NAQT\nsections:\n  Gameplay:\n    tiebreaker: {boundary: final_round, final_round: 2}\n"))
	if custom.TiebreakerDue(1) || !custom.TiebreakerDue(2) {
		t.Error("schema boundary should override the format default")
	}
}

func TestCapabilities(t *testing.T) {
	naqt := NewEngine(mustParse(t, "format: NAQT\nsections:\n  Gameplay:\n    tossup_points: {power: 15, regular: 10}\n"))
	if !naqt.SupportsPower() {
		t.Error("NAQT with power value should support power")
	}
	if naqt.HasTimedLightningRound() {
		t.Error("NAQT has no lightning round")
	}

	ossaa := NewEngine(mustParse(t, "format: OSSAA\nsections:\n  Questions:\n    bonus:\n      sixty_second_round: {rounds: 1}\n"))
	if ossaa.SupportsPower() {
		t.Error("OSSAA without power value should not support power")
	}
	if !ossaa.HasTimedLightningRound() {
		t.Error("sixty_second_round presence should be detected")
	}

	trivia := NewEngine(mustParse(t, "format: TRIVIA\nsections:\n  Gameplay:\n    sixty_second_round: true\n"))
	if !trivia.HasTimedLightningRound() {
		t.Error("gameplay flag should be detected")
	}
}

func TestCategoryWeight(t *testing.T) {
	e := NewEngine(mustParse(t, "format: TRIVIA\nsections:\n  Questions:\n    categories: {history: 3}\n"))
	if got := e.CategoryWeight(models.CategoryHistory); got != 3 {
		t.Errorf("history weight = %d, want 3", got)
	}
	if got := e.CategoryWeight(models.CategoryArt); got != DefaultCategoryWeight {
		t.Errorf("art weight = %d, want default", got)
	}
	if !e.HasCategory(models.CategoryHistory) || e.HasCategory(models.CategoryArt) {
		t.Error("HasCategory disagrees with the table")
	}
}
