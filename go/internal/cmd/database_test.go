package main

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
)

type fakeLoader struct {
	records map[models.Scope][]models.ScoreRecord
	calls   []models.ScopeKind
	err     error
}

func (f *fakeLoader) LoadScope(_ context.Context, kind models.ScopeKind, ids ...string) ([]models.ScoreRecord, error) {
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ScoreRecord
	for _, id := range ids {
		out = append(out, f.records[models.Scope{Kind: kind, ID: id}]...)
	}
	return out, nil
}

func stored(scope models.Scope, user string, total int) models.ScoreRecord {
	return models.ScoreRecord{
		Scope:       scope,
		Subject:     models.Individual(user),
		Format:      models.FormatNAQT,
		Cumulative:  total,
		RoundTotals: map[int]int{1: total},
	}
}

func TestRestoreScores(t *testing.T) {
	state := models.Scope{Kind: models.ScopeTournament, ID: "state-2024"}
	old := models.Scope{Kind: models.ScopeTournament, ID: "state-2019"}
	loader := &fakeLoader{records: map[models.Scope][]models.ScoreRecord{
		game.HallOfFameScope: {stored(game.HallOfFameScope, "alice", 120)},
		state:                {stored(state, "alice", 45)},
		old:                  {stored(old, "alice", 300)},
	}}
	ledger := scoring.NewLedger(nil)

	if err := restoreScores(context.Background(), loader, ledger, []string{" state-2024 ", ""}); err != nil {
		t.Fatal(err)
	}
	if rec, ok := ledger.Get(game.HallOfFameScope, models.Individual("alice"), models.FormatNAQT); !ok || rec.Cumulative != 120 {
		t.Errorf("hall of fame = %+v, %v", rec, ok)
	}
	if rec, ok := ledger.Get(state, models.Individual("alice"), models.FormatNAQT); !ok || rec.Cumulative != 45 {
		t.Errorf("tournament = %+v, %v", rec, ok)
	}
	if _, ok := ledger.Get(old, models.Individual("alice"), models.FormatNAQT); ok {
		t.Error("tournament not listed was restored")
	}
}

func TestRestoreScoresSkipsTournamentsWhenNoneListed(t *testing.T) {
	loader := &fakeLoader{}
	if err := restoreScores(context.Background(), loader, scoring.NewLedger(nil), nil); err != nil {
		t.Fatal(err)
	}
	if len(loader.calls) != 1 || loader.calls[0] != game.HallOfFameScope.Kind {
		t.Fatalf("calls = %v", loader.calls)
	}
}

func TestRestoreScoresPropagatesLoadError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("connection refused")}
	if err := restoreScores(context.Background(), loader, scoring.NewLedger(nil), []string{"t1"}); err == nil {
		t.Fatal("expected error")
	}
}
