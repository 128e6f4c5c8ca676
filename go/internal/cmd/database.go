package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/dbconfig"
	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
	"github.com/rs/zerolog/log"
)

// setupPersistence connects to Postgres and prepares the schema.
func setupPersistence(ctx context.Context, config *Config) (*sql.DB, *scoring.Repository, *scoring.Persister, error) {
	dbCfg := dbconfig.NewConfigFromEnv()
	database, err := dbconfig.Open(ctx, dbCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := scoring.NewRepository(database)
	if err := repo.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")

	return database, repo, scoring.NewPersister(repo, config.Persistence.Workers, config.Persistence.Buffer), nil
}

// scopeLoader is the part of scoring.Repository used at startup.
type scopeLoader interface {
	LoadScope(ctx context.Context, kind models.ScopeKind, ids ...string) ([]models.ScoreRecord, error)
}

// restoreScores reloads the hall of fame and the scopes of the given live
// tournaments. Single-round scopes start empty.
func restoreScores(ctx context.Context, repo scopeLoader, ledger *scoring.Ledger, tournaments []string) error {
	records, err := repo.LoadScope(ctx, game.HallOfFameScope.Kind, game.HallOfFameScope.ID)
	if err != nil {
		return fmt.Errorf("failed to load hall of fame: %w", err)
	}
	ledger.Restore(records)
	log.Info().Int("records", len(records)).Msg("hall of fame restored")

	ids := make([]string, 0, len(tournaments))
	for _, id := range tournaments {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	records, err = repo.LoadScope(ctx, models.ScopeTournament, ids...)
	if err != nil {
		return fmt.Errorf("failed to load tournament scores: %w", err)
	}
	ledger.Restore(records)
	log.Info().
		Strs("tournaments", ids).
		Int("records", len(records)).
		Msg("tournament scores restored")
	return nil
}
