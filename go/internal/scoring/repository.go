package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/scoring/db"
	"github.com/mcdev12/quizbowl/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Repository stores score records in Postgres. Writes are latest-wins on
// updated_at so out-of-order batches never roll a record back.
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		db:      conn,
		queries: db.New(conn),
	}
}

// EnsureSchema creates the score_records table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if err := r.queries.CreateScoreRecordsTable(ctx); err != nil {
		return fmt.Errorf("failed to create score_records table: %w", err)
	}
	return nil
}

// SaveBatch upserts records in a single transaction.
func (r *Repository) SaveBatch(ctx context.Context, records []models.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	params := make([]db.UpsertScoreRecordParams, 0, len(records))
	for _, rec := range records {
		p, err := toParams(rec)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *db.Queries { return r.queries.WithTx(tx) }, func(q *db.Queries) error {
		for _, p := range params {
			if err := q.UpsertScoreRecord(ctx, p); err != nil {
				return fmt.Errorf("failed to upsert score record %s/%s: %w", p.ScopeID, p.SubjectID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save score batch: %w", err)
	}
	return nil
}

// LoadScope reads every record stored for the given scope ids.
func (r *Repository) LoadScope(ctx context.Context, kind models.ScopeKind, ids ...string) ([]models.ScoreRecord, error) {
	rows, err := r.queries.ListScoreRecordsByScope(ctx, db.ListScoreRecordsByScopeParams{
		ScopeKind: string(kind),
		ScopeIDs:  ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list score records: %w", err)
	}

	out := make([]models.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.dbRecordToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toParams(rec models.ScoreRecord) (db.UpsertScoreRecordParams, error) {
	rounds, err := json.Marshal(rec.RoundTotals)
	if err != nil {
		return db.UpsertScoreRecordParams{}, fmt.Errorf("failed to marshal round totals: %w", err)
	}
	var categories pqtype.NullRawMessage
	if len(rec.Categories) > 0 {
		raw, err := json.Marshal(rec.Categories)
		if err != nil {
			return db.UpsertScoreRecordParams{}, fmt.Errorf("failed to marshal categories: %w", err)
		}
		categories = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return db.UpsertScoreRecordParams{
		ScopeKind:       string(rec.Scope.Kind),
		ScopeID:         rec.Scope.ID,
		SubjectKind:     string(rec.Subject.Kind),
		SubjectID:       rec.Subject.ID,
		Format:          string(rec.Format),
		CumulativeTotal: int32(rec.Cumulative),
		RoundTotals:     rounds,
		Categories:      categories,
		Correct:         int32(rec.Counters.Correct),
		Incorrect:       int32(rec.Counters.Incorrect),
		Powers:          int32(rec.Counters.Powers),
		Negs:            int32(rec.Counters.Negs),
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

func (r *Repository) dbRecordToModel(row db.ScoreRecord) (models.ScoreRecord, error) {
	rec := models.ScoreRecord{
		Scope:      models.Scope{Kind: models.ScopeKind(row.ScopeKind), ID: row.ScopeID},
		Subject:    models.Subject{Kind: models.SubjectKind(row.SubjectKind), ID: row.SubjectID},
		Format:     models.Format(row.Format),
		Cumulative: int(row.CumulativeTotal),
		Counters: models.Counters{
			Correct:   int(row.Correct),
			Incorrect: int(row.Incorrect),
			Powers:    int(row.Powers),
			Negs:      int(row.Negs),
		},
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.RoundTotals, &rec.RoundTotals); err != nil {
		return models.ScoreRecord{}, fmt.Errorf("failed to unmarshal round totals: %w", err)
	}
	if row.Categories.Valid {
		if err := json.Unmarshal(row.Categories.RawMessage, &rec.Categories); err != nil {
			return models.ScoreRecord{}, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
	}
	return rec, nil
}
