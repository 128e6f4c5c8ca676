package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

type ScoreRecord struct {
	ScopeKind       string
	ScopeID         string
	SubjectKind     string
	SubjectID       string
	Format          string
	CumulativeTotal int32
	RoundTotals     json.RawMessage
	Categories      pqtype.NullRawMessage
	Correct         int32
	Incorrect       int32
	Powers          int32
	Negs            int32
	UpdatedAt       time.Time
}

const createScoreRecordsTable = `-- name: CreateScoreRecordsTable :exec
CREATE TABLE IF NOT EXISTS score_records (
    scope_kind       TEXT        NOT NULL,
    scope_id         TEXT        NOT NULL,
    subject_kind     TEXT        NOT NULL,
    subject_id       TEXT        NOT NULL,
    format           TEXT        NOT NULL,
    cumulative_total INTEGER     NOT NULL DEFAULT 0,
    round_totals     JSONB       NOT NULL DEFAULT '{}'::jsonb,
    categories       JSONB,
    correct          INTEGER     NOT NULL DEFAULT 0,
    incorrect        INTEGER     NOT NULL DEFAULT 0,
    powers           INTEGER     NOT NULL DEFAULT 0,
    negs             INTEGER     NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (scope_kind, scope_id, subject_kind, subject_id, format)
)
`

func (q *Queries) CreateScoreRecordsTable(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, createScoreRecordsTable)
	return err
}

const upsertScoreRecord = `-- name: UpsertScoreRecord :exec
INSERT INTO score_records (
    scope_kind, scope_id, subject_kind, subject_id, format,
    cumulative_total, round_totals, categories,
    correct, incorrect, powers, negs, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
ON CONFLICT (scope_kind, scope_id, subject_kind, subject_id, format) DO UPDATE SET
    cumulative_total = EXCLUDED.cumulative_total,
    round_totals     = EXCLUDED.round_totals,
    categories       = EXCLUDED.categories,
    correct          = EXCLUDED.correct,
    incorrect        = EXCLUDED.incorrect,
    powers           = EXCLUDED.powers,
    negs             = EXCLUDED.negs,
    updated_at       = EXCLUDED.updated_at
WHERE score_records.updated_at <= EXCLUDED.updated_at
`

type UpsertScoreRecordParams struct {
	ScopeKind       string
	ScopeID         string
	SubjectKind     string
	SubjectID       string
	Format          string
	CumulativeTotal int32
	RoundTotals     json.RawMessage
	Categories      pqtype.NullRawMessage
	Correct         int32
	Incorrect       int32
	Powers          int32
	Negs            int32
	UpdatedAt       time.Time
}

func (q *Queries) UpsertScoreRecord(ctx context.Context, arg UpsertScoreRecordParams) error {
	_, err := q.db.ExecContext(ctx, upsertScoreRecord,
		arg.ScopeKind,
		arg.ScopeID,
		arg.SubjectKind,
		arg.SubjectID,
		arg.Format,
		arg.CumulativeTotal,
		arg.RoundTotals,
		arg.Categories,
		arg.Correct,
		arg.Incorrect,
		arg.Powers,
		arg.Negs,
		arg.UpdatedAt,
	)
	return err
}

const listScoreRecordsByScope = `-- name: ListScoreRecordsByScope :many
SELECT scope_kind, scope_id, subject_kind, subject_id, format,
       cumulative_total, round_totals, categories,
       correct, incorrect, powers, negs, updated_at
FROM score_records
WHERE scope_kind = $1 AND scope_id = ANY($2::text[])
ORDER BY cumulative_total DESC, subject_id
`

type ListScoreRecordsByScopeParams struct {
	ScopeKind string
	ScopeIDs  []string
}

func (q *Queries) ListScoreRecordsByScope(ctx context.Context, arg ListScoreRecordsByScopeParams) ([]ScoreRecord, error) {
	rows, err := q.db.QueryContext(ctx, listScoreRecordsByScope, arg.ScopeKind, pq.Array(arg.ScopeIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoreRecord
	for rows.Next() {
		var i ScoreRecord
		if err := rows.Scan(
			&i.ScopeKind,
			&i.ScopeID,
			&i.SubjectKind,
			&i.SubjectID,
			&i.Format,
			&i.CumulativeTotal,
			&i.RoundTotals,
			&i.Categories,
			&i.Correct,
			&i.Incorrect,
			&i.Powers,
			&i.Negs,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
