package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the selection tables. Safe to call on every start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS slate_selections (
	selection_id    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id      TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL,
	candidate_count INTEGER NOT NULL,
	selected        BOOLEAN NOT NULL,
	chosen_index    INTEGER NOT NULL DEFAULT -1,
	welfare         DOUBLE PRECISION,
	penalized       BOOLEAN NOT NULL DEFAULT FALSE,
	outcome         JSONB,
	utilities       JSONB,
	frontier        JSONB,
	duration_ms     DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_slate_selections_created_at ON slate_selections(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_slate_selections_request_id ON slate_selections(request_id);
`

const selectionColumns = `selection_id, request_id, source, candidate_count,
	selected, chosen_index, welfare, penalized,
	outcome, utilities, frontier,
	duration_ms, created_at`

func (s *PostgresStore) CreateSelection(ctx context.Context, sel *Selection) error {
	outcomeJSON, err := json.Marshal(sel.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	utilitiesJSON, err := json.Marshal(sel.Utilities)
	if err != nil {
		return fmt.Errorf("encode utilities: %w", err)
	}
	frontierJSON, err := json.Marshal(sel.Frontier)
	if err != nil {
		return fmt.Errorf("encode frontier: %w", err)
	}
	if sel.ID == uuid.Nil {
		sel.ID = uuid.New()
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO slate_selections (selection_id, request_id, source, candidate_count,
			selected, chosen_index, welfare, penalized,
			outcome, utilities, frontier, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		sel.ID, sel.RequestID, sel.Source, sel.CandidateCount,
		sel.Selected, sel.ChosenIndex, sel.Welfare, sel.Penalized,
		outcomeJSON, utilitiesJSON, frontierJSON, sel.DurationMs,
	).Scan(&sel.CreatedAt)
}

func (s *PostgresStore) GetSelection(ctx context.Context, id uuid.UUID) (*Selection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectionColumns+`
		FROM slate_selections WHERE selection_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sels, err := scanSelections(rows)
	if err != nil {
		return nil, err
	}
	if len(sels) == 0 {
		return nil, nil
	}
	return sels[0], nil
}

func (s *PostgresStore) ListSelections(ctx context.Context, filter SelectionFilter) ([]*Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM slate_selections WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Source != "" {
		n++
		query += fmt.Sprintf(" AND source = $%d", n)
		args = append(args, filter.Source)
	}
	if filter.Selected != nil {
		n++
		query += fmt.Sprintf(" AND selected = $%d", n)
		args = append(args, *filter.Selected)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSelections(rows)
}

func (s *PostgresStore) GetStats(ctx context.Context) (*SelectionStats, error) {
	stats := &SelectionStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN selected THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT selected THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN selected AND penalized THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(welfare) FILTER (WHERE selected), 0)
		FROM slate_selections`,
	).Scan(&stats.Total, &stats.Selected, &stats.Empty, &stats.Penalized, &stats.AvgWelfare)
	return stats, err
}

func scanSelections(rows pgx.Rows) ([]*Selection, error) {
	var sels []*Selection
	for rows.Next() {
		sel := &Selection{}
		var outcomeJSON, utilitiesJSON, frontierJSON []byte
		if err := rows.Scan(
			&sel.ID, &sel.RequestID, &sel.Source, &sel.CandidateCount,
			&sel.Selected, &sel.ChosenIndex, &sel.Welfare, &sel.Penalized,
			&outcomeJSON, &utilitiesJSON, &frontierJSON,
			&sel.DurationMs, &sel.CreatedAt,
		); err != nil {
			return nil, err
		}
		if outcomeJSON != nil {
			_ = json.Unmarshal(outcomeJSON, &sel.Outcome)
		}
		if utilitiesJSON != nil {
			_ = json.Unmarshal(utilitiesJSON, &sel.Utilities)
		}
		if frontierJSON != nil {
			_ = json.Unmarshal(frontierJSON, &sel.Frontier)
		}
		sels = append(sels, sel)
	}
	return sels, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
