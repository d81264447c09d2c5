package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessment records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, rec *Record) error {
	warningsJSON, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, route_id, from_token, to_token, from_chain, to_chain, overall_score, risk_level, warnings, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID,
		rec.RouteID,
		rec.FromToken,
		rec.ToToken,
		rec.FromChain,
		rec.ToChain,
		rec.Overall,
		string(rec.Level),
		warningsJSON,
		rec.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, route_id, from_token, to_token, from_chain, to_chain, overall_score, risk_level, warnings, assessed_at
		FROM assessments
		ORDER BY assessed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		var r Record
		var warningsJSON []byte
		var assessedAt time.Time

		if err := rows.Scan(&r.ID, &r.RouteID, &r.FromToken, &r.ToToken, &r.FromChain, &r.ToChain, &r.Overall, &r.Level, &warningsJSON, &assessedAt); err != nil {
			continue
		}
		r.AssessedAt = assessedAt
		_ = json.Unmarshal(warningsJSON, &r.Warnings)
		result = append(result, &r)
	}
	return result, nil
}
