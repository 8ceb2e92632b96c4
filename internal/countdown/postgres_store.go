package countdown

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps the countdown in the countdown_state table created by
// the migrations.
type PostgresStore struct {
	db db
}

func NewPostgresStore(pool db) *PostgresStore {
	if pool == nil {
		panic("countdown: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM countdown_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("countdown: select failed: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO countdown_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("countdown: upsert failed: %w", err)
	}
	return nil
}
