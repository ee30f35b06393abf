package transcript

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists call transcripts in PostgreSQL. Saving replaces the
// call's rows in one transaction so each save is idempotent per call.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS call_transcripts (
			call_sid TEXT NOT NULL,
			position INT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (call_sid, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_transcripts_saved ON call_transcripts (saved_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, callSID string, entries []Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM call_transcripts WHERE call_sid=$1`, callSID); err != nil {
		return fmt.Errorf("clear previous transcript: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO call_transcripts (call_sid, position, question, answer) VALUES ($1, $2, $3, $4)`,
			callSID, i+1, e.Question, e.Answer,
		); err != nil {
			return fmt.Errorf("insert transcript row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transcript: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, callSID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question, answer FROM call_transcripts WHERE call_sid=$1 ORDER BY position`,
		callSID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Question, &e.Answer); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript rows: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
