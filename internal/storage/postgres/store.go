package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yieldpilot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflow_journal (
	id          TEXT PRIMARY KEY,
	owner       TEXT NOT NULL,
	intent      TEXT NOT NULL,
	status      TEXT NOT NULL,
	chain       TEXT NOT NULL,
	protocol    TEXT NOT NULL,
	tx_hash     TEXT NOT NULL,
	reject_code TEXT NOT NULL,
	error       TEXT NOT NULL,
	result      JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS workflow_journal_owner_idx ON workflow_journal (owner, recorded_at DESC);
`

// Store provides Postgres persistence for the workflow journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, entry model.JournalEntry) error {
	return s.PutEntries(ctx, []model.JournalEntry{entry})
}

// PutEntries inserts entries. Replaying an id is a no-op.
func (s *Store) PutEntries(ctx context.Context, entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, entry := range entries {
		args, err := entryArgs(entry)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO workflow_journal (
				id, owner, intent, status, chain, protocol, tx_hash, reject_code, error, result, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING
		`, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns up to limit entries for owner, newest first.
func (s *Store) Recent(ctx context.Context, owner string, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, error, result, recorded_at
		FROM workflow_journal
		WHERE $1::text = '' OR owner = lower($1::text)
		ORDER BY recorded_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var (
			entry model.JournalEntry
			raw   []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Owner, &entry.Err, &raw, &entry.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &entry.Result); err != nil {
			return nil, fmt.Errorf("decode journal result %s: %w", entry.ID, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func entryArgs(entry model.JournalEntry) ([]interface{}, error) {
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal journal result: %w", err)
	}
	rejectCode := ""
	if entry.Result.Rejection != nil {
		rejectCode = entry.Result.Rejection.Code
	}
	return []interface{}{
		entry.ID,
		strings.ToLower(entry.Owner),
		string(entry.Result.Intent),
		string(entry.Result.Status),
		entry.Result.Chain.String(),
		entry.Result.Protocol,
		entry.Result.TxHash,
		rejectCode,
		entry.Err,
		result,
		entry.RecordedAt,
	}, nil
}
