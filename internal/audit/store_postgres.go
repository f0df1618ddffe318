package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const createTable = `
CREATE TABLE IF NOT EXISTS wizard_audit_events (
	id           UUID PRIMARY KEY,
	action       TEXT NOT NULL,
	session_id   TEXT NOT NULL,
	role         TEXT,
	subject_hash TEXT,
	step         TEXT,
	code         TEXT,
	detail       TEXT,
	client       TEXT,
	request_id   TEXT,
	occurred_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore appends events to wizard_audit_events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the events table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

// Append is idempotent on event id.
func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	query := `
		INSERT INTO wizard_audit_events
			(id, action, session_id, role, subject_hash, step, code, detail, client, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.Action), e.SessionID, e.Role, e.SubjectHash,
		e.Step, e.Code, e.Detail, e.Client, e.RequestID, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// CountBySession returns how many events a session produced.
func (s *PostgresStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM wizard_audit_events WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}
