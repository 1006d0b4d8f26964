// Package postgres implements the storage interfaces on PostgreSQL with the
// pgvector extension. Similarity ranking runs inside the database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/poiesic/tasklens/storage"
)

// titleHashSQL is the SQL spelling of core.HashContent.
const titleHashSQL = "encode(sha256(convert_to(title, 'UTF8')), 'hex')"

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS tasks (
	id           uuid PRIMARY KEY,
	user_id      text NOT NULL,
	title        text NOT NULL,
	priority     text NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	status       text NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'done')),
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now(),
	embedding    vector,
	content_hash text
);

CREATE INDEX IF NOT EXISTS tasks_user_created_idx ON tasks (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS subtasks (
	id             uuid PRIMARY KEY,
	parent_task_id uuid NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
	user_id        text NOT NULL,
	title          text NOT NULL,
	status         text NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'done')),
	created_at     timestamptz NOT NULL DEFAULT now(),
	updated_at     timestamptz NOT NULL DEFAULT now(),
	embedding      vector,
	content_hash   text
);

CREATE INDEX IF NOT EXISTS subtasks_parent_created_idx ON subtasks (parent_task_id, created_at);
CREATE INDEX IF NOT EXISTS subtasks_user_idx ON subtasks (user_id);
`

// PostgreSQL error codes mapped onto storage errors.
const (
	codeUniqueViolation         = "23505"
	codeForeignKeyViolation     = "23503"
	codeInvalidTextRepresenting = "22P02"
)

// Store implements storage.Store and storage.VectorSearcher on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.VectorSearcher = (*Store)(nil)
)

// Open connects to PostgreSQL using a lib/pq connection string and verifies
// the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// NewStore wraps an open database handle. Closing the store closes db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "postgres"),
	}
}

// EnsureSchema creates the vector extension, tables and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.logger.Debug("schema ready")
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit())
}

// mapError translates driver errors into storage errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeForeignKeyViolation, codeInvalidTextRepresenting:
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pqErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pqErr.Message)
		}
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
