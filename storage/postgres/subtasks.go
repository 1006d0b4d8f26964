package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

const subtaskColumns = "id::text, parent_task_id::text, user_id, title, status, created_at, updated_at, embedding::text, content_hash"

func scanSubtask(row rowScanner) (*core.Subtask, error) {
	var (
		sub       core.Subtask
		id        string
		parent    string
		status    string
		embedding sql.NullString
		hash      sql.NullString
	)
	if err := row.Scan(&id, &parent, &sub.OwnerId, &sub.Title, &status, &sub.CreatedAt, &sub.UpdatedAt, &embedding, &hash); err != nil {
		return nil, err
	}
	vector, err := nullVector(embedding)
	if err != nil {
		return nil, err
	}
	sub.Id = core.ID(id)
	sub.ParentId = core.ID(parent)
	sub.Status = core.Status(status)
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	sub.Embedding = vector
	sub.ContentHash = hash.String
	return &sub, nil
}

func collectSubtasks(rows *sql.Rows) ([]*core.Subtask, error) {
	defer rows.Close()
	var subs []*core.Subtask
	for rows.Next() {
		sub, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// AddSubtasks adds one or more subtasks. A missing parent violates the
// foreign key and surfaces as storage.ErrNotFound.
func (s *Store) AddSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, sub := range subtasks {
			if sub.Id == "" {
				sub.Id = core.ID(uuid.NewString())
			}
			if sub.CreatedAt.IsZero() {
				sub.CreatedAt = now
			}
			sub.CreatedAt = sub.CreatedAt.UTC().Truncate(time.Microsecond)
			sub.UpdatedAt = sub.CreatedAt

			_, err := tx.ExecContext(ctx,
				`INSERT INTO subtasks (id, parent_task_id, user_id, title, status, created_at, updated_at, embedding, content_hash)
				 VALUES ($1, $2, $3, $4, $5, $6, $6, $7::vector, $8)`,
				string(sub.Id), string(sub.ParentId), sub.OwnerId, sub.Title, string(sub.Status), sub.CreatedAt,
				nullableVector(sub.Embedding), nullableString(sub.ContentHash))
			if err != nil {
				return err
			}
		}
		return nil
	})
	return subtasks, err
}

// UpdateSubtasks updates the editable fields of existing subtasks.
func (s *Store) UpdateSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, sub := range subtasks {
			row := tx.QueryRowContext(ctx,
				`UPDATE subtasks SET title = $2, status = $3, updated_at = $4
				 WHERE id = $1
				 RETURNING `+subtaskColumns,
				string(sub.Id), sub.Title, string(sub.Status), now)
			updated, err := scanSubtask(row)
			if err != nil {
				return err
			}
			*sub = *updated
		}
		return nil
	})
	return subtasks, err
}

// DeleteSubtasks removes subtasks by their IDs.
func (s *Store) DeleteSubtasks(ctx context.Context, ids ...core.ID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ANY($1::uuid[])`, pq.Array(idStrings(ids)))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != int64(countUnique(ids)) {
			return storage.ErrNotFound
		}
		return nil
	})
}

// GetSubtask retrieves a single subtask by ID.
func (s *Store) GetSubtask(ctx context.Context, id core.ID) (*core.Subtask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = $1`, string(id))
	sub, err := scanSubtask(row)
	if err != nil {
		return nil, mapError(err)
	}
	return sub, nil
}

// GetSubtasksByParent returns the subtasks of a task, oldest first.
func (s *Store) GetSubtasksByParent(ctx context.Context, parentID core.ID) ([]*core.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE parent_task_id = $1 ORDER BY created_at ASC, id ASC`, string(parentID))
	if err != nil {
		return nil, mapError(err)
	}
	subs, err := collectSubtasks(rows)
	return subs, mapError(err)
}

// GetSubtasksByOwner returns the owner's subtasks, oldest first.
func (s *Store) GetSubtasksByOwner(ctx context.Context, ownerID string) ([]*core.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	subs, err := collectSubtasks(rows)
	return subs, mapError(err)
}

// GetStaleSubtasks returns subtasks whose embedding is missing or stale, oldest first.
func (s *Store) GetStaleSubtasks(ctx context.Context) ([]*core.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks
		 WHERE embedding IS NULL OR content_hash IS NULL OR content_hash <> `+titleHashSQL+`
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	subs, err := collectSubtasks(rows)
	return subs, mapError(err)
}

// SetSubtaskEmbedding stores vector and hash if hash still matches the subtask's title.
func (s *Store) SetSubtaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error {
	return s.setEmbedding(ctx, "subtasks", id, vector, hash)
}
