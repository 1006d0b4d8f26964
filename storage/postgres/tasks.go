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

const taskColumns = "id::text, user_id, title, priority, status, created_at, updated_at, embedding::text, content_hash"

func scanTask(row rowScanner) (*core.Task, error) {
	var (
		task      core.Task
		id        string
		priority  string
		status    string
		embedding sql.NullString
		hash      sql.NullString
	)
	if err := row.Scan(&id, &task.OwnerId, &task.Title, &priority, &status, &task.CreatedAt, &task.UpdatedAt, &embedding, &hash); err != nil {
		return nil, err
	}
	vector, err := nullVector(embedding)
	if err != nil {
		return nil, err
	}
	task.Id = core.ID(id)
	task.Priority = core.Priority(priority)
	task.Status = core.Status(status)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	task.Embedding = vector
	task.ContentHash = hash.String
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*core.Task, error) {
	defer rows.Close()
	var tasks []*core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// AddTasks adds one or more tasks to storage.
func (s *Store) AddTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, task := range tasks {
			if task.Id == "" {
				task.Id = core.ID(uuid.NewString())
			}
			if task.CreatedAt.IsZero() {
				task.CreatedAt = now
			}
			task.CreatedAt = task.CreatedAt.UTC().Truncate(time.Microsecond)
			task.UpdatedAt = task.CreatedAt

			_, err := tx.ExecContext(ctx,
				`INSERT INTO tasks (id, user_id, title, priority, status, created_at, updated_at, embedding, content_hash)
				 VALUES ($1, $2, $3, $4, $5, $6, $6, $7::vector, $8)`,
				string(task.Id), task.OwnerId, task.Title, string(task.Priority), string(task.Status), task.CreatedAt,
				nullableVector(task.Embedding), nullableString(task.ContentHash))
			if err != nil {
				return err
			}
		}
		return nil
	})
	return tasks, err
}

// UpdateTasks updates the editable fields of existing tasks.
func (s *Store) UpdateTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, task := range tasks {
			row := tx.QueryRowContext(ctx,
				`UPDATE tasks SET title = $2, priority = $3, status = $4, updated_at = $5
				 WHERE id = $1
				 RETURNING `+taskColumns,
				string(task.Id), task.Title, string(task.Priority), string(task.Status), now)
			updated, err := scanTask(row)
			if err != nil {
				return err
			}
			*task = *updated
		}
		return nil
	})
	return tasks, err
}

// DeleteTasks removes tasks; subtasks go with them through ON DELETE CASCADE.
func (s *Store) DeleteTasks(ctx context.Context, ids ...core.ID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ANY($1::uuid[])`, pq.Array(idStrings(ids)))
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

// GetTask retrieves a single task by ID.
func (s *Store) GetTask(ctx context.Context, id core.ID) (*core.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, string(id))
	task, err := scanTask(row)
	if err != nil {
		return nil, mapError(err)
	}
	return task, nil
}

// GetTasksByOwner returns the owner's tasks, newest first.
func (s *Store) GetTasksByOwner(ctx context.Context, ownerID string) ([]*core.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	tasks, err := collectTasks(rows)
	return tasks, mapError(err)
}

// GetStaleTasks returns tasks whose embedding is missing or stale, oldest first.
func (s *Store) GetStaleTasks(ctx context.Context) ([]*core.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE embedding IS NULL OR content_hash IS NULL OR content_hash <> `+titleHashSQL+`
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	tasks, err := collectTasks(rows)
	return tasks, mapError(err)
}

// SetTaskEmbedding stores vector and hash if hash still matches the task's title.
// The title check happens in the UPDATE itself, so a concurrent title edit
// either commits first and fails the check or waits on the row lock.
func (s *Store) SetTaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error {
	return s.setEmbedding(ctx, "tasks", id, vector, hash)
}

func (s *Store) setEmbedding(ctx context.Context, table string, id core.ID, vector []float32, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET embedding = $2::vector, content_hash = $3
		 WHERE id = $1 AND `+titleHashSQL+` = $3`,
		string(id), vectorLiteral(vector), hash)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrContentChanged
}

func nullableVector(v []float32) sql.NullString {
	if len(v) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: vectorLiteral(v), Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func idStrings(ids []core.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func countUnique(ids []core.ID) int {
	seen := make(map[core.ID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
