package postgres

import (
	"context"
	"database/sql"
	"math"
	"slices"

	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// GetCandidates returns the owner's embedded records of the requested kinds.
func (s *Store) GetCandidates(ctx context.Context, ownerID string, kinds []core.Kind) ([]*core.Candidate, error) {
	if err := checkScope(ownerID, kinds); err != nil {
		return nil, err
	}

	var results []*core.Candidate
	if slices.Contains(kinds, core.KindTask) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND embedding IS NOT NULL ORDER BY created_at DESC, id ASC`, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		tasks, err := collectTasks(rows)
		if err != nil {
			return nil, mapError(err)
		}
		for _, task := range tasks {
			results = append(results, task.Candidate())
		}
	}
	if slices.Contains(kinds, core.KindSubtask) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+subtaskColumns+` FROM subtasks WHERE user_id = $1 AND embedding IS NOT NULL ORDER BY created_at ASC, id ASC`, ownerID)
		if err != nil {
			return nil, mapError(err)
		}
		subs, err := collectSubtasks(rows)
		if err != nil {
			return nil, mapError(err)
		}
		for _, sub := range subs {
			results = append(results, sub.Candidate())
		}
	}
	return results, nil
}

// findSimilarSQL ranks both kinds in one statement. Rows whose embedding
// dimension differs from the query, or whose hash no longer matches the
// title, are filtered before scoring; NaN scores from zero vectors are
// dropped after.
const findSimilarSQL = `
WITH q AS (SELECT $2::vector AS v)
SELECT kind, id, parent_id, user_id, title, priority, status, created_at, updated_at, similarity
FROM (
	SELECT 'task' AS kind, t.id::text AS id, '' AS parent_id, t.user_id, t.title, t.priority, t.status,
	       t.created_at, t.updated_at, 1 - (t.embedding <=> q.v) AS similarity
	FROM tasks t, q
	WHERE $5 AND t.user_id = $1 AND t.embedding IS NOT NULL
	  AND vector_dims(t.embedding) = vector_dims(q.v)
	  AND t.content_hash = encode(sha256(convert_to(t.title, 'UTF8')), 'hex')
	UNION ALL
	SELECT 'subtask', s.id::text, s.parent_task_id::text, s.user_id, s.title, '', s.status,
	       s.created_at, s.updated_at, 1 - (s.embedding <=> q.v)
	FROM subtasks s, q
	WHERE $6 AND s.user_id = $1 AND s.embedding IS NOT NULL
	  AND vector_dims(s.embedding) = vector_dims(q.v)
	  AND s.content_hash = encode(sha256(convert_to(s.title, 'UTF8')), 'hex')
) ranked
WHERE similarity <> 'NaN'::float8 AND similarity >= $3
ORDER BY similarity DESC, updated_at DESC, id ASC
LIMIT $4`

// FindSimilar ranks the owner's fresh records against vector inside the database.
func (s *Store) FindSimilar(ctx context.Context, ownerID string, kinds []core.Kind, vector []float32, minSimilarity float64, limit int) ([]*core.SearchResult, error) {
	if err := checkScope(ownerID, kinds); err != nil {
		return nil, err
	}
	results := []*core.SearchResult{}
	if !hasNorm(vector) {
		return results, nil
	}

	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, findSimilarSQL,
		ownerID, vectorLiteral(vector), minSimilarity, lim,
		slices.Contains(kinds, core.KindTask), slices.Contains(kinds, core.KindSubtask))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                core.Candidate
			kind, id, parent string
			priority, status string
			similarity       float64
		)
		if err := rows.Scan(&kind, &id, &parent, &c.OwnerId, &c.Title, &priority, &status, &c.CreatedAt, &c.UpdatedAt, &similarity); err != nil {
			return nil, mapError(err)
		}
		c.Kind = core.Kind(kind)
		c.Id = core.ID(id)
		c.ParentId = core.ID(parent)
		c.Priority = core.Priority(priority)
		c.Status = core.Status(status)
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		results = append(results, &core.SearchResult{Candidate: &c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return results, nil
}

func checkScope(ownerID string, kinds []core.Kind) error {
	if ownerID == "" {
		return storage.ErrInvalidQuery
	}
	for _, k := range kinds {
		if err := core.ValidateKind(k); err != nil {
			return err
		}
	}
	return nil
}

func hasNorm(v []float32) bool {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return sum > 0 && !math.IsInf(sum, 0) && !math.IsNaN(sum)
}
