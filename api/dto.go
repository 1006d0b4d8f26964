package api

import (
	"time"

	"github.com/poiesic/tasklens/core"
)

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type searchResult struct {
	ID           core.ID       `json:"id"`
	Kind         core.Kind     `json:"kind"`
	ParentTaskID core.ID       `json:"parent_task_id,omitempty"`
	Title        string        `json:"title"`
	Priority     core.Priority `json:"priority,omitempty"`
	Status       core.Status   `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Similarity   float64       `json:"similarity"`
}

type searchResponse struct {
	Tasks []searchResult `json:"tasks"`
}

type backfillResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

type embedRequest struct {
	Kind core.Kind `json:"kind"`
	ID   core.ID   `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type taskRequest struct {
	Title    *string        `json:"title"`
	Status   *core.Status   `json:"status"`
	Priority *core.Priority `json:"priority"`
}

type subtaskRequest struct {
	Title  *string      `json:"title"`
	Status *core.Status `json:"status"`
}

type taskResponse struct {
	ID        core.ID       `json:"id"`
	UserID    string        `json:"user_id"`
	Title     string        `json:"title"`
	Priority  core.Priority `json:"priority"`
	Status    core.Status   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Embedded  bool          `json:"embedded"`
}

type subtaskResponse struct {
	ID           core.ID     `json:"id"`
	ParentTaskID core.ID     `json:"parent_task_id"`
	UserID       string      `json:"user_id"`
	Title        string      `json:"title"`
	Status       core.Status `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Embedded     bool        `json:"embedded"`
}

func toSearchResults(results []*core.SearchResult) []searchResult {
	out := make([]searchResult, 0, len(results))
	for _, r := range results {
		c := r.Candidate
		out = append(out, searchResult{
			ID:           c.Id,
			Kind:         c.Kind,
			ParentTaskID: c.ParentId,
			Title:        c.Title,
			Priority:     c.Priority,
			Status:       c.Status,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			Similarity:   r.Similarity,
		})
	}
	return out
}

func toTaskResponse(t *core.Task) taskResponse {
	return taskResponse{
		ID:        t.Id,
		UserID:    t.OwnerId,
		Title:     t.Title,
		Priority:  t.Priority,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Embedded:  t.HasFreshEmbedding(),
	}
}

func toSubtaskResponse(s *core.Subtask) subtaskResponse {
	return subtaskResponse{
		ID:           s.Id,
		ParentTaskID: s.ParentId,
		UserID:       s.OwnerId,
		Title:        s.Title,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Embedded:     s.HasFreshEmbedding(),
	}
}
