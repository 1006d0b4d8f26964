package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poiesic/tasklens/backfill"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/tasks"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleSearch handles POST /api/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.UserID != "" {
		if err := authorize(r.Context(), req.UserID); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	results, err := s.searcher.Search(r.Context(), req.Query, req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Tasks: toSearchResults(results)})
}

// handleBackfill handles POST /api/backfill
//
// Only a failure to list stale records is reported; per-record failures
// show up as processed < total.
func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	result, err := s.backfiller.Run(r.Context())
	if err != nil && errors.Is(err, backfill.ErrListing) {
		s.fail(w, r, err)
		return
	}
	if err != nil {
		s.logger.Warn("backfill ended early", "err", err, "processed", result.Processed, "total", result.Total)
	}

	message := "No tasks or subtasks need embeddings"
	if result.Total > 0 {
		message = fmt.Sprintf("Processed %d of %d items", result.Processed, result.Total)
	}
	writeJSON(w, http.StatusOK, backfillResponse{
		Message:   message,
		Processed: result.Processed,
		Total:     result.Total,
	})
}

// handleEmbed handles POST /api/embeddings
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ref := core.RecordRef{Kind: req.Kind, Id: req.ID}

	// With auth on, callers may only embed their own records.
	if owner, ok := principal(r.Context()); ok {
		var err error
		switch ref.Kind {
		case core.KindTask:
			_, err = s.tasks.GetTask(r.Context(), owner, ref.Id)
		case core.KindSubtask:
			_, err = s.tasks.GetSubtask(r.Context(), owner, ref.Id)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	if err := s.tasks.EmbedRecord(r.Context(), ref); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Embedding generated successfully"})
}

// userFromPath returns the {userId} path variable after checking it
// against the authenticated user.
func userFromPath(r *http.Request) (string, error) {
	userID := mux.Vars(r)["userId"]
	if err := authorize(r.Context(), userID); err != nil {
		return "", err
	}
	return userID, nil
}

// handleListTasks handles GET /api/users/{userId}/tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.tasks.ListTasks(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateTask handles POST /api/users/{userId}/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var title string
	if req.Title != nil {
		title = *req.Title
	}
	var priority core.Priority
	if req.Priority != nil {
		priority = *req.Priority
	}

	task, err := s.tasks.CreateTask(r.Context(), userID, title, priority)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// handleUpdateTask handles PATCH /api/users/{userId}/tasks/{taskId}
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	patch := tasks.TaskPatch{Title: req.Title, Status: req.Status, Priority: req.Priority}
	task, err := s.tasks.UpdateTask(r.Context(), userID, core.ID(mux.Vars(r)["taskId"]), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// handleDeleteTask handles DELETE /api/users/{userId}/tasks/{taskId}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.tasks.DeleteTask(r.Context(), userID, core.ID(mux.Vars(r)["taskId"])); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListSubtasks handles GET /api/users/{userId}/tasks/{taskId}/subtasks
func (s *Server) handleListSubtasks(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.tasks.ListSubtasks(r.Context(), userID, core.ID(mux.Vars(r)["taskId"]))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]subtaskResponse, 0, len(list))
	for _, sub := range list {
		out = append(out, toSubtaskResponse(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateSubtask handles POST /api/users/{userId}/tasks/{taskId}/subtasks
func (s *Server) handleCreateSubtask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req subtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var title string
	if req.Title != nil {
		title = *req.Title
	}

	sub, err := s.tasks.CreateSubtask(r.Context(), userID, core.ID(mux.Vars(r)["taskId"]), title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubtaskResponse(sub))
}

// handleUpdateSubtask handles PATCH /api/users/{userId}/subtasks/{subtaskId}
func (s *Server) handleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req subtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	patch := tasks.SubtaskPatch{Title: req.Title, Status: req.Status}
	sub, err := s.tasks.UpdateSubtask(r.Context(), userID, core.ID(mux.Vars(r)["subtaskId"]), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubtaskResponse(sub))
}

// handleDeleteSubtask handles DELETE /api/users/{userId}/subtasks/{subtaskId}
func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.tasks.DeleteSubtask(r.Context(), userID, core.ID(mux.Vars(r)["subtaskId"])); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
