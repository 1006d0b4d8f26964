package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poiesic/tasklens/backfill"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/tasks"
	"github.com/rs/cors"
)

// Searcher runs owner-scoped semantic searches.
type Searcher interface {
	Search(ctx context.Context, query, userID string) ([]*core.SearchResult, error)
}

// Backfiller embeds every record that lacks a current embedding.
type Backfiller interface {
	Run(ctx context.Context) (backfill.Result, error)
}

// Server serves the task search HTTP API.
type Server struct {
	searcher   Searcher
	backfiller Backfiller
	tasks      *tasks.Service
	secret     []byte
	origins    []string
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithJWTSecret turns on bearer-token auth. Tokens must be HS256 signed
// with secret and carry the user id as their subject.
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) error {
		s.secret = secret
		return nil
	}
}

// WithAllowedOrigins sets the CORS origins. Default is any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) error {
		if len(origins) > 0 {
			s.origins = origins
		}
		return nil
	}
}

// NewServer creates a new API server.
func NewServer(searcher Searcher, backfiller Backfiller, svc *tasks.Service, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if backfiller == nil {
		return nil, ErrBackfillerRequired
	}
	if svc == nil {
		return nil, ErrTaskServiceRequired
	}

	s := &Server{
		searcher:   searcher,
		backfiller: backfiller,
		tasks:      svc,
		origins:    []string{"*"},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")
	return s, nil
}

// Router returns the route table without CORS handling.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.recoveryMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	if len(s.secret) > 0 {
		apiRouter.Use(s.authMiddleware)
	}

	apiRouter.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	apiRouter.HandleFunc("/backfill", s.handleBackfill).Methods(http.MethodPost)
	apiRouter.HandleFunc("/embeddings", s.handleEmbed).Methods(http.MethodPost)

	apiRouter.HandleFunc("/users/{userId}/tasks", s.handleListTasks).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userId}/tasks", s.handleCreateTask).Methods(http.MethodPost)
	apiRouter.HandleFunc("/users/{userId}/tasks/{taskId}", s.handleUpdateTask).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/users/{userId}/tasks/{taskId}", s.handleDeleteTask).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/users/{userId}/tasks/{taskId}/subtasks", s.handleListSubtasks).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userId}/tasks/{taskId}/subtasks", s.handleCreateSubtask).Methods(http.MethodPost)
	apiRouter.HandleFunc("/users/{userId}/subtasks/{subtaskId}", s.handleUpdateSubtask).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/users/{userId}/subtasks/{subtaskId}", s.handleDeleteSubtask).Methods(http.MethodDelete)

	return router
}

// Handler returns the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.Router())
}

// fail logs err and writes the matching error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		message = "internal server error"
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, message)
}
