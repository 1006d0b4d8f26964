// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/tasklens"
	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/api"
	"github.com/poiesic/tasklens/backfill"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/search"
	"github.com/poiesic/tasklens/tasks"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tasklens",
		Usage: "Semantic search over tasks and subtasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"TASKLENS_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8080",
						EnvVars: []string{"TASKLENS_ADDR"},
					},
					&cli.StringFlag{
						Name:    "jwt-secret",
						Usage:   "HS256 secret for bearer tokens (auth is off when empty)",
						EnvVars: []string{"TASKLENS_JWT_SECRET"},
					},
					&cli.StringSliceFlag{
						Name:    "cors-origin",
						Usage:   "Allowed CORS origin (repeatable)",
						Value:   cli.NewStringSlice("*"),
						EnvVars: []string{"TASKLENS_CORS_ORIGINS"},
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Usage:   "Minimum cosine similarity for search results",
						Value:   search.DefaultThreshold,
						EnvVars: []string{"TASKLENS_THRESHOLD"},
					},
					&cli.IntFlag{
						Name:    "max-results",
						Usage:   "Maximum number of search results",
						Value:   search.DefaultMaxResults,
						EnvVars: []string{"TASKLENS_MAX_RESULTS"},
					},
					&cli.BoolFlag{
						Name:    "tasks-only",
						Usage:   "Search tasks but not subtasks",
						EnvVars: []string{"TASKLENS_TASKS_ONLY"},
					},
				),
			},
			{
				Name:   "backfill",
				Usage:  "Embed every task and subtask that lacks a current embedding",
				Action: backfillCommand,
				Flags: append(databaseFlags(),
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of records embedded concurrently",
						Value: backfill.DefaultConfig().PoolSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 25,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum embedding attempts per record",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search a user's tasks",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User id to search as",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity for search results",
						Value: search.DefaultThreshold,
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of search results",
						Value: search.DefaultMaxResults,
					},
				),
			},
			{
				Name:      "seed",
				Usage:     "Create tasks from a file with one title per line",
				ArgsUsage: "<file|->",
				Action:    seedCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Owner of the new tasks",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "priority",
						Usage: "Priority of the new tasks (low, medium, high)",
						Value: string(core.PriorityMedium),
					},
				),
			},
			{
				Name:   "token",
				Usage:  "Issue a bearer token for a user",
				Action: tokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User id (token subject)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "jwt-secret",
						Usage:    "HS256 signing secret",
						Required: true,
						EnvVars:  []string{"TASKLENS_JWT_SECRET"},
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
			},
		},
	}
}

// databaseFlags are shared by every command that opens the store.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"TASKLENS_DB"},
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "PostgreSQL connection string (used instead of --db)",
			EnvVars: []string{"TASKLENS_POSTGRES_DSN"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"TASKLENS_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "nomic-embed-text",
			EnvVars: []string{"TASKLENS_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"TASKLENS_API_KEY", "OPENAI_API_KEY"},
		},
	}
}

func openDatabase(c *cli.Context) (*tasklens.Database, error) {
	dbPath := c.String("db")
	dsn := c.String("postgres-dsn")
	if dbPath == "" && dsn == "" {
		return nil, fmt.Errorf("one of --db or --postgres-dsn is required")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []tasklens.DatabaseOption{tasklens.WithAIConfig(aiConfig)}
	if dsn != "" {
		opts = append(opts, tasklens.WithPostgres(dsn))
	}
	db, err := tasklens.NewDatabase(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searchOpts := []search.Option{
		search.WithThreshold(c.Float64("threshold")),
		search.WithMaxResults(c.Int("max-results")),
	}
	if c.Bool("tasks-only") {
		searchOpts = append(searchOpts, search.WithKinds(core.KindTask))
	}
	searcher, err := db.NewSearcher(searchOpts...)
	if err != nil {
		return err
	}
	backfiller, err := db.NewBackfiller(nil)
	if err != nil {
		return err
	}
	svc, err := db.NewTaskService()
	if err != nil {
		return err
	}
	defer svc.Release()

	serverOpts := []api.Option{api.WithAllowedOrigins(c.StringSlice("cors-origin")...)}
	if secret := c.String("jwt-secret"); secret != "" {
		serverOpts = append(serverOpts, api.WithJWTSecret([]byte(secret)))
	}
	server, err := api.NewServer(searcher, backfiller, svc, serverOpts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr, "auth", c.String("jwt-secret") != "")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func backfillCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &backfill.Config{
		PoolSize:       c.Int("pool-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Normalize:      true,
		Kinds:          core.AllKinds,
	}
	if config.PoolSize <= 0 {
		return fmt.Errorf("pool-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	backfiller, err := db.NewBackfiller(config, backfill.WithProgress(os.Stderr))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	result, err := backfiller.Run(ctx)
	fmt.Fprintf(c.App.Writer, "Processed %d of %d records\n", result.Processed, result.Total)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(
		search.WithThreshold(c.Float64("threshold")),
		search.WithMaxResults(c.Int("max-results")),
	)
	if err != nil {
		return err
	}

	results, err := searcher.Search(c.Context, query, c.String("user"))
	if err != nil {
		return err
	}
	printResults(c.App.Writer, results)
	return nil
}

func printResults(w io.Writer, results []*core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matches above threshold")
		return
	}
	for i, r := range results {
		c := r.Candidate
		fmt.Fprintf(w, "%2d. [%.3f] %s (%s, %s) %s\n", i+1, r.Similarity, c.Title, c.Kind, c.Status, c.Id)
	}
}

func seedCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	priority := core.Priority(c.String("priority"))
	if err := core.ValidatePriority(priority); err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if name := c.Args().First(); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	titles, err := readTitles(in)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewTaskService(tasks.WithSyncEmbedding())
	if err != nil {
		return err
	}
	defer svc.Release()

	user := c.String("user")
	for _, title := range titles {
		if _, err := svc.CreateTask(c.Context, user, title, priority); err != nil {
			return fmt.Errorf("creating %q: %w", title, err)
		}
	}
	fmt.Fprintf(c.App.Writer, "Created %d tasks for %s\n", len(titles), user)
	return nil
}

// readTitles returns the non-blank lines of r. Lines starting with # are skipped.
func readTitles(r io.Reader) ([]string, error) {
	var titles []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		titles = append(titles, line)
	}
	return titles, scanner.Err()
}

func tokenCommand(c *cli.Context) error {
	token, err := api.NewToken([]byte(c.String("jwt-secret")), c.String("user"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
