package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/tasklens/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// fakeEmbeddingServer answers /v1/embeddings with a deterministic vector per input.
func fakeEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": mock.DeterministicVector(text, 16),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"tasklens"}, args...))
	return out.String(), err
}

func findFlag[T cli.Flag](flags []cli.Flag, name string) T {
	var zero T
	for _, flag := range flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	return zero
}

func command(app *cli.App, name string) *cli.Command {
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("embedding-host has default value", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](command(app, "backfill").Flags, "embedding-host")
		require.NotNil(t, f)
		assert.Equal(t, "http://localhost:11434/v1", f.Value)
		assert.Contains(t, f.EnvVars, "TASKLENS_EMBEDDING_HOST")
	})

	t.Run("serve reads its config from the environment", func(t *testing.T) {
		serve := command(app, "serve")
		for _, name := range []string{"db", "postgres-dsn", "addr", "jwt-secret", "threshold", "max-results"} {
			flag := serve.Flags[0]
			for _, f := range serve.Flags {
				if f.Names()[0] == name {
					flag = f
				}
			}
			require.Equal(t, name, flag.Names()[0])
			env, ok := flag.(interface{ GetEnvVars() []string })
			require.True(t, ok)
			assert.NotEmpty(t, env.GetEnvVars(), name)
		}
	})

	t.Run("search requires a user", func(t *testing.T) {
		_, err := runApp(t, "search", "--db", t.TempDir(), "milk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user")
	})

	t.Run("a store is required", func(t *testing.T) {
		_, err := runApp(t, "search", "--user", "u1", "milk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--db")
	})
}

func TestSetupLogger(t *testing.T) {
	_, err := runApp(t, "--log-level", "verbose", "token", "--user", "u1", "--jwt-secret", "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = runApp(t, "--log-level", "DEBUG", "token", "--user", "u1", "--jwt-secret", "s")
	assert.NoError(t, err)
}

func TestBackfillCommandValidation(t *testing.T) {
	_, err := runApp(t, "backfill", "--db", t.TempDir(), "--max-retries", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-retries")
}

func TestTokenCommand(t *testing.T) {
	out, err := runApp(t, "token", "--user", "u1", "--jwt-secret", "secret")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "expected a JWS compact token")
}

func TestReadTitles(t *testing.T) {
	titles, err := readTitles(strings.NewReader("Buy milk\n\n  # groceries\n  Call mom  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk", "Call mom"}, titles)
}

func TestSeedBackfillSearch(t *testing.T) {
	srv := fakeEmbeddingServer(t)
	dbPath := filepath.Join(t.TempDir(), "db")
	seedFile := filepath.Join(t.TempDir(), "tasks.txt")
	require.NoError(t, os.WriteFile(seedFile, []byte("Buy milk\nWrite report\n"), 0644))

	common := []string{"--db", dbPath, "--embedding-host", srv.URL, "--embedding-model", "test-embed"}

	out, err := runApp(t, append(append([]string{"seed"}, common...), "--user", "u1", seedFile)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 tasks for u1")

	out, err = runApp(t, append([]string{"backfill"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 0 of 0 records")

	out, err = runApp(t, append(append([]string{"search"}, common...), "--user", "u1", "Buy milk")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "[1.000]")

	out, err = runApp(t, append(append([]string{"search"}, common...), "--user", "u2", "Buy milk")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No matches above threshold")
}
