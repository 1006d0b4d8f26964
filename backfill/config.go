package backfill

import (
	"runtime"
	"slices"
	"time"

	"github.com/poiesic/tasklens/core"
)

// Config holds configuration for embedding backfill.
type Config struct {
	// PoolSize is the number of records embedded concurrently
	PoolSize int

	// MaxRetries is the maximum number of embedding attempts per record
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// Normalize scales embeddings to unit length before they are stored
	Normalize bool

	// Kinds selects which record kinds are backfilled
	Kinds []core.Kind
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &Config{
		PoolSize:       poolSize,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
		ReportInterval: 25,
		Normalize:      true,
		Kinds:          slices.Clone(core.AllKinds),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.PoolSize < 1 {
		out.PoolSize = d.PoolSize
	}
	if out.MaxRetries < 1 {
		out.MaxRetries = d.MaxRetries
	}
	if out.RetryDelay < 0 {
		out.RetryDelay = d.RetryDelay
	}
	if out.ReportInterval < 1 {
		out.ReportInterval = d.ReportInterval
	}
	if len(out.Kinds) == 0 {
		out.Kinds = d.Kinds
	}
	return &out
}
