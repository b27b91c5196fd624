package aimerge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"memstore/internal/conflict"
	"memstore/internal/resolve"
)

const (
	// DefaultMaxRetries is the number of retries after the initial
	// attempt.
	DefaultMaxRetries = 2
	// DefaultTimeout bounds each individual backend attempt.
	DefaultTimeout = 30 * time.Second
)

// Config tunes a Merger.
type Config struct {
	Hint       Hint
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the default merger configuration.
func DefaultConfig() Config {
	return Config{
		Hint:       SmartMerge,
		MaxRetries: DefaultMaxRetries,
		Timeout:    DefaultTimeout,
	}
}

// Merger resolves conflicts by asking a completion backend for a merged
// value. Each Merge call owns its retry state exclusively; a Merger is
// safe for concurrent use as long as its backend is.
type Merger struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

// NewMerger creates a merger over backend. A nil backend is valid and
// makes every merge fall back to keeping the local value. Out-of-range
// config fields are replaced with defaults.
func NewMerger(backend Backend, cfg Config) *Merger {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Merger{
		backend: backend,
		cfg:     cfg,
		logger:  slog.Default(),
	}
}

// Merge produces a resolution outcome for cs. On backend success the
// outcome is Merged; on an absent backend or exhausted retries it is the
// same outcome KeepLocal would produce, with the last error logged as a
// warning rather than propagated. The only returned error is the
// empty-remote usage error.
func (m *Merger) Merge(ctx context.Context, cs conflict.ConflictSet) (resolve.Outcome, error) {
	if len(cs.Remotes) == 0 {
		return resolve.Outcome{}, resolve.ErrNoRemoteVersions
	}

	if m.backend == nil || !m.backend.Available() {
		m.logger.Warn("ai merge degraded to keep-local: backend unavailable",
			"key", cs.Key)
		return resolve.KeepLocal(cs)
	}

	prompt := BuildPrompt(cs, m.cfg.Hint)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		attempts++
		raw, err := m.complete(ctx, prompt)
		if err == nil {
			return resolve.Outcome{
				Key:         cs.Key,
				Value:       ParseResponse(raw),
				Disposition: resolve.Merged,
			}, nil
		}
		lastErr = err

		// The caller gave up; retrying past its cancellation would leak
		// work it no longer wants.
		if ctx.Err() != nil {
			break
		}
	}

	m.logger.Warn("ai merge degraded to keep-local",
		"key", cs.Key,
		"attempts", attempts,
		"error", lastErr)
	return resolve.KeepLocal(cs)
}

// complete runs one backend attempt under the per-attempt timeout.
func (m *Merger) complete(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	raw, err := m.backend.Complete(attemptCtx, prompt)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrBackendTimeout) {
			return "", errors.Join(ErrBackendTimeout, err)
		}
		return "", err
	}
	return raw, nil
}
