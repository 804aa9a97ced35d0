// Package querylog records completed queries in a capped redis list.
// Everything here is best-effort: the query pipeline treats a lost entry as
// a warning, never as a failure.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

const logKey = "clauseinsight:querylog"

// store is the consumer interface for the query log (ISP).
type store interface {
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo implements the query logger over a redis list. Entries are pushed to
// the head, so Recent reads newest-first without sorting.
type Repo struct {
	store      store
	maxEntries int64
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a redis-backed query logger keeping at most maxEntries entries.
func New(s store, maxEntries int64, timeout time.Duration, logger *zap.Logger) *Repo {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Repo{store: s, maxEntries: maxEntries, timeout: timeout, logger: logger}
}

// Log appends one entry and trims the list to the retention cap. Failures
// come back wrapped in domain.ErrLoggingUnavailable so callers can suppress
// them as a class.
func (r *Repo) Log(ctx context.Context, entry domain.QueryLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.LPush(ctx, logKey, string(data)); err != nil {
		return fmt.Errorf("push log entry: %w: %w", domain.ErrLoggingUnavailable, err)
	}

	if err := r.store.LTrim(ctx, logKey, 0, r.maxEntries-1); err != nil {
		return fmt.Errorf("trim log: %w: %w", domain.ErrLoggingUnavailable, err)
	}

	return nil
}

// Recent returns up to n entries, newest first. Entries that no longer
// decode are skipped.
func (r *Repo) Recent(ctx context.Context, n int64) ([]domain.QueryLogEntry, error) {
	if n <= 0 {
		n = 10
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.store.LRange(ctx, logKey, 0, n-1)
	if err != nil {
		return nil, fmt.Errorf("read log: %w: %w", domain.ErrLoggingUnavailable, err)
	}

	entries := make([]domain.QueryLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.QueryLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			r.logger.Warn("skipping undecodable query log entry", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Count returns the total number of retained entries.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.store.LLen(ctx, logKey)
	if err != nil {
		return 0, fmt.Errorf("count log: %w: %w", domain.ErrLoggingUnavailable, err)
	}
	return n, nil
}

// Noop is the logger used when no query-log store is configured.
type Noop struct{}

// Log discards the entry.
func (Noop) Log(context.Context, domain.QueryLogEntry) error { return nil }

// Recent returns no entries.
func (Noop) Recent(context.Context, int64) ([]domain.QueryLogEntry, error) { return nil, nil }

// Count returns zero.
func (Noop) Count(context.Context) (int64, error) { return 0, nil }
