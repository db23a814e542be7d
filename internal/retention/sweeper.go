// Package retention prunes call and message logs past the configured
// retention horizon.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database"
)

// minSweepSpacing is the minimum time between effective sweeps. A sweep
// requested sooner than this after the last successful one is a no-op,
// which tolerates a misconfigured scheduler firing redundantly.
const minSweepSpacing = 60 * time.Second

// Sweeper deletes expired call and message logs. Sweeps are idempotent:
// with no new data, a second sweep deletes nothing.
type Sweeper struct {
	calls    database.CallLogRepository
	messages database.MessageLogRepository
	horizon  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	lastSweep time.Time
	// nowFunc allows overriding the current time for testing.
	nowFunc func() time.Time
}

// NewSweeper creates a retention sweeper with the given horizon.
func NewSweeper(calls database.CallLogRepository, messages database.MessageLogRepository, horizon time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		calls:    calls,
		messages: messages,
		horizon:  horizon,
		logger:   logger.With("component", "retention"),
		nowFunc:  time.Now,
	}
}

// Sweep deletes all rows older than now minus the retention horizon and
// returns the number of rows deleted. It returns (0, nil) without
// touching storage when invoked within the minimum spacing of the last
// successful sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	s.mu.Lock()
	now := s.nowFunc()
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < minSweepSpacing {
		s.mu.Unlock()
		s.logger.Debug("sweep skipped, within minimum spacing", "last_sweep", s.lastSweep)
		return 0, nil
	}
	s.mu.Unlock()

	cutoff := now.Add(-s.horizon)

	callsDeleted, err := s.calls.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping call logs: %w", err)
	}
	msgsDeleted, err := s.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return callsDeleted, fmt.Errorf("sweeping message logs: %w", err)
	}

	s.mu.Lock()
	s.lastSweep = now
	s.mu.Unlock()

	total := callsDeleted + msgsDeleted
	if total > 0 {
		s.logger.Info("retention sweep complete",
			"cutoff", cutoff,
			"calls_deleted", callsDeleted,
			"messages_deleted", msgsDeleted,
		)
	}
	return total, nil
}
