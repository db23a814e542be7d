// Package scheduler drives the gateway's periodic background tasks.
// Each task is registered exactly once at process start and runs on its
// own fixed interval; ticks of the same task never overlap, while
// distinct tasks run independently of each other.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is one periodic unit of work. Run receives a context bounded by
// Timeout (when non-zero); a returned error marks the tick failed but
// the task is retried unconditionally on its next interval.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler owns the background tasks of the process. Register tasks
// before Start; registration after Start is rejected.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	names   map[string]bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		names:  make(map[string]bool),
	}
}

// Register adds a task. Each task name may be registered only once,
// which replaces any need for an "already scheduled" guard at call sites.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if t.Interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive", t.Name)
	}
	if t.Run == nil {
		return fmt.Errorf("task %q: run function is required", t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("task %q: cannot register after start", t.Name)
	}
	if s.names[t.Name] {
		return fmt.Errorf("task %q: already registered", t.Name)
	}
	s.names[t.Name] = true
	s.tasks = append(s.tasks, t)
	return nil
}

// Start launches one goroutine per registered task. The goroutines stop
// when the provided context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	tasks := s.tasks
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.runLoop(runCtx, t)
	}

	s.logger.Info("scheduler started", "tasks", len(tasks))
}

// Stop cancels all task loops and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// runLoop drives one task. Ticks are serialized by the loop itself, so
// a slow tick delays the next one rather than overlapping it.
func (s *Scheduler) runLoop(ctx context.Context, t Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

// runOnce executes a single tick with the task's timeout. Errors are
// logged and swallowed; a failed tick must never take down the scheduler.
func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	tickCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := t.Run(tickCtx); err != nil {
		s.logger.Error("task tick failed",
			"task", t.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	s.logger.Debug("task tick complete",
		"task", t.Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
