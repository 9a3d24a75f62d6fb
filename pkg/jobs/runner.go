package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a named unit of periodic background work.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(context.Context) error
}

// Runner executes registered tasks on their own intervals, each in its own
// goroutine. A failing task is logged and retried on the next tick.
type Runner struct {
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []Task
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner builds an empty runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Register adds a task. Must be called before Start.
func (r *Runner) Register(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || task.Run == nil || task.Every <= 0 {
		return
	}
	r.tasks = append(r.tasks, task)
}

// Start launches one goroutine per registered task. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, task)
	}
	r.started = true
	r.logger.Sugar().Infow("maintenance runner started", "tasks", len(r.tasks))
}

// Stop cancels all tasks and waits for them to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("maintenance runner stopped")
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()
	ticker := time.NewTicker(task.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				r.logger.Sugar().Warnw("maintenance task failed", "task", task.Name, "error", err)
			}
		}
	}
}
