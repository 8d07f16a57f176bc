package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunnerConfig configures the drain scheduler.
type RunnerConfig struct {
	// Interval between periodic drains.
	Interval time.Duration

	// BackoffMin/BackoffMax bound the retry delay after an aborted run.
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval:   15 * time.Minute,
		BackoffMin: 30 * time.Second,
		BackoffMax: 10 * time.Minute,
	}
}

// Runner schedules drain runs: periodically, and immediately on Kick (a
// connectivity recovery, a fresh enqueue, a spooled image).
//
// All triggers funnel through one mutex, so at most one drain executes at a
// time no matter how many sources fire. A trigger arriving mid-drain is
// coalesced into the pending kick rather than queued.
type Runner struct {
	worker *Worker
	config RunnerConfig
	logger *zap.Logger

	kick chan struct{}
	mu   sync.Mutex
}

// NewRunner creates a Runner. A zero-valued config field falls back to the
// default.
func NewRunner(w *Worker, config RunnerConfig, logger *zap.Logger) *Runner {
	def := DefaultRunnerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BackoffMin <= 0 {
		config.BackoffMin = def.BackoffMin
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = def.BackoffMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		worker: w,
		config: config,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
}

// Kick requests an immediate drain. Non-blocking; kicks arriving while one
// is already pending are coalesced.
func (r *Runner) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Start runs the scheduler until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	backoff := r.config.BackoffMin

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
		case <-r.kick:
		}

		res := r.drain(ctx)
		if res.Retry {
			r.logger.Info("drain deferred", zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.config.BackoffMax {
				backoff = r.config.BackoffMax
			}
			r.Kick()
			continue
		}
		backoff = r.config.BackoffMin
	}
}

// RunNow drains synchronously, for one-shot CLI use.
func (r *Runner) RunNow(ctx context.Context) Result {
	return r.drain(ctx)
}

func (r *Runner) drain(ctx context.Context) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res, err := r.worker.RunOnce(ctx)
	if err != nil {
		r.logger.Error("drain run failed", zap.Error(err))
		res.Retry = true
	}

	if res.Synced > 0 || res.DeadLettered > 0 || res.Dropped > 0 || res.Failed > 0 {
		r.logger.Info("drain run complete",
			zap.Int("synced", res.Synced),
			zap.Int("dead_lettered", res.DeadLettered),
			zap.Int("dropped", res.Dropped),
			zap.Int("failed", res.Failed),
			zap.Bool("retry", res.Retry),
			zap.Duration("took", time.Since(start)),
		)
	}
	r.worker.emit(Event{Type: EventRunComplete, Result: &res})
	return res
}
