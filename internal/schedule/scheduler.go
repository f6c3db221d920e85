package schedule

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
	"go.uber.org/zap"
)

// Job is the work triggered on every matching minute.
type Job func(ctx context.Context)

// Scheduler fires a job once per wall-clock minute matched by a cron expression.
// Missed minutes are never backfilled.
type Scheduler struct {
	expr      *Expression
	job       Job
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
	lastFired time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	jobs      sync.WaitGroup
}

// New creates a scheduler for the given expression. A malformed expression is
// logged and yields a disabled scheduler whose Start does nothing.
func New(expr string, job Job, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		job:    job,
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}

	parsed, err := Parse(expr)
	if err != nil {
		s.logger.Warn("Schedule not started due to invalid expression",
			zap.String("expression", expr),
			zap.Error(err))
		return s
	}

	s.expr = parsed

	return s
}

// Enabled reports whether the expression parsed successfully.
func (s *Scheduler) Enabled() bool {
	return s.expr != nil
}

// Expression returns the parsed expression, or nil when disabled.
func (s *Scheduler) Expression() *Expression {
	return s.expr
}

// Start launches the timer loop in the background.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Schedule started", zap.String("expression", s.expr.String()))

	go s.loop(loopCtx)
}

// Stop ends the timer loop. Jobs already running are left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Wait blocks until every job started so far has returned.
func (s *Scheduler) Wait() {
	s.jobs.Wait()
}

// loop aligns to second 0 and then evaluates every minute.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	now := s.now()
	if now.Second() != 0 {
		if utils.ContextSleepUntil(ctx, utils.NextMinute(now)) == utils.SleepCancelled {
			return
		}
	}

	for {
		s.Tick(ctx, s.now())

		if utils.ContextSleepUntilWithLog(ctx, utils.NextMinute(s.now()), s.logger,
			"Context cancelled, stopping schedule") == utils.SleepCancelled {
			return
		}
	}
}

// Tick evaluates the expression at now and starts the job in a detached
// goroutine when it matches. A minute fires at most once. Returns whether the job started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	if !s.Enabled() || !s.expr.Match(now) {
		return false
	}

	minute := now.Truncate(time.Minute)

	s.mu.Lock()
	if minute.Equal(s.lastFired) {
		s.mu.Unlock()
		return false
	}
	s.lastFired = minute
	s.mu.Unlock()

	s.logger.Info("Running scheduled job",
		zap.String("expression", s.expr.String()),
		zap.Time("minute", minute))

	s.jobs.Add(1)

	go s.run(context.WithoutCancel(ctx))

	return true
}

// run executes the job and contains any panic it raises.
func (s *Scheduler) run(ctx context.Context) {
	defer s.jobs.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	s.job(ctx)
}
