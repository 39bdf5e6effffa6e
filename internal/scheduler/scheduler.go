package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Loop drives a task on a fixed wall-clock cadence with drift correction: the
// next tick is computed from the schedule before the task runs, so task
// duration does not accumulate lag. A failing or panicking task is logged and
// followed by a full-interval cooldown; only context cancellation ends the
// loop.
type Loop struct {
	interval time.Duration
	logger   *zap.Logger

	timeNow func() time.Time
	sleep   func(ctx context.Context, d time.Duration) bool
}

func NewLoop(interval time.Duration, logger *zap.Logger) *Loop {
	return &Loop{
		interval: interval,
		logger:   logger,
		timeNow:  time.Now,
		sleep:    sleepCtx,
	}
}

func (l *Loop) Run(ctx context.Context, task func(context.Context) error) {
	if l.interval <= 0 {
		l.logger.Warn("Scheduler interval must be positive, loop not started", zap.Duration("interval", l.interval))
		return
	}

	l.logger.Info("Scheduler started", zap.Duration("interval", l.interval))
	next := l.timeNow().Add(l.interval)

	for {
		if ctx.Err() != nil {
			l.logger.Info("Scheduler stopped")
			return
		}

		err := l.runTask(ctx, task)
		now := l.timeNow()

		var wait time.Duration
		if err != nil {
			l.logger.Error("Cycle failed, cooling down", zap.Error(err))
			wait = l.interval
			next = now.Add(l.interval)
		} else {
			wait = next.Sub(now)
			if wait < 0 {
				wait = 0
			}
			// Overruns keep the original schedule; only reset once the
			// backlog grows beyond a full interval.
			next = next.Add(l.interval)
			if next.Before(now) {
				next = now.Add(l.interval)
			}
		}

		if !l.sleep(ctx, wait) {
			l.logger.Info("Scheduler stopped")
			return
		}
	}
}

func (l *Loop) runTask(ctx context.Context, task func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Cycle panicked", zap.Any("panic", r))
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return task(ctx)
}

// sleepCtx waits d or until ctx is done; returns false when cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
