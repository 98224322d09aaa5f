package workers

import (
	"context"
	"time"

	"github.com/viney-shih/goroutines"
	"go.uber.org/zap"
)

const (
	scheduleTimeout = 3 * time.Second
	taskTimeout     = 10 * time.Second
)

// Pool runs fire-and-forget side effects (notifications, fulfillment) off
// the request path. A task that cannot be queued is logged and dropped;
// callers never observe the failure.
type Pool struct {
	p *goroutines.Pool
}

func New(size int) *Pool {
	if size <= 0 {
		size = 8
	}
	return &Pool{
		p: goroutines.NewPool(size,
			goroutines.WithTaskQueueLength(size*64),
			goroutines.WithPreAllocWorkers(max(1, size/4)),
		),
	}
}

// Go schedules fn with a fresh context bounded by taskTimeout; the request
// context is usually gone by the time fn runs.
func (w *Pool) Go(name string, fn func(ctx context.Context)) {
	err := w.p.ScheduleWithTimeout(scheduleTimeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("workers.task_panic", zap.String("task", name), zap.Any("panic", r))
			}
		}()
		fn(ctx)
	})
	if err != nil {
		zap.L().Error("workers.schedule_failed", zap.String("task", name), zap.Error(err))
	}
}

func (w *Pool) Close() {
	w.p.Release()
}
