package allocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
	"leadrouter/internal/ports"
)

// Runner consumes allocation tasks with a pool of workers and settles each
// delivery according to the attempt's Outcome. No ordering is assumed across
// appeal ids; Allocate's idempotency guard covers duplicate deliveries.
type Runner struct {
	service *Service
	queue   ports.TaskQueue
	workers int
}

func NewRunner(service *Service, queue ports.TaskQueue, workers int) *Runner {
	if workers <= 0 {
		workers = DefaultConfig().Workers
	}
	return &Runner{
		service: service,
		queue:   queue,
		workers: workers,
	}
}

// Run blocks until ctx is done, then waits for in-flight attempts to settle.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "allocation.runner"))
	logging.Info(logCtx, "allocation worker pool starting", slog.Int("workers", r.workers))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.consume(logging.WithAttrs(logCtx, slog.Int("worker", worker)))
		}(i)
	}
	wg.Wait()

	logging.Info(logCtx, "allocation worker pool stopped")
	return nil
}

func (r *Runner) consume(ctx context.Context) {
	for {
		msg, err := r.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logging.Error(ctx, "dequeue failed", slog.Any("err", errs.Loggable(err)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		r.handle(ctx, msg)
	}
}

func (r *Runner) handle(ctx context.Context, msg ports.TaskMessage) {
	task := msg.Task()
	outcome := r.service.Allocate(ctx, task)

	var err error
	switch outcome.Kind {
	case OutcomeDone:
		err = msg.Ack()
	case OutcomeRetry:
		err = msg.Retry(outcome.Delay, outcome.Task)
	case OutcomeFatal:
		err = msg.Fail(outcome.Err)
	}
	if err != nil {
		// The delivery stays unsettled; at-least-once redelivery plus the
		// idempotency guard make this safe.
		logging.Warn(ctx, "settle task message failed",
			slog.Uint64("appeal_id", task.AppealID),
			slog.String("outcome", outcome.Kind.String()),
			slog.Any("err", errs.Loggable(err)))
	}
}
