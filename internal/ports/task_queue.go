package ports

import (
	"context"
	"time"
)

// AllocationTask is the queue payload for one allocation attempt. RetryCount
// only tracks visibility retries (appeal row not yet readable); capacity
// retries re-enqueue the task unchanged.
type AllocationTask struct {
	AppealID   uint64 `json:"appeal_id"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// TaskMessage is one at-least-once delivery of an allocation task. Exactly
// one of Ack, Retry or Fail settles it.
type TaskMessage interface {
	Task() AllocationTask

	// Ack marks the delivery as successfully processed.
	Ack() error

	// Retry settles this delivery and schedules another one carrying task
	// (possibly with mutated metadata) after delay.
	Retry(delay time.Duration, task AllocationTask) error

	// Fail terminates the task permanently onto the dead-letter path.
	Fail(reason error) error
}

// TaskQueue is a durable at-least-once allocation task queue. Ordering is
// not guaranteed, redelivery of the same appeal id may happen concurrently;
// handlers stay idempotent.
type TaskQueue interface {
	Enqueue(ctx context.Context, task AllocationTask, delay time.Duration) error

	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (TaskMessage, error)
}
