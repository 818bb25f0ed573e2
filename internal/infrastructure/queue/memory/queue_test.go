package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadrouter/internal/ports"
)

func TestEnqueueDequeue(t *testing.T) {
	queue := NewQueue(DefaultConfig())
	ctx := context.Background()

	if err := queue.Enqueue(ctx, ports.AllocationTask{AppealID: 1}, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	msg, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if msg.Task().AppealID != 1 {
		t.Fatalf("Task().AppealID = %d, want 1", msg.Task().AppealID)
	}
	if err := msg.Ack(); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
	if err := msg.Ack(); err == nil {
		t.Fatalf("second Ack() error = nil, want already settled")
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	queue := NewQueue(DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := queue.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Dequeue() error = %v, want DeadlineExceeded", err)
	}
}

func TestEnqueueWithDelay(t *testing.T) {
	queue := NewQueue(DefaultConfig())
	ctx := context.Background()

	start := time.Now()
	if err := queue.Enqueue(ctx, ports.AllocationTask{AppealID: 2}, 50*time.Millisecond); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if queue.Size() != 0 {
		t.Fatalf("Size() = %d before delay, want 0", queue.Size())
	}

	msg, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("delivery after %s, want at least ~50ms", elapsed)
	}
	if err := msg.Ack(); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
}

func TestRetryCarriesUpdatedTask(t *testing.T) {
	queue := NewQueue(DefaultConfig())
	ctx := context.Background()

	if err := queue.Enqueue(ctx, ports.AllocationTask{AppealID: 3}, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	msg, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}

	updated := msg.Task()
	updated.RetryCount = 2
	if err := msg.Retry(0, updated); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	redelivered, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() redelivery error = %v", err)
	}
	if redelivered.Task().RetryCount != 2 {
		t.Fatalf("redelivered RetryCount = %d, want 2", redelivered.Task().RetryCount)
	}
	if err := redelivered.Ack(); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
}

func TestFailMovesTaskToDeadLetters(t *testing.T) {
	queue := NewQueue(DefaultConfig())
	ctx := context.Background()

	if err := queue.Enqueue(ctx, ports.AllocationTask{AppealID: 4}, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	msg, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}

	cause := errors.New("retries exceeded")
	if err := msg.Fail(cause); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	dead := queue.DeadLetters()
	if len(dead) != 1 {
		t.Fatalf("DeadLetters() len = %d, want 1", len(dead))
	}
	if dead[0].Task.AppealID != 4 {
		t.Fatalf("dead task appeal_id = %d, want 4", dead[0].Task.AppealID)
	}
	if !errors.Is(dead[0].Reason, cause) {
		t.Fatalf("dead task reason = %v, want %v", dead[0].Reason, cause)
	}
}
