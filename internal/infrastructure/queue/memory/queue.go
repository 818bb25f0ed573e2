package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadrouter/internal/ports"
)

// Config for the in-memory allocation queue.
type Config struct {
	Buffer int
}

func DefaultConfig() Config {
	return Config{Buffer: 256}
}

// Queue is an in-process ports.TaskQueue: channel-backed, with delayed
// deliveries driven by timers and a dead-letter list for terminally failed
// tasks. At-least-once within the process; not durable across restarts,
// which is fine for local runs and tests. Production deployments use the
// NATS JetStream adapter instead.
type Queue struct {
	messages chan *message

	deadMu sync.Mutex
	dead   []DeadTask
}

// DeadTask is a task that exhausted its retries or failed permanently.
type DeadTask struct {
	Task   ports.AllocationTask
	Reason error
}

var _ ports.TaskQueue = (*Queue)(nil)

func NewQueue(config Config) *Queue {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue{
		messages: make(chan *message, config.Buffer),
	}
}

func (q *Queue) Enqueue(ctx context.Context, task ports.AllocationTask, delay time.Duration) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.schedule(task, delay)
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (ports.TaskMessage, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of immediately deliverable messages.
func (q *Queue) Size() int {
	return len(q.messages)
}

// DeadLetters returns a snapshot of terminally failed tasks.
func (q *Queue) DeadLetters() []DeadTask {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()

	cloned := make([]DeadTask, len(q.dead))
	copy(cloned, q.dead)
	return cloned
}

func (q *Queue) schedule(task ports.AllocationTask, delay time.Duration) {
	if delay <= 0 {
		q.push(task)
		return
	}
	time.AfterFunc(delay, func() {
		q.push(task)
	})
}

func (q *Queue) push(task ports.AllocationTask) {
	q.messages <- &message{
		id:    uuid.New().String(),
		task:  task,
		queue: q,
	}
}

type message struct {
	id    string
	task  ports.AllocationTask
	queue *Queue

	mu      sync.Mutex
	settled bool
}

var _ ports.TaskMessage = (*message)(nil)

func (m *message) Task() ports.AllocationTask {
	return m.task
}

func (m *message) Ack() error {
	return m.settle()
}

func (m *message) Retry(delay time.Duration, task ports.AllocationTask) error {
	if err := m.settle(); err != nil {
		return err
	}
	m.queue.schedule(task, delay)
	return nil
}

func (m *message) Fail(reason error) error {
	if err := m.settle(); err != nil {
		return err
	}

	m.queue.deadMu.Lock()
	m.queue.dead = append(m.queue.dead, DeadTask{Task: m.task, Reason: reason})
	m.queue.deadMu.Unlock()
	return nil
}

func (m *message) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settled {
		return fmt.Errorf("message %s already settled", m.id)
	}
	m.settled = true
	return nil
}
