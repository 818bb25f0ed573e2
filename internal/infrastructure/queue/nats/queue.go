package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"leadrouter/internal/errs"
	"leadrouter/internal/ports"
)

// headerNotBefore carries the earliest processing time for deferred
// deliveries. JetStream has no native delayed publish, so a consumer that
// sees a future not-before naks the message back with the remaining delay.
const headerNotBefore = "LR-Not-Before"

type Config struct {
	URL     string
	Stream  string
	Subject string
	Durable string
}

// Queue is a ports.TaskQueue backed by a NATS JetStream work stream:
// durable, at-least-once, with explicit acks. Terminal failures are
// settled with Term so the server stops redelivering them.
type Queue struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
	cfg  Config
}

var _ ports.TaskQueue = (*Queue)(nil)

func New(ctx context.Context, cfg Config) (*Queue, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.Stream == "" || cfg.Subject == "" {
		return nil, errors.New("nats stream and subject are required")
	}
	if cfg.Durable == "" {
		cfg.Durable = "allocator"
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("leadrouter"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, errs.Wrap(err, "open jetstream context")
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			conn.Close()
			return nil, errs.Wrap(err, "query stream info")
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{cfg.Subject},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
		}); err != nil {
			conn.Close()
			return nil, errs.Wrap(err, "create stream")
		}
	}

	sub, err := js.PullSubscribe(cfg.Subject, cfg.Durable, nats.AckExplicit())
	if err != nil {
		conn.Close()
		return nil, errs.Wrap(err, "create pull subscription")
	}

	return &Queue{
		conn: conn,
		js:   js,
		sub:  sub,
		cfg:  cfg,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, task ports.AllocationTask, delay time.Duration) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.publish(task, delay)
}

func (q *Queue) Dequeue(ctx context.Context) (ports.TaskMessage, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgs, err := q.sub.Fetch(1, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			return nil, errs.Wrap(err, "fetch task message")
		}
		if len(msgs) == 0 {
			continue
		}
		raw := msgs[0]

		// Deferred message still waiting: push it back with the remaining
		// delay and keep fetching.
		if until, ok := notBefore(raw); ok {
			if remaining := time.Until(until); remaining > 0 {
				_ = raw.NakWithDelay(remaining)
				continue
			}
		}

		var task ports.AllocationTask
		if err := json.Unmarshal(raw.Data, &task); err != nil {
			// Undecodable payload can never succeed; terminate it.
			_ = raw.Term()
			continue
		}

		return &message{raw: raw, task: task, queue: q}, nil
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) publish(task ports.AllocationTask, delay time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return errs.Wrap(err, "marshal allocation task")
	}

	msg := nats.NewMsg(q.cfg.Subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.New().String())
	if delay > 0 {
		msg.Header.Set(headerNotBefore, time.Now().UTC().Add(delay).Format(time.RFC3339Nano))
	}

	if _, err := q.js.PublishMsg(msg); err != nil {
		return errs.Wrap(err, "publish allocation task")
	}
	return nil
}

func notBefore(msg *nats.Msg) (time.Time, bool) {
	value := msg.Header.Get(headerNotBefore)
	if value == "" {
		return time.Time{}, false
	}
	until, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return until, true
}

type message struct {
	raw   *nats.Msg
	task  ports.AllocationTask
	queue *Queue
}

var _ ports.TaskMessage = (*message)(nil)

func (m *message) Task() ports.AllocationTask {
	return m.task
}

func (m *message) Ack() error {
	return m.raw.Ack()
}

// Retry republishes the task (metadata may have changed) with a not-before
// header and settles the original delivery.
func (m *message) Retry(delay time.Duration, task ports.AllocationTask) error {
	if err := m.queue.publish(task, delay); err != nil {
		return err
	}
	return m.raw.Ack()
}

func (m *message) Fail(_ error) error {
	return m.raw.Term()
}
