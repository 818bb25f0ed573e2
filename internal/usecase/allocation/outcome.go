package allocation

import (
	"time"

	"leadrouter/internal/ports"
)

type OutcomeKind int

const (
	// OutcomeDone settles the delivery: the appeal is assigned (or already
	// was, on redelivery).
	OutcomeDone OutcomeKind = iota

	// OutcomeRetry re-enqueues Task after Delay.
	OutcomeRetry

	// OutcomeFatal terminates the task onto the dead-letter path.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDone:
		return "done"
	case OutcomeRetry:
		return "retry"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// Outcome is the tagged result of one allocation attempt, interpreted by the
// queue runner. Keeping retry policy in the return value rather than inside
// a broker callback keeps it testable without a real queue.
type Outcome struct {
	Kind  OutcomeKind
	Delay time.Duration
	Task  ports.AllocationTask
	Err   error
}

func Done() Outcome {
	return Outcome{Kind: OutcomeDone}
}

func RetryAfter(delay time.Duration, task ports.AllocationTask) Outcome {
	return Outcome{Kind: OutcomeRetry, Delay: delay, Task: task}
}

func Fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}
