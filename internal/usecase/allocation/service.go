package allocation

import (
	"math/rand/v2"
	"sync"
	"time"

	"leadrouter/internal/domain/routing"
	"leadrouter/internal/ports"
)

// Config tunes the allocation retry policy.
type Config struct {
	// Workers is the size of the consumer pool.
	Workers int

	// RereadLimit bounds visibility retries: tasks whose appeal row is not
	// readable yet are re-enqueued at most this many times.
	RereadLimit int

	// RereadDelay is the linear backoff unit for visibility retries
	// (attempt n waits n × RereadDelay).
	RereadDelay time.Duration

	// CapacityRetryDelay is the fixed wait between attempts while no
	// operator has spare capacity. These retries are unbounded: capacity is
	// expected to free up as appeals resolve.
	CapacityRetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:            4,
		RereadLimit:        3,
		RereadDelay:        time.Second,
		CapacityRetryDelay: 3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.RereadLimit <= 0 {
		c.RereadLimit = defaults.RereadLimit
	}
	if c.RereadDelay <= 0 {
		c.RereadDelay = defaults.RereadDelay
	}
	if c.CapacityRetryDelay <= 0 {
		c.CapacityRetryDelay = defaults.CapacityRetryDelay
	}
	return c
}

// Service owns appeal allocation: the producer side (create + enqueue), the
// worker side (Allocate) and the appeal state machine (ChangeStatus).
type Service struct {
	repo  ports.RoutingRepository
	uow   ports.UnitOfWork
	queue ports.TaskQueue
	cfg   Config

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewService wires the allocation usecases with repository, unit of work and
// task queue.
func NewService(repo ports.RoutingRepository, uow ports.UnitOfWork, queue ports.TaskQueue, cfg Config) *Service {
	return &Service{
		repo:  repo,
		uow:   uow,
		queue: queue,
		cfg:   cfg.withDefaults(),
		rnd:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// pick serializes access to the random source; *rand.Rand is not safe for
// concurrent workers.
func (s *Service) pick(candidates []routing.Candidate) (routing.Operator, error) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return routing.SelectOperator(s.rnd, candidates)
}
