package allocation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
	"leadrouter/internal/ports"
)

// errAlreadyAssigned marks the idempotency guard: queue-level redelivery of
// an already-allocated appeal must succeed without touching the ledger.
var errAlreadyAssigned = errors.New("appeal already has an assigned operator")

// Allocate performs one allocation attempt for task.AppealID inside a single
// unit of work. The assignment commit is the only point where any write
// becomes durable; every failure path rolls the transaction back.
//
// Outcome mapping:
//   - assigned now, or already assigned earlier     -> Done
//   - appeal row not readable yet (visibility lag)  -> Retry with linear
//     backoff, bounded by RereadLimit, then Fatal
//   - no operator with spare capacity               -> Retry after the fixed
//     capacity delay, unbounded, metadata untouched
//   - unexpected storage failure                    -> Retry on the same
//     bounded counter as visibility, then Fatal
func (s *Service) Allocate(ctx context.Context, task ports.AllocationTask) Outcome {
	if ctx == nil {
		return Fatal(errors.New("context is required"))
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "allocation"),
		slog.Uint64("appeal_id", task.AppealID),
	)

	var assignedOperatorID uint64
	txErr := s.uow.WithTx(ctx, func(ctx context.Context) error {
		appeal, err := s.repo.GetAppeal(ctx, task.AppealID)
		if err != nil {
			return err
		}
		if appeal.Assigned() {
			return errAlreadyAssigned
		}

		candidates, err := s.repo.ListCandidates(ctx, appeal.LeadSourceID)
		if err != nil {
			return err
		}

		operator, err := s.pick(candidates)
		if err != nil {
			return err
		}

		if err := s.assignOperator(ctx, appeal, operator); err != nil {
			return err
		}
		assignedOperatorID = operator.OperatorID
		return nil
	})

	switch {
	case txErr == nil:
		logging.Info(logCtx, "appeal allocated",
			slog.Uint64("operator_id", assignedOperatorID))
		return Done()

	case errors.Is(txErr, errAlreadyAssigned):
		logging.Debug(logCtx, "appeal already allocated, redelivery ignored")
		return Done()

	case errors.Is(txErr, routing.ErrNoAvailableOperator):
		// Expected during bursts; not an error-level fault.
		logging.Info(logCtx, "no operator capacity, retrying",
			slog.Duration("delay", s.cfg.CapacityRetryDelay))
		return RetryAfter(s.cfg.CapacityRetryDelay, task)

	case errors.Is(txErr, routing.ErrAppealNotFound):
		return s.boundedRetry(logCtx, task, txErr, "appeal not readable yet")

	default:
		return s.boundedRetry(logCtx, task, txErr, "allocation attempt failed")
	}
}

// assignOperator sets the assignment and consumes one ledger slot when the
// appeal is ACTIVE. The conditional slot reserve closes the race between the
// candidate snapshot and this write: a saturated operator re-enters the
// no-capacity retry path instead of overshooting the limit.
func (s *Service) assignOperator(ctx context.Context, appeal routing.Appeal, operator routing.Operator) error {
	if appeal.Status == routing.AppealActive {
		reserved, err := s.repo.ReserveOperatorSlot(ctx, operator.OperatorID)
		if err != nil {
			return err
		}
		if !reserved {
			return routing.ErrNoAvailableOperator
		}
	}
	return s.repo.SetAssignedOperator(ctx, appeal.AppealID, operator.OperatorID)
}

func (s *Service) boundedRetry(ctx context.Context, task ports.AllocationTask, cause error, msg string) Outcome {
	if task.RetryCount >= s.cfg.RereadLimit {
		err := errs.Wrapf(errs.WithStack(cause),
			"retries exceeded: cannot allocate appeal %d", task.AppealID)
		logging.Error(ctx, "allocation failed permanently",
			slog.Int("retry_count", task.RetryCount),
			slog.Any("err", errs.Loggable(err)))
		return Fatal(err)
	}

	next := task
	next.RetryCount++
	delay := time.Duration(next.RetryCount) * s.cfg.RereadDelay

	logging.Warn(ctx, msg,
		slog.Int("retry_count", next.RetryCount),
		slog.Duration("delay", delay),
		slog.Any("err", errs.Loggable(cause)))
	return RetryAfter(delay, next)
}
