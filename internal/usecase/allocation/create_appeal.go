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

type CreateAppealInput struct {
	LeadID       uint64
	LeadSourceID uint64
}

// CreateAppeal persists a new unassigned ACTIVE appeal and enqueues its
// allocation task. The enqueue happens only after the transaction commits:
// the caller is guaranteed "a task was enqueued", never "an operator was
// assigned by any deadline". A consumer that still outruns read visibility
// lands in the worker's bounded reread path.
func (s *Service) CreateAppeal(ctx context.Context, input CreateAppealInput) (routing.Appeal, error) {
	if ctx == nil {
		return routing.Appeal{}, errors.New("context is required")
	}
	if input.LeadID == 0 {
		return routing.Appeal{}, errors.New("lead id is required")
	}
	if input.LeadSourceID == 0 {
		return routing.Appeal{}, errors.New("lead source id is required")
	}

	if _, err := s.repo.GetLeadSource(ctx, input.LeadSourceID); err != nil {
		return routing.Appeal{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var created routing.Appeal
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.EnsureLead(ctx, input.LeadID, now); err != nil {
			return err
		}

		appeal, err := s.repo.CreateAppeal(ctx, routing.Appeal{
			Status:       routing.AppealActive,
			CreatedAt:    now,
			LeadID:       input.LeadID,
			LeadSourceID: input.LeadSourceID,
		})
		if err != nil {
			return err
		}
		created = appeal
		return nil
	})
	if err != nil {
		return routing.Appeal{}, err
	}

	if err := s.queue.Enqueue(ctx, ports.AllocationTask{AppealID: created.AppealID}, 0); err != nil {
		return created, errs.Wrap(err, "enqueue allocation task")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "allocation")),
		"appeal created and allocation enqueued",
		slog.Uint64("appeal_id", created.AppealID),
		slog.Uint64("lead_source_id", created.LeadSourceID))
	return created, nil
}
