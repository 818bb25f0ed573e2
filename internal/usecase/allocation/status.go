package allocation

import (
	"context"
	"errors"
	"log/slog"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/domain/routing"
)

// ChangeStatus moves an appeal between ACTIVE and RESOLVED and reconciles
// the assigned operator's capacity ledger in the same transaction: exactly
// one decrement when an assigned appeal leaves ACTIVE, exactly one increment
// when it re-enters. Same-status transitions leave the ledger alone, so the
// bookkeeping can never double count.
func (s *Service) ChangeStatus(ctx context.Context, appealID uint64, newStatus routing.AppealStatus) (routing.Appeal, error) {
	if ctx == nil {
		return routing.Appeal{}, errors.New("context is required")
	}
	if _, err := routing.ParseAppealStatus(string(newStatus)); err != nil {
		return routing.Appeal{}, err
	}

	var updated routing.Appeal
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		appeal, err := s.repo.GetAppeal(ctx, appealID)
		if err != nil {
			return err
		}

		delta := routing.LedgerDelta(appeal.Assigned(), appeal.Status, newStatus)
		if delta != 0 {
			if err := s.repo.AdjustOperatorLoad(ctx, *appeal.AssignedOperatorID, delta); err != nil {
				return err
			}
		}

		if appeal.Status != newStatus {
			if err := s.repo.SetAppealStatus(ctx, appealID, newStatus); err != nil {
				return err
			}
		}

		appeal.Status = newStatus
		updated = appeal
		return nil
	})
	if err != nil {
		return routing.Appeal{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "allocation")),
		"appeal status changed",
		slog.Uint64("appeal_id", appealID),
		slog.String("status", string(newStatus)))
	return updated, nil
}
