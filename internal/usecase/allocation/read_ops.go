package allocation

import (
	"context"
	"errors"

	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
	"leadrouter/internal/ports"
)

// OperatorLoadItem is one operator's ledger state plus the total number of
// appeals it holds (active and resolved).
type OperatorLoadItem struct {
	OperatorID         uint64
	Status             string
	ActiveAppeals      int
	ActiveAppealsLimit int
	AssignedTotal      int
}

// OperatorLoads returns every operator with its capacity ledger and overall
// assignment count, for the console and the inspection API.
func (s *Service) OperatorLoads(ctx context.Context) ([]OperatorLoadItem, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	operators, err := s.repo.ListOperators(ctx)
	if err != nil {
		return nil, err
	}

	distribution, err := s.repo.AppealDistribution(ctx, 0)
	if err != nil {
		return nil, err
	}
	totals := make(map[uint64]int, len(distribution))
	for _, item := range distribution {
		totals[item.OperatorID] = item.Appeals
	}

	items := make([]OperatorLoadItem, 0, len(operators))
	for _, operator := range operators {
		items = append(items, OperatorLoadItem{
			OperatorID:         operator.OperatorID,
			Status:             string(operator.Status),
			ActiveAppeals:      operator.ActiveAppeals,
			ActiveAppealsLimit: operator.ActiveAppealsLimit,
			AssignedTotal:      totals[operator.OperatorID],
		})
	}
	return items, nil
}

// LeadsWithAppeals returns every lead and its appeals, newest lead last.
func (s *Service) LeadsWithAppeals(ctx context.Context) ([]ports.LeadWithAppeals, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return s.repo.ListLeadsWithAppeals(ctx)
}

// Distribution counts assigned appeals per operator, optionally restricted
// to one lead source (0 = all).
func (s *Service) Distribution(ctx context.Context, leadSourceID uint64) ([]ports.DistributionItem, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return s.repo.AppealDistribution(ctx, leadSourceID)
}

// ListAppeals returns appeals matching the filter for inspection views.
func (s *Service) ListAppeals(ctx context.Context, filter ports.AppealFilter) ([]routing.Appeal, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return s.repo.ListAppeals(ctx, filter)
}

// GetAppeal returns one appeal by id.
func (s *Service) GetAppeal(ctx context.Context, appealID uint64) (routing.Appeal, error) {
	if ctx == nil {
		return routing.Appeal{}, errors.New("context is required")
	}
	return s.repo.GetAppeal(ctx, appealID)
}
