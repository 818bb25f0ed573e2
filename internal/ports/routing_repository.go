package ports

import (
	"context"

	"leadrouter/internal/domain/routing"
)

// AppealFilter narrows appeal listings for the inspection read path.
type AppealFilter struct {
	LeadSourceID uint64 // 0 = any
	LeadID       uint64 // 0 = any
	OnlyActive   bool
}

// LeadWithAppeals is one lead and every appeal attached to it.
type LeadWithAppeals struct {
	LeadID    uint64
	CreatedAt string
	Appeals   []routing.Appeal
}

// DistributionItem is the assignment count for one operator.
type DistributionItem struct {
	OperatorID uint64
	Appeals    int
}

type RoutingReadRepository interface {
	GetAppeal(ctx context.Context, appealID uint64) (routing.Appeal, error)
	GetOperator(ctx context.Context, operatorID uint64) (routing.Operator, error)
	GetLeadSource(ctx context.Context, leadSourceID uint64) (routing.LeadSource, error)

	// ListCandidates returns the routing edges of a lead source joined with
	// their operators, filtered to ACTIVE operators with spare capacity.
	// The capacity read is a snapshot; ReserveOperatorSlot re-checks it.
	ListCandidates(ctx context.Context, leadSourceID uint64) ([]routing.Candidate, error)

	ListOperators(ctx context.Context) ([]routing.Operator, error)
	ListAppeals(ctx context.Context, filter AppealFilter) ([]routing.Appeal, error)
	ListLeadsWithAppeals(ctx context.Context) ([]LeadWithAppeals, error)

	// AppealDistribution counts assigned appeals per operator, optionally
	// restricted to one lead source (0 = all).
	AppealDistribution(ctx context.Context, leadSourceID uint64) ([]DistributionItem, error)
}

type RoutingRepository interface {
	RoutingReadRepository

	CreateOperator(ctx context.Context, operator routing.Operator) (routing.Operator, error)
	CreateLeadSource(ctx context.Context, source routing.LeadSource) (routing.LeadSource, error)

	// BindOperator creates or updates the routing edge between a lead source
	// and an operator with the given weight.
	BindOperator(ctx context.Context, leadSourceID uint64, operatorID uint64, routingFactor int64) error

	// EnsureLead creates the lead row if it does not exist yet.
	EnsureLead(ctx context.Context, leadID uint64, createdAt string) error

	CreateAppeal(ctx context.Context, appeal routing.Appeal) (routing.Appeal, error)
	SetAssignedOperator(ctx context.Context, appealID uint64, operatorID uint64) error
	SetAppealStatus(ctx context.Context, appealID uint64, status routing.AppealStatus) error

	// ReserveOperatorSlot increments the operator's active appeal count only
	// while it is still below the limit (conditional update). A false return
	// means the operator saturated since the candidate snapshot.
	ReserveOperatorSlot(ctx context.Context, operatorID uint64) (bool, error)

	// AdjustOperatorLoad shifts the active appeal count by delta for status
	// transitions of already-assigned appeals. Negative results clamp to 0.
	AdjustOperatorLoad(ctx context.Context, operatorID uint64, delta int) error
}
