package routing

import "errors"

var (
	// ErrNoAvailableOperator is transient: every eligible operator is either
	// inactive, saturated, or carries zero routing weight. Callers retry.
	ErrNoAvailableOperator = errors.New("no available operator for lead source")

	ErrAppealNotFound     = errors.New("appeal not found")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrLeadSourceNotFound = errors.New("lead source not found")

	ErrInvalidAppealStatus   = errors.New("invalid appeal status")
	ErrInvalidOperatorStatus = errors.New("invalid operator status")
	ErrInvalidRoutingFactor  = errors.New("routing factor must not be negative")
)
