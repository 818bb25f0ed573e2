package routing

// AppealStatus is the appeal lifecycle state. ACTIVE occupies a capacity
// slot on the assigned operator, RESOLVED does not. Resolution is
// reversible; there is no terminal state.
type AppealStatus string

const (
	AppealActive   AppealStatus = "ACTIVE"
	AppealResolved AppealStatus = "RESOLVED"
)

func ParseAppealStatus(value string) (AppealStatus, error) {
	switch AppealStatus(value) {
	case AppealActive, AppealResolved:
		return AppealStatus(value), nil
	}
	return "", ErrInvalidAppealStatus
}

// Appeal is one customer contact to be routed to exactly one operator.
// AssignedOperatorID stays nil until the allocation worker commits an
// assignment; the worker is the sole writer that sets it the first time.
type Appeal struct {
	AppealID           uint64
	Status             AppealStatus
	CreatedAt          string
	LeadID             uint64
	LeadSourceID       uint64
	AssignedOperatorID *uint64
}

func (a Appeal) Assigned() bool {
	return a.AssignedOperatorID != nil
}

// OccupiesSlot reports whether the appeal currently consumes one unit of its
// assigned operator's capacity ledger.
func (a Appeal) OccupiesSlot() bool {
	return a.Assigned() && a.Status == AppealActive
}

// LedgerDelta is the adjustment to the assigned operator's active appeal
// count for a status transition: -1 when an assigned appeal leaves ACTIVE,
// +1 when it re-enters ACTIVE, 0 otherwise. Unassigned appeals never touch
// the ledger.
func LedgerDelta(assigned bool, from, to AppealStatus) int {
	if !assigned || from == to {
		return 0
	}
	switch {
	case from == AppealActive && to == AppealResolved:
		return -1
	case from == AppealResolved && to == AppealActive:
		return 1
	}
	return 0
}
