package routing

// OperatorStatus marks whether an operator takes part in routing at all.
type OperatorStatus string

const (
	OperatorActive   OperatorStatus = "ACTIVE"
	OperatorInactive OperatorStatus = "INACTIVE"
)

func ParseOperatorStatus(value string) (OperatorStatus, error) {
	switch OperatorStatus(value) {
	case OperatorActive, OperatorInactive:
		return OperatorStatus(value), nil
	}
	return "", ErrInvalidOperatorStatus
}

// Operator is a human agent with a capacity ledger: ActiveAppeals counts the
// ACTIVE appeals currently assigned to it, bounded by ActiveAppealsLimit.
type Operator struct {
	OperatorID         uint64
	Status             OperatorStatus
	ActiveAppeals      int
	ActiveAppealsLimit int
	CreatedAt          string
}

// HasCapacity reports whether the operator can take one more active appeal.
// The snapshot may be stale by assignment time; the conditional slot reserve
// in the repository is what actually enforces the limit.
func (o Operator) HasCapacity() bool {
	return o.Status == OperatorActive && o.ActiveAppeals < o.ActiveAppealsLimit
}
