package routing

import (
	"errors"
	"math/rand/v2"
)

// Candidate is one routing edge joined with its operator: the operator is
// eligible to receive appeals from the lead source with this relative weight.
type Candidate struct {
	Operator      Operator
	RoutingFactor int64
}

// SelectOperator draws one candidate with probability proportional to its
// routing factor (cumulative weights, uniform draw in [0, total)).
//
// Candidates are expected to be pre-filtered to active operators with spare
// capacity. Zero-weight candidates stay in iteration but are never drawn;
// an empty set or a zero total weight yields ErrNoAvailableOperator. Ties in
// weight are broken purely by the draw, so equal-weight operators are
// intentionally non-deterministic.
func SelectOperator(rnd *rand.Rand, candidates []Candidate) (Operator, error) {
	if rnd == nil {
		return Operator{}, errors.New("random source is required")
	}
	if len(candidates) == 0 {
		return Operator{}, ErrNoAvailableOperator
	}

	var total int64
	for _, candidate := range candidates {
		if candidate.RoutingFactor < 0 {
			return Operator{}, ErrInvalidRoutingFactor
		}
		total += candidate.RoutingFactor
	}
	if total <= 0 {
		return Operator{}, ErrNoAvailableOperator
	}

	draw := rnd.Int64N(total)
	for _, candidate := range candidates {
		if candidate.RoutingFactor <= 0 {
			continue
		}
		if draw < candidate.RoutingFactor {
			return candidate.Operator, nil
		}
		draw -= candidate.RoutingFactor
	}

	// Unreachable: draw < total and weights sum to total.
	return candidates[len(candidates)-1].Operator, nil
}
