package routing

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestSelectOperatorErrors(t *testing.T) {
	rnd := newTestRand()

	if _, err := SelectOperator(nil, []Candidate{{RoutingFactor: 1}}); err == nil {
		t.Fatalf("SelectOperator(nil rnd) error = nil")
	}

	if _, err := SelectOperator(rnd, nil); !errors.Is(err, ErrNoAvailableOperator) {
		t.Fatalf("SelectOperator(empty) error = %v, want ErrNoAvailableOperator", err)
	}

	candidates := []Candidate{
		{Operator: Operator{OperatorID: 1}, RoutingFactor: 2},
		{Operator: Operator{OperatorID: 2}, RoutingFactor: -1},
	}
	if _, err := SelectOperator(rnd, candidates); !errors.Is(err, ErrInvalidRoutingFactor) {
		t.Fatalf("SelectOperator(negative factor) error = %v, want ErrInvalidRoutingFactor", err)
	}

	zeroWeights := []Candidate{
		{Operator: Operator{OperatorID: 1}, RoutingFactor: 0},
		{Operator: Operator{OperatorID: 2}, RoutingFactor: 0},
	}
	if _, err := SelectOperator(rnd, zeroWeights); !errors.Is(err, ErrNoAvailableOperator) {
		t.Fatalf("SelectOperator(zero total) error = %v, want ErrNoAvailableOperator", err)
	}
}

func TestSelectOperatorSkipsZeroWeight(t *testing.T) {
	rnd := newTestRand()
	candidates := []Candidate{
		{Operator: Operator{OperatorID: 1}, RoutingFactor: 0},
		{Operator: Operator{OperatorID: 2}, RoutingFactor: 5},
		{Operator: Operator{OperatorID: 3}, RoutingFactor: 0},
	}

	for i := 0; i < 100; i++ {
		operator, err := SelectOperator(rnd, candidates)
		if err != nil {
			t.Fatalf("SelectOperator() error = %v", err)
		}
		if operator.OperatorID != 2 {
			t.Fatalf("SelectOperator() picked zero-weight operator %d", operator.OperatorID)
		}
	}
}

func TestSelectOperatorRespectsWeights(t *testing.T) {
	rnd := newTestRand()
	candidates := []Candidate{
		{Operator: Operator{OperatorID: 1}, RoutingFactor: 9},
		{Operator: Operator{OperatorID: 2}, RoutingFactor: 1},
	}

	counts := map[uint64]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		operator, err := SelectOperator(rnd, candidates)
		if err != nil {
			t.Fatalf("SelectOperator() error = %v", err)
		}
		counts[operator.OperatorID]++
	}

	if counts[1]+counts[2] != draws {
		t.Fatalf("counts = %v, want total %d", counts, draws)
	}
	// Expected split 9:1; allow a wide band around it.
	if counts[1] < draws*80/100 || counts[1] > draws*98/100 {
		t.Fatalf("operator 1 drawn %d times of %d, want roughly 90%%", counts[1], draws)
	}
	if counts[2] == 0 {
		t.Fatalf("operator 2 never drawn")
	}
}
