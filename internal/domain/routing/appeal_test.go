package routing

import (
	"errors"
	"testing"
)

func TestParseAppealStatus(t *testing.T) {
	for _, value := range []string{"ACTIVE", "RESOLVED"} {
		status, err := ParseAppealStatus(value)
		if err != nil {
			t.Fatalf("ParseAppealStatus(%q) error = %v", value, err)
		}
		if string(status) != value {
			t.Fatalf("ParseAppealStatus(%q) = %q", value, status)
		}
	}

	for _, value := range []string{"", "active", "CLOSED"} {
		if _, err := ParseAppealStatus(value); !errors.Is(err, ErrInvalidAppealStatus) {
			t.Fatalf("ParseAppealStatus(%q) error = %v, want ErrInvalidAppealStatus", value, err)
		}
	}
}

func TestOccupiesSlot(t *testing.T) {
	operatorID := uint64(7)

	appeal := Appeal{Status: AppealActive}
	if appeal.OccupiesSlot() {
		t.Fatalf("unassigned active appeal should not occupy a slot")
	}

	appeal.AssignedOperatorID = &operatorID
	if !appeal.OccupiesSlot() {
		t.Fatalf("assigned active appeal should occupy a slot")
	}

	appeal.Status = AppealResolved
	if appeal.OccupiesSlot() {
		t.Fatalf("resolved appeal should not occupy a slot")
	}
}

func TestLedgerDelta(t *testing.T) {
	testCases := []struct {
		name     string
		assigned bool
		from     AppealStatus
		to       AppealStatus
		want     int
	}{
		{name: "resolve assigned", assigned: true, from: AppealActive, to: AppealResolved, want: -1},
		{name: "reopen assigned", assigned: true, from: AppealResolved, to: AppealActive, want: 1},
		{name: "resolve unassigned", assigned: false, from: AppealActive, to: AppealResolved, want: 0},
		{name: "reopen unassigned", assigned: false, from: AppealResolved, to: AppealActive, want: 0},
		{name: "same status assigned", assigned: true, from: AppealActive, to: AppealActive, want: 0},
		{name: "same status resolved", assigned: true, from: AppealResolved, to: AppealResolved, want: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := LedgerDelta(testCase.assigned, testCase.from, testCase.to)
			if got != testCase.want {
				t.Fatalf("LedgerDelta() = %d, want %d", got, testCase.want)
			}
		})
	}
}

func TestOperatorHasCapacity(t *testing.T) {
	operator := Operator{Status: OperatorActive, ActiveAppeals: 1, ActiveAppealsLimit: 2}
	if !operator.HasCapacity() {
		t.Fatalf("operator below limit should have capacity")
	}

	operator.ActiveAppeals = 2
	if operator.HasCapacity() {
		t.Fatalf("operator at limit should not have capacity")
	}

	operator = Operator{Status: OperatorInactive, ActiveAppeals: 0, ActiveAppealsLimit: 5}
	if operator.HasCapacity() {
		t.Fatalf("inactive operator should not have capacity")
	}
}
