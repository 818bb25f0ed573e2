package allocation

import (
	"context"
	"testing"
	"time"

	"leadrouter/internal/domain/routing"
)

func TestRunnerAllocatesEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.RereadDelay = 10 * time.Millisecond
	cfg.CapacityRetryDelay = 10 * time.Millisecond
	fixture := setupAllocation(t, cfg)

	source := fixture.seedLeadSource(t)
	operator := fixture.seedOperator(t, source.LeadSourceID, 10, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewRunner(fixture.service, fixture.queue, cfg.Workers)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	const appeals = 5
	ids := make([]uint64, 0, appeals)
	for i := 1; i <= appeals; i++ {
		appeal := fixture.createAppeal(t, uint64(i), source.LeadSourceID)
		ids = append(ids, appeal.AppealID)
	}

	deadline := time.After(5 * time.Second)
	for _, appealID := range ids {
		for {
			appeal, err := fixture.repo.GetAppeal(context.Background(), appealID)
			if err != nil {
				t.Fatalf("GetAppeal(%d) error = %v", appealID, err)
			}
			if appeal.Assigned() {
				if *appeal.AssignedOperatorID != operator.OperatorID {
					t.Fatalf("appeal %d assigned to %d, want %d", appealID, *appeal.AssignedOperatorID, operator.OperatorID)
				}
				break
			}
			select {
			case <-deadline:
				t.Fatalf("appeal %d not allocated in time", appealID)
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	got, err := fixture.repo.GetOperator(context.Background(), operator.OperatorID)
	if err != nil {
		t.Fatalf("GetOperator() error = %v", err)
	}
	if got.ActiveAppeals != appeals {
		t.Fatalf("active_appeals = %d, want %d", got.ActiveAppeals, appeals)
	}
	if len(fixture.queue.DeadLetters()) != 0 {
		t.Fatalf("dead letters = %+v, want none", fixture.queue.DeadLetters())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
}

func TestRunnerWaitsOutCapacityThenAllocates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.CapacityRetryDelay = 20 * time.Millisecond
	fixture := setupAllocation(t, cfg)

	source := fixture.seedLeadSource(t)
	fixture.seedOperator(t, source.LeadSourceID, 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewRunner(fixture.service, fixture.queue, cfg.Workers)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	first := fixture.createAppeal(t, 1, source.LeadSourceID)
	second := fixture.createAppeal(t, 2, source.LeadSourceID)

	waitAssigned := func(appealID uint64) routing.Appeal {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			appeal, err := fixture.repo.GetAppeal(context.Background(), appealID)
			if err != nil {
				t.Fatalf("GetAppeal(%d) error = %v", appealID, err)
			}
			if appeal.Assigned() {
				return appeal
			}
			select {
			case <-deadline:
				t.Fatalf("appeal %d not allocated in time", appealID)
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	waitAssigned(first.AppealID)

	// The second appeal can only land after the first resolves and frees
	// the operator's single slot.
	if _, err := fixture.service.ChangeStatus(context.Background(), first.AppealID, routing.AppealResolved); err != nil {
		t.Fatalf("ChangeStatus(RESOLVED) error = %v", err)
	}
	waitAssigned(second.AppealID)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
}
