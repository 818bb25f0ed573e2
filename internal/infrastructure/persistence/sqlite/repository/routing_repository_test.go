package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"leadrouter/internal/domain/routing"
	"leadrouter/internal/infrastructure/persistence/sqlite/model"
	"leadrouter/internal/ports"
)

func setupRoutingRepository(t *testing.T) *RoutingRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "leadrouter.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Operator{}, &model.Lead{}, &model.LeadSource{}, &model.LeadSourceOperator{}, &model.Appeal{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewRoutingRepository(db)
}

func testNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func createOperator(t *testing.T, repo *RoutingRepository, status routing.OperatorStatus, limit int) routing.Operator {
	t.Helper()

	operator, err := repo.CreateOperator(context.Background(), routing.Operator{
		Status:             status,
		ActiveAppealsLimit: limit,
		CreatedAt:          testNow(),
	})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	return operator
}

func createLeadSource(t *testing.T, repo *RoutingRepository) routing.LeadSource {
	t.Helper()

	source, err := repo.CreateLeadSource(context.Background(), routing.LeadSource{
		Type:      routing.LeadSourceBot,
		CreatedAt: testNow(),
	})
	if err != nil {
		t.Fatalf("create lead source: %v", err)
	}
	return source
}

func TestReserveOperatorSlotStopsAtLimit(t *testing.T) {
	repo := setupRoutingRepository(t)
	ctx := context.Background()
	operator := createOperator(t, repo, routing.OperatorActive, 2)

	for i := 0; i < 2; i++ {
		reserved, err := repo.ReserveOperatorSlot(ctx, operator.OperatorID)
		if err != nil {
			t.Fatalf("ReserveOperatorSlot() attempt %d error = %v", i, err)
		}
		if !reserved {
			t.Fatalf("ReserveOperatorSlot() attempt %d = false, want true", i)
		}
	}

	reserved, err := repo.ReserveOperatorSlot(ctx, operator.OperatorID)
	if err != nil {
		t.Fatalf("ReserveOperatorSlot() at limit error = %v", err)
	}
	if reserved {
		t.Fatalf("ReserveOperatorSlot() at limit = true, want false")
	}

	got, err := repo.GetOperator(ctx, operator.OperatorID)
	if err != nil {
		t.Fatalf("GetOperator() error = %v", err)
	}
	if got.ActiveAppeals != 2 {
		t.Fatalf("active_appeals = %d, want 2", got.ActiveAppeals)
	}
}

func TestAdjustOperatorLoadFloorsAtZero(t *testing.T) {
	repo := setupRoutingRepository(t)
	ctx := context.Background()
	operator := createOperator(t, repo, routing.OperatorActive, 5)

	if err := repo.AdjustOperatorLoad(ctx, operator.OperatorID, -3); err != nil {
		t.Fatalf("AdjustOperatorLoad() error = %v", err)
	}

	got, err := repo.GetOperator(ctx, operator.OperatorID)
	if err != nil {
		t.Fatalf("GetOperator() error = %v", err)
	}
	if got.ActiveAppeals != 0 {
		t.Fatalf("active_appeals = %d, want 0", got.ActiveAppeals)
	}

	if err := repo.AdjustOperatorLoad(ctx, 9999, 1); !errors.Is(err, routing.ErrOperatorNotFound) {
		t.Fatalf("AdjustOperatorLoad(unknown) error = %v, want ErrOperatorNotFound", err)
	}
}

func TestListCandidatesFiltersStatusAndCapacity(t *testing.T) {
	repo := setupRoutingRepository(t)
	ctx := context.Background()

	source := createLeadSource(t, repo)
	available := createOperator(t, repo, routing.OperatorActive, 2)
	inactive := createOperator(t, repo, routing.OperatorInactive, 2)
	saturated := createOperator(t, repo, routing.OperatorActive, 1)
	unbound := createOperator(t, repo, routing.OperatorActive, 2)

	for _, operatorID := range []uint64{available.OperatorID, inactive.OperatorID, saturated.OperatorID} {
		if err := repo.BindOperator(ctx, source.LeadSourceID, operatorID, 10); err != nil {
			t.Fatalf("bind operator %d: %v", operatorID, err)
		}
	}
	if reserved, err := repo.ReserveOperatorSlot(ctx, saturated.OperatorID); err != nil || !reserved {
		t.Fatalf("saturate operator: reserved=%v err=%v", reserved, err)
	}
	_ = unbound

	candidates, err := repo.ListCandidates(ctx, source.LeadSourceID)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("ListCandidates() len = %d, want 1", len(candidates))
	}
	if candidates[0].Operator.OperatorID != available.OperatorID {
		t.Fatalf("ListCandidates() operator = %d, want %d", candidates[0].Operator.OperatorID, available.OperatorID)
	}
	if candidates[0].RoutingFactor != 10 {
		t.Fatalf("ListCandidates() routing_factor = %d, want 10", candidates[0].RoutingFactor)
	}
}

func TestBindOperatorUpsertsRoutingFactor(t *testing.T) {
	repo := setupRoutingRepository(t)
	ctx := context.Background()

	source := createLeadSource(t, repo)
	operator := createOperator(t, repo, routing.OperatorActive, 3)

	if err := repo.BindOperator(ctx, source.LeadSourceID, operator.OperatorID, 1); err != nil {
		t.Fatalf("BindOperator() error = %v", err)
	}
	if err := repo.BindOperator(ctx, source.LeadSourceID, operator.OperatorID, 42); err != nil {
		t.Fatalf("BindOperator() rebind error = %v", err)
	}

	candidates, err := repo.ListCandidates(ctx, source.LeadSourceID)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("ListCandidates() len = %d, want 1", len(candidates))
	}
	if candidates[0].RoutingFactor != 42 {
		t.Fatalf("routing_factor = %d, want 42", candidates[0].RoutingFactor)
	}

	if err := repo.BindOperator(ctx, source.LeadSourceID, 9999, 1); !errors.Is(err, routing.ErrOperatorNotFound) {
		t.Fatalf("BindOperator(unknown operator) error = %v, want ErrOperatorNotFound", err)
	}
	if err := repo.BindOperator(ctx, 9999, operator.OperatorID, 1); !errors.Is(err, routing.ErrLeadSourceNotFound) {
		t.Fatalf("BindOperator(unknown source) error = %v, want ErrLeadSourceNotFound", err)
	}
	if err := repo.BindOperator(ctx, source.LeadSourceID, operator.OperatorID, -1); !errors.Is(err, routing.ErrInvalidRoutingFactor) {
		t.Fatalf("BindOperator(negative factor) error = %v, want ErrInvalidRoutingFactor", err)
	}
}

func TestAppealLifecyclePersistence(t *testing.T) {
	repo := setupRoutingRepository(t)
	ctx := context.Background()

	source := createLeadSource(t, repo)
	operator := createOperator(t, repo, routing.OperatorActive, 3)

	if err := repo.EnsureLead(ctx, 100, testNow()); err != nil {
		t.Fatalf("EnsureLead() error = %v", err)
	}
	if err := repo.EnsureLead(ctx, 100, testNow()); err != nil {
		t.Fatalf("EnsureLead() repeat error = %v", err)
	}

	appeal, err := repo.CreateAppeal(ctx, routing.Appeal{
		Status:       routing.AppealActive,
		CreatedAt:    testNow(),
		LeadID:       100,
		LeadSourceID: source.LeadSourceID,
	})
	if err != nil {
		t.Fatalf("CreateAppeal() error = %v", err)
	}
	if appeal.AppealID == 0 {
		t.Fatalf("CreateAppeal() appeal_id = 0")
	}
	if appeal.Assigned() {
		t.Fatalf("new appeal should be unassigned")
	}

	if _, err := repo.GetAppeal(ctx, appeal.AppealID+1); !errors.Is(err, routing.ErrAppealNotFound) {
		t.Fatalf("GetAppeal(unknown) error = %v, want ErrAppealNotFound", err)
	}

	if err := repo.SetAssignedOperator(ctx, appeal.AppealID, operator.OperatorID); err != nil {
		t.Fatalf("SetAssignedOperator() error = %v", err)
	}
	if err := repo.SetAppealStatus(ctx, appeal.AppealID, routing.AppealResolved); err != nil {
		t.Fatalf("SetAppealStatus() error = %v", err)
	}

	got, err := repo.GetAppeal(ctx, appeal.AppealID)
	if err != nil {
		t.Fatalf("GetAppeal() error = %v", err)
	}
	if !got.Assigned() || *got.AssignedOperatorID != operator.OperatorID {
		t.Fatalf("assigned_operator_id = %v, want %d", got.AssignedOperatorID, operator.OperatorID)
	}
	if got.Status != routing.AppealResolved {
		t.Fatalf("status = %s, want RESOLVED", got.Status)
	}

	leads, err := repo.ListLeadsWithAppeals(ctx)
	if err != nil {
		t.Fatalf("ListLeadsWithAppeals() error = %v", err)
	}
	if len(leads) != 1 || leads[0].LeadID != 100 || len(leads[0].Appeals) != 1 {
		t.Fatalf("ListLeadsWithAppeals() = %+v", leads)
	}

	distribution, err := repo.AppealDistribution(ctx, 0)
	if err != nil {
		t.Fatalf("AppealDistribution() error = %v", err)
	}
	if len(distribution) != 1 || distribution[0].OperatorID != operator.OperatorID || distribution[0].Appeals != 1 {
		t.Fatalf("AppealDistribution() = %+v", distribution)
	}

	active, err := repo.ListAppeals(ctx, ports.AppealFilter{OnlyActive: true})
	if err != nil {
		t.Fatalf("ListAppeals() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ListAppeals(OnlyActive) len = %d, want 0", len(active))
	}
}
