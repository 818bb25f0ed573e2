package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
	"leadrouter/internal/infrastructure/persistence/sqlite/model"
	"leadrouter/internal/ports"
)

type RoutingRepository struct {
	db *gorm.DB
}

var _ ports.RoutingRepository = (*RoutingRepository)(nil)

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

func (r *RoutingRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *RoutingRepository) GetAppeal(ctx context.Context, appealID uint64) (routing.Appeal, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.Appeal{}, err
	}

	var row model.Appeal
	if err := db.Where("appeal_id = ?", appealID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return routing.Appeal{}, routing.ErrAppealNotFound
		}
		return routing.Appeal{}, errs.Wrap(err, "query appeal by id")
	}
	return mapAppeal(row), nil
}

func (r *RoutingRepository) GetOperator(ctx context.Context, operatorID uint64) (routing.Operator, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.Operator{}, err
	}

	var row model.Operator
	if err := db.Where("operator_id = ?", operatorID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return routing.Operator{}, routing.ErrOperatorNotFound
		}
		return routing.Operator{}, errs.Wrap(err, "query operator by id")
	}
	return mapOperator(row), nil
}

func (r *RoutingRepository) GetLeadSource(ctx context.Context, leadSourceID uint64) (routing.LeadSource, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.LeadSource{}, err
	}

	var row model.LeadSource
	if err := db.Where("lead_source_id = ?", leadSourceID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return routing.LeadSource{}, routing.ErrLeadSourceNotFound
		}
		return routing.LeadSource{}, errs.Wrap(err, "query lead source by id")
	}
	return routing.LeadSource{
		LeadSourceID: row.LeadSourceID,
		Type:         routing.LeadSourceType(row.Type),
		CreatedAt:    row.CreatedAt,
	}, nil
}

type candidateRow struct {
	OperatorID         uint64
	Status             string
	ActiveAppeals      int
	ActiveAppealsLimit int
	CreatedAt          string
	RoutingFactor      int64
}

func (r *RoutingRepository) ListCandidates(ctx context.Context, leadSourceID uint64) ([]routing.Candidate, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []candidateRow
	if err := db.
		Table("lead_source_operators").
		Select("operators.operator_id, operators.status, operators.active_appeals, operators.active_appeals_limit, operators.created_at, lead_source_operators.routing_factor").
		Joins("JOIN operators ON operators.operator_id = lead_source_operators.operator_id").
		Where("lead_source_operators.lead_source_id = ?", leadSourceID).
		Where("operators.status = ?", string(routing.OperatorActive)).
		Where("operators.active_appeals < operators.active_appeals_limit").
		Order("lead_source_operators.id asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query routing candidates")
	}

	candidates := make([]routing.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, routing.Candidate{
			Operator: routing.Operator{
				OperatorID:         row.OperatorID,
				Status:             routing.OperatorStatus(row.Status),
				ActiveAppeals:      row.ActiveAppeals,
				ActiveAppealsLimit: row.ActiveAppealsLimit,
				CreatedAt:          row.CreatedAt,
			},
			RoutingFactor: row.RoutingFactor,
		})
	}
	return candidates, nil
}

func (r *RoutingRepository) ListOperators(ctx context.Context) ([]routing.Operator, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Operator
	if err := db.Order("operator_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query operators")
	}

	operators := make([]routing.Operator, 0, len(rows))
	for _, row := range rows {
		operators = append(operators, mapOperator(row))
	}
	return operators, nil
}

func (r *RoutingRepository) ListAppeals(ctx context.Context, filter ports.AppealFilter) ([]routing.Appeal, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Appeal{})
	if filter.LeadSourceID != 0 {
		query = query.Where("lead_source_id = ?", filter.LeadSourceID)
	}
	if filter.LeadID != 0 {
		query = query.Where("lead_id = ?", filter.LeadID)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", string(routing.AppealActive))
	}

	var rows []model.Appeal
	if err := query.Order("appeal_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query appeals")
	}

	appeals := make([]routing.Appeal, 0, len(rows))
	for _, row := range rows {
		appeals = append(appeals, mapAppeal(row))
	}
	return appeals, nil
}

func (r *RoutingRepository) ListLeadsWithAppeals(ctx context.Context) ([]ports.LeadWithAppeals, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var leads []model.Lead
	if err := db.Order("lead_id asc").Find(&leads).Error; err != nil {
		return nil, errs.Wrap(err, "query leads")
	}

	var appeals []model.Appeal
	if err := db.Order("appeal_id asc").Find(&appeals).Error; err != nil {
		return nil, errs.Wrap(err, "query appeals for leads")
	}

	byLead := make(map[uint64][]routing.Appeal, len(leads))
	for _, row := range appeals {
		byLead[row.LeadID] = append(byLead[row.LeadID], mapAppeal(row))
	}

	items := make([]ports.LeadWithAppeals, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ports.LeadWithAppeals{
			LeadID:    lead.LeadID,
			CreatedAt: lead.CreatedAt,
			Appeals:   byLead[lead.LeadID],
		})
	}
	return items, nil
}

func (r *RoutingRepository) AppealDistribution(ctx context.Context, leadSourceID uint64) ([]ports.DistributionItem, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Appeal{}).
		Select("assigned_operator_id as operator_id, count(*) as appeals").
		Where("assigned_operator_id IS NOT NULL")
	if leadSourceID != 0 {
		query = query.Where("lead_source_id = ?", leadSourceID)
	}

	var items []ports.DistributionItem
	if err := query.
		Group("assigned_operator_id").
		Order("assigned_operator_id asc").
		Scan(&items).Error; err != nil {
		return nil, errs.Wrap(err, "query appeal distribution")
	}
	return items, nil
}

func (r *RoutingRepository) CreateOperator(ctx context.Context, operator routing.Operator) (routing.Operator, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.Operator{}, err
	}

	row := model.Operator{
		OperatorID:         operator.OperatorID,
		Status:             string(operator.Status),
		ActiveAppeals:      operator.ActiveAppeals,
		ActiveAppealsLimit: operator.ActiveAppealsLimit,
		CreatedAt:          operator.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return routing.Operator{}, errs.Wrap(err, "insert operator")
	}
	return mapOperator(row), nil
}

func (r *RoutingRepository) CreateLeadSource(ctx context.Context, source routing.LeadSource) (routing.LeadSource, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.LeadSource{}, err
	}

	row := model.LeadSource{
		LeadSourceID: source.LeadSourceID,
		Type:         string(source.Type),
		CreatedAt:    source.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return routing.LeadSource{}, errs.Wrap(err, "insert lead source")
	}
	return routing.LeadSource{
		LeadSourceID: row.LeadSourceID,
		Type:         routing.LeadSourceType(row.Type),
		CreatedAt:    row.CreatedAt,
	}, nil
}

func (r *RoutingRepository) BindOperator(ctx context.Context, leadSourceID uint64, operatorID uint64, routingFactor int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	if routingFactor < 0 {
		return routing.ErrInvalidRoutingFactor
	}

	if _, err := r.GetLeadSource(ctx, leadSourceID); err != nil {
		return err
	}
	if _, err := r.GetOperator(ctx, operatorID); err != nil {
		return err
	}

	row := model.LeadSourceOperator{
		LeadSourceID:  leadSourceID,
		OperatorID:    operatorID,
		RoutingFactor: routingFactor,
		CreatedAt:     nowRFC3339(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lead_source_id"}, {Name: "operator_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"routing_factor": row.RoutingFactor,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert routing edge")
	}
	return nil
}

func (r *RoutingRepository) EnsureLead(ctx context.Context, leadID uint64, createdAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Lead{LeadID: leadID, CreatedAt: createdAt}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "ensure lead")
	}
	return nil
}

func (r *RoutingRepository) CreateAppeal(ctx context.Context, appeal routing.Appeal) (routing.Appeal, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return routing.Appeal{}, err
	}

	row := model.Appeal{
		Status:             string(appeal.Status),
		CreatedAt:          appeal.CreatedAt,
		LeadID:             appeal.LeadID,
		LeadSourceID:       appeal.LeadSourceID,
		AssignedOperatorID: appeal.AssignedOperatorID,
	}
	if err := db.Create(&row).Error; err != nil {
		return routing.Appeal{}, errs.Wrap(err, "insert appeal")
	}
	return mapAppeal(row), nil
}

func (r *RoutingRepository) SetAssignedOperator(ctx context.Context, appealID uint64, operatorID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Appeal{}).
		Where("appeal_id = ?", appealID).
		UpdateColumn("assigned_operator_id", operatorID)
	if result.Error != nil {
		return errs.Wrap(result.Error, "set assigned operator")
	}
	if result.RowsAffected == 0 {
		return routing.ErrAppealNotFound
	}
	return nil
}

func (r *RoutingRepository) SetAppealStatus(ctx context.Context, appealID uint64, status routing.AppealStatus) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Appeal{}).
		Where("appeal_id = ?", appealID).
		UpdateColumn("status", string(status))
	if result.Error != nil {
		return errs.Wrap(result.Error, "set appeal status")
	}
	if result.RowsAffected == 0 {
		return routing.ErrAppealNotFound
	}
	return nil
}

func (r *RoutingRepository) ReserveOperatorSlot(ctx context.Context, operatorID uint64) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	// Conditional increment: takes the slot only while below the limit, so
	// concurrent workers cannot push the ledger past it.
	result := db.Model(&model.Operator{}).
		Where("operator_id = ? AND active_appeals < active_appeals_limit", operatorID).
		UpdateColumn("active_appeals", gorm.Expr("active_appeals + 1"))
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "reserve operator slot")
	}
	return result.RowsAffected == 1, nil
}

func (r *RoutingRepository) AdjustOperatorLoad(ctx context.Context, operatorID uint64, delta int) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}

	result := db.Model(&model.Operator{}).
		Where("operator_id = ?", operatorID).
		UpdateColumn("active_appeals", gorm.Expr("MAX(active_appeals + ?, 0)", delta))
	if result.Error != nil {
		return errs.Wrap(result.Error, "adjust operator load")
	}
	if result.RowsAffected == 0 {
		return routing.ErrOperatorNotFound
	}
	return nil
}

func mapOperator(row model.Operator) routing.Operator {
	return routing.Operator{
		OperatorID:         row.OperatorID,
		Status:             routing.OperatorStatus(row.Status),
		ActiveAppeals:      row.ActiveAppeals,
		ActiveAppealsLimit: row.ActiveAppealsLimit,
		CreatedAt:          row.CreatedAt,
	}
}

func mapAppeal(row model.Appeal) routing.Appeal {
	return routing.Appeal{
		AppealID:           row.AppealID,
		Status:             routing.AppealStatus(row.Status),
		CreatedAt:          row.CreatedAt,
		LeadID:             row.LeadID,
		LeadSourceID:       row.LeadSourceID,
		AssignedOperatorID: row.AssignedOperatorID,
	}
}
