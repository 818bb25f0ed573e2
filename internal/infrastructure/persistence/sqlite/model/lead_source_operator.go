package model

type LeadSourceOperator struct {
	ID            uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	LeadSourceID  uint64 `gorm:"column:lead_source_id;not null;uniqueIndex:idx_lead_source_operator"`
	OperatorID    uint64 `gorm:"column:operator_id;not null;uniqueIndex:idx_lead_source_operator"`
	RoutingFactor int64  `gorm:"column:routing_factor;not null;default:0"`
	CreatedAt     string `gorm:"column:created_at;type:text;not null"`
}

func (LeadSourceOperator) TableName() string {
	return "lead_source_operators"
}
