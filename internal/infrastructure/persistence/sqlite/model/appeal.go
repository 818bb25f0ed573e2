package model

type Appeal struct {
	AppealID           uint64  `gorm:"column:appeal_id;primaryKey;autoIncrement"`
	Status             string  `gorm:"column:status;type:text;not null;default:ACTIVE"`
	CreatedAt          string  `gorm:"column:created_at;type:text;not null"`
	LeadID             uint64  `gorm:"column:lead_id;not null;index"`
	LeadSourceID       uint64  `gorm:"column:lead_source_id;not null;index"`
	AssignedOperatorID *uint64 `gorm:"column:assigned_operator_id;index"`
}

func (Appeal) TableName() string {
	return "appeals"
}
