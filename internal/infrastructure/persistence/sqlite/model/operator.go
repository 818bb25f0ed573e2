package model

type Operator struct {
	OperatorID         uint64 `gorm:"column:operator_id;primaryKey;autoIncrement"`
	Status             string `gorm:"column:status;type:text;not null"`
	ActiveAppeals      int    `gorm:"column:active_appeals;not null;default:0"`
	ActiveAppealsLimit int    `gorm:"column:active_appeals_limit;not null;default:0"`
	CreatedAt          string `gorm:"column:created_at;type:text;not null"`
}

func (Operator) TableName() string {
	return "operators"
}
