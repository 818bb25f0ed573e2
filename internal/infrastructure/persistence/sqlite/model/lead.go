package model

type Lead struct {
	LeadID    uint64 `gorm:"column:lead_id;primaryKey"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Lead) TableName() string {
	return "leads"
}
