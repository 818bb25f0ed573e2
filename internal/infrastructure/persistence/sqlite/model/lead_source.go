package model

type LeadSource struct {
	LeadSourceID uint64 `gorm:"column:lead_source_id;primaryKey;autoIncrement"`
	Type         string `gorm:"column:type;type:text;not null;default:BOT"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null"`
}

func (LeadSource) TableName() string {
	return "lead_sources"
}
