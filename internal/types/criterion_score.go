package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CriterionScore is one weighted score line under a judge record. Rows are
// immutable; a revision deletes the old set and inserts a new one.
type CriterionScore struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JudgeRecordID uuid.UUID       `gorm:"type:uuid;not null;index" json:"judge_record_id"`
	JudgeRecord   *JudgeRecord    `gorm:"constraint:OnDelete:CASCADE;foreignKey:JudgeRecordID;references:ID" json:"judge_record,omitempty"`
	Criterion     string          `gorm:"column:criterion;not null" json:"criterion"`
	Score         decimal.Decimal `gorm:"type:numeric(10,2);column:score;not null" json:"score"`
	// Weight is meant to be in [0,1] but is not enforced at the storage layer.
	Weight    decimal.Decimal `gorm:"type:numeric(6,4);column:weight;not null" json:"weight"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (CriterionScore) TableName() string { return "criterion_score" }
