package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JudgeRecord is one judge's scoring episode for one submission. The composite
// unique index is the authoritative one-record-per-(judge, submission) guard;
// the application-level existence check alone is racy.
type JudgeRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JudgeID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_judge_submission,unique" json:"judge_id"`
	SubmissionID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_judge_submission,unique" json:"submission_id"`
	Submission    *Submission     `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubmissionID;references:ID" json:"submission,omitempty"`
	CompetitionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"competition_id"`
	TotalScore    decimal.Decimal `gorm:"type:numeric(10,2);column:total_score;not null" json:"total_score"`
	Comments      string          `gorm:"column:comments" json:"comments"`
	Metadata      datatypes.JSON  `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (JudgeRecord) TableName() string { return "judge_record" }
