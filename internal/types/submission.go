package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const SubmissionStatusApproved = "APPROVED"

// Submission rows are owned by the intake subsystem; this service only reads
// them and maintains the derived aggregate score columns.
type Submission struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CompetitionID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"competition_id"`
	Title           string           `gorm:"column:title;not null" json:"title"`
	Description     string           `gorm:"column:description" json:"description"`
	Status          string           `gorm:"column:status;not null;default:'APPROVED'" json:"status"`
	SubmitterUserID *uuid.UUID       `gorm:"type:uuid;column:submitter_user_id" json:"submitter_user_id,omitempty"`
	TeamID          *uuid.UUID       `gorm:"type:uuid;column:team_id" json:"team_id,omitempty"`
	AggregateScore  *decimal.Decimal `gorm:"type:numeric(10,2);column:aggregate_score" json:"aggregate_score,omitempty"`
	ScoreUpdatedAt  *time.Time       `gorm:"column:score_updated_at" json:"score_updated_at,omitempty"`
	Metadata        datatypes.JSON   `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Submission) TableName() string { return "submission" }
