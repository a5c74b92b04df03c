package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	AwardChampion       = "Champion"
	AwardRunnerUp       = "Runner-up"
	AwardSecondRunnerUp = "Second Runner-up"
)

// AwardRecord is one allocated award. Rank is set for the three placement
// awards and null for category ("Best in X") awards. The whole set for a
// competition is replaced each allocation run.
type AwardRecord struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CompetitionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"competition_id"`
	SubmissionID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"submission_id"`
	Submission    *Submission `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubmissionID;references:ID" json:"submission,omitempty"`
	Name          string      `gorm:"column:name;not null" json:"name"`
	Rank          *int        `gorm:"column:rank" json:"rank,omitempty"`
	CreatedAt     time.Time   `gorm:"not null" json:"created_at"`
}

func (AwardRecord) TableName() string { return "award_record" }
