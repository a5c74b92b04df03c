package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/clients/competition"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/repos"
)

type EligibilityOp string

const (
	OpScore   EligibilityOp = "score"
	OpRescore EligibilityOp = "rescore"
)

// EligibilityService decides whether a judge may score or rescore a
// submission. Pure read-and-decide; no side effects.
type EligibilityService interface {
	Check(ctx context.Context, tx *gorm.DB, judgeID, competitionID, submissionID uuid.UUID, op EligibilityOp) error
}

type eligibilityService struct {
	db           *gorm.DB
	log          *logger.Logger
	competitions competition.Client
	records      repos.JudgeRecordRepo
}

func NewEligibilityService(db *gorm.DB, baseLog *logger.Logger, competitions competition.Client, records repos.JudgeRecordRepo) EligibilityService {
	return &eligibilityService{
		db:           db,
		log:          baseLog.With("service", "EligibilityService"),
		competitions: competitions,
		records:      records,
	}
}

// Check evaluates the rules in order: assignment, competition ended,
// record existence for the requested operation.
func (s *eligibilityService) Check(ctx context.Context, tx *gorm.DB, judgeID, competitionID, submissionID uuid.UUID, op EligibilityOp) error {
	if judgeID == uuid.Nil || competitionID == uuid.Nil || submissionID == uuid.Nil {
		return fmt.Errorf("judge, competition and submission ids required")
	}

	assigned, err := s.competitions.IsAssignedJudge(ctx, competitionID, judgeID)
	if err != nil {
		return fmt.Errorf("%w: judge assignment lookup: %v", ErrUpstreamUnavailable, err)
	}
	if !assigned {
		return ErrNotAssigned
	}

	comp, err := s.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return fmt.Errorf("%w: competition lookup: %v", ErrUpstreamUnavailable, err)
	}
	if !judgingOpen(comp) {
		return ErrCompetitionNotEnded
	}

	existing, err := s.records.GetByJudgeAndSubmission(ctx, tx, judgeID, submissionID)
	if err != nil {
		return fmt.Errorf("judge record lookup: %w", err)
	}
	switch op {
	case OpScore:
		if existing != nil {
			return ErrAlreadyJudged
		}
	case OpRescore:
		if existing == nil {
			return ErrNoExistingRecord
		}
	default:
		return fmt.Errorf("unknown eligibility operation %q", op)
	}
	return nil
}

// judgingOpen reports whether the competition has reached a judging-eligible
// terminal state: COMPLETED, or its end date already passed.
func judgingOpen(comp *competition.Competition) bool {
	if comp == nil {
		return false
	}
	if comp.Status == competition.StatusCompleted {
		return true
	}
	return comp.EndDate != nil && comp.EndDate.Before(time.Now().UTC())
}
