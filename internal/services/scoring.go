package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/apierr"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/repos"
	"github.com/hackfest/judging-backend/internal/types"
)

// CriterionInput is one weighted score line submitted by a judge.
type CriterionInput struct {
	Criterion string          `json:"criterion"`
	Score     decimal.Decimal `json:"score"`
	Weight    decimal.Decimal `json:"weight"`
}

type ScoringService interface {
	SubmitScore(ctx context.Context, judgeID, submissionID, competitionID uuid.UUID, comments string, criteria []CriterionInput) (*types.JudgeRecord, error)
	ReviseScore(ctx context.Context, judgeID, submissionID uuid.UUID, comments string, criteria []CriterionInput) (*types.JudgeRecord, error)
	Recalculate(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error
}

type scoringService struct {
	db          *gorm.DB
	log         *logger.Logger
	eligibility EligibilityService
	submissions repos.SubmissionRepo
	records     repos.JudgeRecordRepo
	criteria    repos.CriterionScoreRepo
}

func NewScoringService(
	db *gorm.DB,
	baseLog *logger.Logger,
	eligibility EligibilityService,
	submissions repos.SubmissionRepo,
	records repos.JudgeRecordRepo,
	criteria repos.CriterionScoreRepo,
) ScoringService {
	return &scoringService{
		db:          db,
		log:         baseLog.With("service", "ScoringService"),
		eligibility: eligibility,
		submissions: submissions,
		records:     records,
		criteria:    criteria,
	}
}

// weightedTotal computes round2(sum(score_i * weight_i)), half-up.
func weightedTotal(criteria []CriterionInput) decimal.Decimal {
	total := decimal.Zero
	for _, c := range criteria {
		total = total.Add(c.Score.Mul(c.Weight))
	}
	return total.Round(2)
}

func validateCriteria(criteria []CriterionInput) error {
	if len(criteria) == 0 {
		return apierr.New(http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("at least one criterion score is required"))
	}
	for i := range criteria {
		criteria[i].Criterion = strings.TrimSpace(criteria[i].Criterion)
		if criteria[i].Criterion == "" {
			return apierr.New(http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("criterion name required"))
		}
	}
	return nil
}

func (s *scoringService) SubmitScore(ctx context.Context, judgeID, submissionID, competitionID uuid.UUID, comments string, criteria []CriterionInput) (*types.JudgeRecord, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}

	var record *types.JudgeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.submissions.GetByIDs(ctx, tx, []uuid.UUID{submissionID})
		if err != nil {
			return fmt.Errorf("submission lookup: %w", err)
		}
		if len(found) == 0 || found[0] == nil {
			return ErrSubmissionNotFound
		}

		if err := s.eligibility.Check(ctx, tx, judgeID, competitionID, submissionID, OpScore); err != nil {
			return err
		}

		now := time.Now().UTC()
		record = &types.JudgeRecord{
			ID:            uuid.New(),
			JudgeID:       judgeID,
			SubmissionID:  submissionID,
			CompetitionID: competitionID,
			TotalScore:    weightedTotal(criteria),
			Comments:      comments,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.records.Create(ctx, tx, record); err != nil {
			// The unique index on (judge_id, submission_id) is the
			// authoritative AlreadyJudged guard; the eligibility check above
			// is check-then-act and can lose a race.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJudged
			}
			return fmt.Errorf("create judge record: %w", err)
		}

		rows := criterionRows(record.ID, criteria, now)
		if _, err := s.criteria.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("create criterion scores: %w", err)
		}

		return s.recalculate(ctx, tx, submissionID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Score submitted",
		"judge_id", judgeID,
		"submission_id", submissionID,
		"competition_id", competitionID,
		"total", record.TotalScore.String(),
	)
	return record, nil
}

func (s *scoringService) ReviseScore(ctx context.Context, judgeID, submissionID uuid.UUID, comments string, criteria []CriterionInput) (*types.JudgeRecord, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}

	var record *types.JudgeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.records.GetByJudgeAndSubmission(ctx, tx, judgeID, submissionID)
		if err != nil {
			return fmt.Errorf("judge record lookup: %w", err)
		}
		if existing == nil {
			return ErrNoExistingRecord
		}

		if err := s.eligibility.Check(ctx, tx, judgeID, existing.CompetitionID, submissionID, OpRescore); err != nil {
			return err
		}

		now := time.Now().UTC()
		total := weightedTotal(criteria)
		if err := s.records.UpdateScore(ctx, tx, existing.ID, total, comments, now); err != nil {
			return fmt.Errorf("update judge record: %w", err)
		}

		// Full replace, not merge.
		if err := s.criteria.DeleteByJudgeRecordID(ctx, tx, existing.ID); err != nil {
			return fmt.Errorf("delete criterion scores: %w", err)
		}
		rows := criterionRows(existing.ID, criteria, now)
		if _, err := s.criteria.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("create criterion scores: %w", err)
		}

		existing.TotalScore = total
		existing.Comments = comments
		existing.UpdatedAt = now
		record = existing

		return s.recalculate(ctx, tx, submissionID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Score revised",
		"judge_id", judgeID,
		"submission_id", submissionID,
		"total", record.TotalScore.String(),
	)
	return record, nil
}

// Recalculate refreshes the submission's aggregate score from all of its
// judge-record totals. Outside a scoring call it runs in its own transaction.
func (s *scoringService) Recalculate(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error {
	if tx != nil {
		return s.recalculate(ctx, tx, submissionID)
	}
	return s.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		return s.recalculate(ctx, inner, submissionID)
	})
}

func (s *scoringService) recalculate(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error {
	// Row lock so concurrent recalculations for the same submission
	// serialize instead of last-writer-wins over a stale total set.
	sub, err := s.submissions.LockByID(ctx, tx, submissionID)
	if err != nil {
		return fmt.Errorf("lock submission: %w", err)
	}
	if sub == nil {
		return ErrSubmissionNotFound
	}

	records, err := s.records.GetBySubmissionID(ctx, tx, submissionID)
	if err != nil {
		return fmt.Errorf("load judge records: %w", err)
	}
	if len(records) == 0 {
		return ErrNoScoresFound
	}

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.TotalScore)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(records)))).Round(2)

	if err := s.submissions.UpdateAggregateScore(ctx, tx, submissionID, mean, time.Now().UTC()); err != nil {
		return fmt.Errorf("update aggregate score: %w", err)
	}
	return nil
}

func criterionRows(judgeRecordID uuid.UUID, criteria []CriterionInput, at time.Time) []*types.CriterionScore {
	rows := make([]*types.CriterionScore, 0, len(criteria))
	for _, c := range criteria {
		rows = append(rows, &types.CriterionScore{
			ID:            uuid.New(),
			JudgeRecordID: judgeRecordID,
			Criterion:     c.Criterion,
			Score:         c.Score,
			Weight:        c.Weight,
			CreatedAt:     at,
		})
	}
	return rows
}
