package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/types"
)

type ScoreStatistics struct {
	Average *decimal.Decimal `json:"average"`
	Max     *decimal.Decimal `json:"max"`
	Min     *decimal.Decimal `json:"min"`
}

type SubmissionRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Submission, error)
	GetByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID, scoredOnly bool) ([]*types.Submission, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Submission, error)
	UpdateAggregateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score decimal.Decimal, at time.Time) error
	ScoreStatistics(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (*ScoreStatistics, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (r *submissionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Submission
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionRepo) GetByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID, scoredOnly bool) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Submission
	if competitionID == uuid.Nil {
		return results, nil
	}

	q := transaction.WithContext(ctx).
		Where("competition_id = ? AND status = ?", competitionID, types.SubmissionStatusApproved)
	if scoredOnly {
		q = q.Where("aggregate_score IS NOT NULL")
	}
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// LockByID loads the submission row under FOR UPDATE so concurrent aggregate
// recalculations for the same submission serialize. sqlite has no row locks
// (the whole file locks on write), so the clause is skipped there.
func (r *submissionRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx)
	if transaction.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row types.Submission
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *submissionRepo) UpdateAggregateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score decimal.Decimal, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"aggregate_score":  score,
			"score_updated_at": at,
			"updated_at":       at,
		}).Error
}

func (r *submissionRepo) ScoreStatistics(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (*ScoreStatistics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var stats ScoreStatistics
	if err := transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Select("AVG(aggregate_score) AS average, MAX(aggregate_score) AS max, MIN(aggregate_score) AS min").
		Where("competition_id = ? AND status = ? AND aggregate_score IS NOT NULL", competitionID, types.SubmissionStatusApproved).
		Scan(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
