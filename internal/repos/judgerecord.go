package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/types"
)

type JudgeRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.JudgeRecord) error
	GetByJudgeAndSubmission(ctx context.Context, tx *gorm.DB, judgeID, submissionID uuid.UUID) (*types.JudgeRecord, error)
	GetBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.JudgeRecord, error)
	GetBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.JudgeRecord, error)
	UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total decimal.Decimal, comments string, at time.Time) error
	CountDistinctJudges(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (int64, error)
	CountJudgesBySubmission(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (map[uuid.UUID]int64, error)
}

type judgeRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJudgeRecordRepo(db *gorm.DB, baseLog *logger.Logger) JudgeRecordRepo {
	repoLog := baseLog.With("repo", "JudgeRecordRepo")
	return &judgeRecordRepo{db: db, log: repoLog}
}

func (r *judgeRecordRepo) Create(ctx context.Context, tx *gorm.DB, row *types.JudgeRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).Create(row).Error
}

func (r *judgeRecordRepo) GetByJudgeAndSubmission(ctx context.Context, tx *gorm.DB, judgeID, submissionID uuid.UUID) (*types.JudgeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.JudgeRecord
	if err := transaction.WithContext(ctx).
		Where("judge_id = ? AND submission_id = ?", judgeID, submissionID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *judgeRecordRepo) GetBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.JudgeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.JudgeRecord
	if submissionID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *judgeRecordRepo) GetBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.JudgeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.JudgeRecord
	if len(submissionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *judgeRecordRepo) UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total decimal.Decimal, comments string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.JudgeRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_score": total,
			"comments":    comments,
			"updated_at":  at,
		}).Error
}

func (r *judgeRecordRepo) CountDistinctJudges(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.JudgeRecord{}).
		Where("competition_id = ?", competitionID).
		Distinct("judge_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *judgeRecordRepo) CountJudgesBySubmission(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) (map[uuid.UUID]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		SubmissionID uuid.UUID
		JudgeCount   int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.JudgeRecord{}).
		Select("submission_id, COUNT(DISTINCT judge_id) AS judge_count").
		Where("competition_id = ?", competitionID).
		Group("submission_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.SubmissionID] = row.JudgeCount
	}
	return counts, nil
}
