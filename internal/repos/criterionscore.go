package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/types"
)

type CriterionScoreRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.CriterionScore) ([]*types.CriterionScore, error)
	GetByJudgeRecordIDs(ctx context.Context, tx *gorm.DB, judgeRecordIDs []uuid.UUID) ([]*types.CriterionScore, error)
	DeleteByJudgeRecordID(ctx context.Context, tx *gorm.DB, judgeRecordID uuid.UUID) error
}

type criterionScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCriterionScoreRepo(db *gorm.DB, baseLog *logger.Logger) CriterionScoreRepo {
	repoLog := baseLog.With("repo", "CriterionScoreRepo")
	return &criterionScoreRepo{db: db, log: repoLog}
}

func (r *criterionScoreRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.CriterionScore) ([]*types.CriterionScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.CriterionScore{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *criterionScoreRepo) GetByJudgeRecordIDs(ctx context.Context, tx *gorm.DB, judgeRecordIDs []uuid.UUID) ([]*types.CriterionScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CriterionScore
	if len(judgeRecordIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("judge_record_id IN ?", judgeRecordIDs).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *criterionScoreRepo) DeleteByJudgeRecordID(ctx context.Context, tx *gorm.DB, judgeRecordID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if judgeRecordID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("judge_record_id = ?", judgeRecordID).
		Delete(&types.CriterionScore{}).Error
}
