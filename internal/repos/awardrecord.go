package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/types"
)

type AwardRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.AwardRecord) ([]*types.AwardRecord, error)
	GetByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) ([]*types.AwardRecord, error)
	DeleteByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) error
}

type awardRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAwardRecordRepo(db *gorm.DB, baseLog *logger.Logger) AwardRecordRepo {
	repoLog := baseLog.With("repo", "AwardRecordRepo")
	return &awardRecordRepo{db: db, log: repoLog}
}

func (r *awardRecordRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.AwardRecord) ([]*types.AwardRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.AwardRecord{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *awardRecordRepo) GetByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) ([]*types.AwardRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AwardRecord
	if competitionID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *awardRecordRepo) DeleteByCompetitionID(ctx context.Context, tx *gorm.DB, competitionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if competitionID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Delete(&types.AwardRecord{}).Error
}
