package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/repos"
)

// firstCriterionValues builds, per submission, a criterion -> score map that
// takes the first value encountered walking judge records in created_at then
// id order. When several judges scored the same criterion, the later values
// are ignored rather than averaged; both the organizer listing and the
// category awards read scores through this helper so the two surfaces agree.
func firstCriterionValues(
	ctx context.Context,
	tx *gorm.DB,
	records repos.JudgeRecordRepo,
	criteria repos.CriterionScoreRepo,
	submissionIDs []uuid.UUID,
) (map[uuid.UUID]map[string]decimal.Decimal, error) {
	out := make(map[uuid.UUID]map[string]decimal.Decimal, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return out, nil
	}

	recs, err := records.GetBySubmissionIDs(ctx, tx, submissionIDs)
	if err != nil {
		return nil, err
	}
	recordIDs := make([]uuid.UUID, 0, len(recs))
	recordSubmission := make(map[uuid.UUID]uuid.UUID, len(recs))
	for _, r := range recs {
		recordIDs = append(recordIDs, r.ID)
		recordSubmission[r.ID] = r.SubmissionID
	}

	rows, err := criteria.GetByJudgeRecordIDs(ctx, tx, recordIDs)
	if err != nil {
		return nil, err
	}
	byRecord := make(map[uuid.UUID][]int, len(recs))
	for i, row := range rows {
		byRecord[row.JudgeRecordID] = append(byRecord[row.JudgeRecordID], i)
	}

	// Walk records in their fetched (created_at, id) order so "first
	// encountered" is deterministic.
	for _, r := range recs {
		subID := recordSubmission[r.ID]
		values := out[subID]
		if values == nil {
			values = make(map[string]decimal.Decimal)
			out[subID] = values
		}
		for _, i := range byRecord[r.ID] {
			row := rows[i]
			if _, seen := values[row.Criterion]; !seen {
				values[row.Criterion] = row.Score
			}
		}
	}
	return out, nil
}
