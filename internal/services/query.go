package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/repos"
	"github.com/hackfest/judging-backend/internal/types"
)

// judgingQuorum is the minimum distinct-judge count for a submission to show
// up in the organizer review listing. Award allocation intentionally does not
// apply it.
const judgingQuorum = 3

const (
	SortByScore = "score"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

type ListScoredParams struct {
	Keyword string
	// SortBy is "score" (the aggregate) or a criterion name.
	SortBy string
	Order  string
	Page   int
	Size   int
}

type ScoredSubmission struct {
	Submission      *types.Submission          `json:"submission"`
	JudgeCount      int64                      `json:"judge_count"`
	CriterionScores map[string]decimal.Decimal `json:"criterion_scores"`
}

type QueryService interface {
	ListScored(ctx context.Context, competitionID uuid.UUID, params ListScoredParams) ([]*ScoredSubmission, int64, error)
	ScoreStatistics(ctx context.Context, competitionID uuid.UUID) (*repos.ScoreStatistics, error)
	JudgeCount(ctx context.Context, competitionID uuid.UUID) (int64, error)
}

type queryService struct {
	db          *gorm.DB
	log         *logger.Logger
	submissions repos.SubmissionRepo
	records     repos.JudgeRecordRepo
	criteria    repos.CriterionScoreRepo
}

func NewQueryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	submissions repos.SubmissionRepo,
	records repos.JudgeRecordRepo,
	criteria repos.CriterionScoreRepo,
) QueryService {
	return &queryService{
		db:          db,
		log:         baseLog.With("service", "QueryService"),
		submissions: submissions,
		records:     records,
		criteria:    criteria,
	}
}

func (s *queryService) ListScored(ctx context.Context, competitionID uuid.UUID, params ListScoredParams) ([]*ScoredSubmission, int64, error) {
	if competitionID == uuid.Nil {
		return nil, 0, fmt.Errorf("competition id required")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size < 1 {
		params.Size = 20
	}

	subs, err := s.submissions.GetByCompetitionID(ctx, nil, competitionID, true)
	if err != nil {
		return nil, 0, fmt.Errorf("load submissions: %w", err)
	}

	counts, err := s.records.CountJudgesBySubmission(ctx, nil, competitionID)
	if err != nil {
		return nil, 0, fmt.Errorf("count judges: %w", err)
	}

	keyword := strings.ToLower(strings.TrimSpace(params.Keyword))
	filtered := make([]*types.Submission, 0, len(subs))
	for _, sub := range subs {
		if counts[sub.ID] < judgingQuorum {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(sub.Title), keyword) {
			continue
		}
		filtered = append(filtered, sub)
	}

	ids := make([]uuid.UUID, 0, len(filtered))
	for _, sub := range filtered {
		ids = append(ids, sub.ID)
	}
	criterionValues, err := firstCriterionValues(ctx, nil, s.records, s.criteria, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load criterion scores: %w", err)
	}

	results := make([]*ScoredSubmission, 0, len(filtered))
	for _, sub := range filtered {
		values := criterionValues[sub.ID]
		if values == nil {
			values = map[string]decimal.Decimal{}
		}
		results = append(results, &ScoredSubmission{
			Submission:      sub,
			JudgeCount:      counts[sub.ID],
			CriterionScores: values,
		})
	}

	sortScored(results, params.SortBy, params.Order)

	total := int64(len(results))
	start := (params.Page - 1) * params.Size
	if start >= len(results) {
		return []*ScoredSubmission{}, total, nil
	}
	end := start + params.Size
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], total, nil
}

// sortScored orders by the aggregate score or a named criterion's exposed
// value, ties broken by submission id for determinism. Submissions without a
// value for the named criterion sort after those with one.
func sortScored(results []*ScoredSubmission, sortBy, order string) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		sortBy = SortByScore
	}
	desc := strings.ToLower(strings.TrimSpace(order)) != OrderAsc

	value := func(r *ScoredSubmission) (decimal.Decimal, bool) {
		if sortBy == SortByScore {
			if r.Submission.AggregateScore == nil {
				return decimal.Zero, false
			}
			return *r.Submission.AggregateScore, true
		}
		v, ok := r.CriterionScores[sortBy]
		return v, ok
	}

	sort.SliceStable(results, func(i, j int) bool {
		vi, oki := value(results[i])
		vj, okj := value(results[j])
		if oki != okj {
			return oki
		}
		if oki && okj && !vi.Equal(vj) {
			if desc {
				return vi.GreaterThan(vj)
			}
			return vi.LessThan(vj)
		}
		return results[i].Submission.ID.String() < results[j].Submission.ID.String()
	})
}

func (s *queryService) ScoreStatistics(ctx context.Context, competitionID uuid.UUID) (*repos.ScoreStatistics, error) {
	if competitionID == uuid.Nil {
		return nil, fmt.Errorf("competition id required")
	}
	stats, err := s.submissions.ScoreStatistics(ctx, nil, competitionID)
	if err != nil {
		return nil, fmt.Errorf("score statistics: %w", err)
	}
	return stats, nil
}

func (s *queryService) JudgeCount(ctx context.Context, competitionID uuid.UUID) (int64, error) {
	if competitionID == uuid.Nil {
		return 0, fmt.Errorf("competition id required")
	}
	count, err := s.records.CountDistinctJudges(ctx, nil, competitionID)
	if err != nil {
		return 0, fmt.Errorf("judge count: %w", err)
	}
	return count, nil
}
