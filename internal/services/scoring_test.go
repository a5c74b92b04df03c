package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/apierr"
	"github.com/hackfest/judging-backend/internal/types"
)

type scoringFixture struct {
	db            *gorm.DB
	competitionID uuid.UUID
}

func newScoringFixtureDB(t *testing.T, judgeIDs ...uuid.UUID) (ScoringService, *scoringFixture) {
	t.Helper()
	db := newTestDB(t)
	submissions, records, criteria, _ := newTestRepos(t, db)

	competitionID := uuid.New()
	assigned := map[uuid.UUID]bool{}
	for _, id := range judgeIDs {
		assigned[id] = true
	}
	comps := &fakeCompetitionClient{
		comp:     endedCompetition(competitionID),
		assigned: assigned,
	}

	log := testLogger(t)
	eligibility := NewEligibilityService(db, log, comps, records)
	svc := NewScoringService(db, log, eligibility, submissions, records, criteria)

	return svc, &scoringFixture{db: db, competitionID: competitionID}
}

func TestSubmitScoreWeightedTotalHalfUp(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	// 70.5 * 0.33 = 23.265; half-up rounding gives 23.27, not banker's 23.26.
	record, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "solid", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "70.5"), Weight: dec(t, "0.33")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := record.TotalScore.StringFixed(2); got != "23.27" {
		t.Fatalf("total score: want=23.27 got=%s", got)
	}

	var reloaded types.Submission
	if err := fx.db.First(&reloaded, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if reloaded.AggregateScore == nil {
		t.Fatalf("aggregate score not set")
	}
	if got := reloaded.AggregateScore.StringFixed(2); got != "23.27" {
		t.Fatalf("aggregate score: want=23.27 got=%s", got)
	}
	if reloaded.ScoreUpdatedAt == nil {
		t.Fatalf("score_updated_at not set")
	}

	var rows int64
	if err := fx.db.Model(&types.CriterionScore{}).Where("judge_record_id = ?", record.ID).Count(&rows).Error; err != nil {
		t.Fatalf("failed to count criterion rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("criterion rows: want=1 got=%d", rows)
	}
}

func TestSubmitScoreMultipleCriteria(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	// 85*0.5 + 90*0.3 + 70*0.2 = 42.5 + 27 + 14 = 83.5
	record, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "85"), Weight: dec(t, "0.5")},
		{Criterion: "Execution", Score: dec(t, "90"), Weight: dec(t, "0.3")},
		{Criterion: "Design", Score: dec(t, "70"), Weight: dec(t, "0.2")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := record.TotalScore.StringFixed(2); got != "83.50" {
		t.Fatalf("total score: want=83.50 got=%s", got)
	}
}

func TestSubmitScoreRejectsSecondRecord(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	criteria := []CriterionInput{{Criterion: "Innovation", Score: dec(t, "80"), Weight: dec(t, "1")}}
	if _, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "", criteria); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "", criteria)
	if !errors.Is(err, ErrAlreadyJudged) {
		t.Fatalf("unexpected error: want=%v got=%v", ErrAlreadyJudged, err)
	}
}

func TestSubmitScoreSubmissionNotFound(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)

	_, err := svc.SubmitScore(context.Background(), judgeID, uuid.New(), fx.competitionID, "", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "80"), Weight: dec(t, "1")},
	})
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("unexpected error: want=%v got=%v", ErrSubmissionNotFound, err)
	}
}

func TestSubmitScoreEmptyCriteria(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	_, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "", nil)
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		t.Fatalf("unexpected error: want 400 apierr got=%v", err)
	}
}

func TestReviseScoreFullReplace(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	record, err := svc.SubmitScore(context.Background(), judgeID, sub.ID, fx.competitionID, "first pass", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "80"), Weight: dec(t, "0.5")},
		{Criterion: "Execution", Score: dec(t, "60"), Weight: dec(t, "0.5")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	revised, err := svc.ReviseScore(context.Background(), judgeID, sub.ID, "second pass", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "95"), Weight: dec(t, "1")},
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}
	if revised.ID != record.ID {
		t.Fatalf("revise must reuse the record: want=%s got=%s", record.ID, revised.ID)
	}
	if got := revised.TotalScore.StringFixed(2); got != "95.00" {
		t.Fatalf("total score: want=95.00 got=%s", got)
	}
	if revised.Comments != "second pass" {
		t.Fatalf("comments: want=%q got=%q", "second pass", revised.Comments)
	}

	// Old criterion rows must be gone, replaced by the new set.
	var rows int64
	if err := fx.db.Model(&types.CriterionScore{}).Where("judge_record_id = ?", record.ID).Count(&rows).Error; err != nil {
		t.Fatalf("failed to count criterion rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("criterion rows after revise: want=1 got=%d", rows)
	}

	var reloaded types.Submission
	if err := fx.db.First(&reloaded, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if got := reloaded.AggregateScore.StringFixed(2); got != "95.00" {
		t.Fatalf("aggregate score: want=95.00 got=%s", got)
	}
}

func TestReviseScoreWithoutRecord(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	_, err := svc.ReviseScore(context.Background(), judgeID, sub.ID, "", []CriterionInput{
		{Criterion: "Innovation", Score: dec(t, "80"), Weight: dec(t, "1")},
	})
	if !errors.Is(err, ErrNoExistingRecord) {
		t.Fatalf("unexpected error: want=%v got=%v", ErrNoExistingRecord, err)
	}
}

func TestAggregateIsMeanOfJudgeTotals(t *testing.T) {
	judgeA, judgeB, judgeC := uuid.New(), uuid.New(), uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeA, judgeB, judgeC)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	for _, pair := range []struct {
		judge uuid.UUID
		score string
	}{
		{judgeA, "80"},
		{judgeB, "81"},
		{judgeC, "81"},
	} {
		_, err := svc.SubmitScore(context.Background(), pair.judge, sub.ID, fx.competitionID, "", []CriterionInput{
			{Criterion: "Innovation", Score: dec(t, pair.score), Weight: dec(t, "1")},
		})
		if err != nil {
			t.Fatalf("submit for judge %s failed: %v", pair.judge, err)
		}
	}

	// (80 + 81 + 81) / 3 = 80.666..., half-up to 80.67.
	var reloaded types.Submission
	if err := fx.db.First(&reloaded, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if got := reloaded.AggregateScore.StringFixed(2); got != "80.67" {
		t.Fatalf("aggregate score: want=80.67 got=%s", got)
	}
}

func TestRecalculateWithoutRecords(t *testing.T) {
	judgeID := uuid.New()
	svc, fx := newScoringFixtureDB(t, judgeID)
	sub := seedSubmission(t, fx.db, fx.competitionID, "Alpha", nil)

	err := svc.Recalculate(context.Background(), nil, sub.ID)
	if !errors.Is(err, ErrNoScoresFound) {
		t.Fatalf("unexpected error: want=%v got=%v", ErrNoScoresFound, err)
	}
}

func TestRecalculateUnknownSubmission(t *testing.T) {
	judgeID := uuid.New()
	svc, _ := newScoringFixtureDB(t, judgeID)

	err := svc.Recalculate(context.Background(), nil, uuid.New())
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("unexpected error: want=%v got=%v", ErrSubmissionNotFound, err)
	}
}

func TestWeightedTotalRounding(t *testing.T) {
	cases := []struct {
		name     string
		criteria []CriterionInput
		want     string
	}{
		{
			name: "exact",
			criteria: []CriterionInput{
				{Criterion: "a", Score: dec(t, "100"), Weight: dec(t, "0.5")},
				{Criterion: "b", Score: dec(t, "50"), Weight: dec(t, "0.5")},
			},
			want: "75",
		},
		{
			name: "half up at third decimal",
			criteria: []CriterionInput{
				{Criterion: "a", Score: dec(t, "33.35"), Weight: dec(t, "0.5")},
			},
			want: "16.68",
		},
		{
			name: "truncates below half",
			criteria: []CriterionInput{
				{Criterion: "a", Score: dec(t, "33.33"), Weight: dec(t, "0.1")},
			},
			want: "3.33",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := weightedTotal(tc.criteria); got.String() != dec(t, tc.want).String() {
				t.Fatalf("weighted total: want=%s got=%s", tc.want, got)
			}
		})
	}
}
