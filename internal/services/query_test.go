package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queryFixture struct {
	db            *gorm.DB
	competitionID uuid.UUID
	alpha         uuid.UUID
	beta          uuid.UUID
}

// newQueryFixture seeds one competition with:
//   - "Alpha Rocket": aggregate 90.00, three judges, Design exposed as 70
//   - "Beta Boat":    aggregate 85.00, three judges, Design exposed as 88
//   - "Gamma Car":    aggregate 95.00 but only two judges (below quorum)
//   - "Delta Kite":   unscored
func newQueryFixture(t *testing.T) (QueryService, *queryFixture) {
	t.Helper()
	db := newTestDB(t)
	submissions, records, criteria, _ := newTestRepos(t, db)
	svc := NewQueryService(db, testLogger(t), submissions, records, criteria)

	competitionID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	alpha := seedSubmission(t, db, competitionID, "Alpha Rocket", decPtr(t, "90.00"))
	beta := seedSubmission(t, db, competitionID, "Beta Boat", decPtr(t, "85.00"))
	gamma := seedSubmission(t, db, competitionID, "Gamma Car", decPtr(t, "95.00"))
	seedSubmission(t, db, competitionID, "Delta Kite", nil)

	judges := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for i, j := range judges {
		at := base.Add(time.Duration(i) * time.Minute)
		rec := seedJudgeRecord(t, db, j, alpha, "90.00", at)
		if i == 0 {
			seedCriterionScore(t, db, rec.ID, "Design", "70", "0.5", at)
		} else {
			// Later records carry a different Design value; the earliest one
			// must win the exposed per-criterion map.
			seedCriterionScore(t, db, rec.ID, "Design", "99", "0.5", at)
		}
	}
	for i, j := range judges {
		at := base.Add(time.Duration(10+i) * time.Minute)
		rec := seedJudgeRecord(t, db, j, beta, "85.00", at)
		if i == 0 {
			seedCriterionScore(t, db, rec.ID, "Design", "88", "0.5", at)
		}
	}
	// Gamma only reaches two distinct judges.
	for i, j := range judges[:2] {
		at := base.Add(time.Duration(20+i) * time.Minute)
		seedJudgeRecord(t, db, j, gamma, "95.00", at)
	}

	return svc, &queryFixture{
		db:            db,
		competitionID: competitionID,
		alpha:         alpha.ID,
		beta:          beta.ID,
	}
}

func TestListScoredAppliesQuorum(t *testing.T) {
	svc, fx := newQueryFixture(t)

	results, total, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Fatalf("total: want=2 got=%d", total)
	}
	for _, r := range results {
		if r.Submission.Title == "Gamma Car" {
			t.Fatalf("submission below quorum must be excluded")
		}
		if r.Submission.Title == "Delta Kite" {
			t.Fatalf("unscored submission must be excluded")
		}
	}
}

func TestListScoredDefaultSortByScoreDesc(t *testing.T) {
	svc, fx := newQueryFixture(t)

	results, _, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%d", len(results))
	}
	if results[0].Submission.ID != fx.alpha || results[1].Submission.ID != fx.beta {
		t.Fatalf("order: want=[Alpha, Beta] got=[%s, %s]", results[0].Submission.Title, results[1].Submission.Title)
	}
}

func TestListScoredKeywordFilter(t *testing.T) {
	svc, fx := newQueryFixture(t)

	results, total, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{Keyword: "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("total: want=1 got=%d", total)
	}
	if results[0].Submission.ID != fx.beta {
		t.Fatalf("keyword match: want=Beta Boat got=%s", results[0].Submission.Title)
	}
}

func TestListScoredSortByCriterion(t *testing.T) {
	svc, fx := newQueryFixture(t)

	results, _, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{SortBy: "Design", Order: OrderDesc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%d", len(results))
	}
	// Beta's Design is 88; Alpha exposes the earliest record's 70, not the
	// later 99.
	if results[0].Submission.ID != fx.beta {
		t.Fatalf("sort by Design desc: want Beta first got=%s", results[0].Submission.Title)
	}
	if got := results[1].CriterionScores["Design"].String(); got != "70" {
		t.Fatalf("exposed Design value for Alpha: want=70 got=%s", got)
	}
}

func TestListScoredPagination(t *testing.T) {
	svc, fx := newQueryFixture(t)

	page1, total, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{Page: 1, Size: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(page1) != 1 {
		t.Fatalf("page1: want total=2 len=1 got total=%d len=%d", total, len(page1))
	}

	page2, _, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{Page: 2, Size: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("page2: want len=1 got=%d", len(page2))
	}
	if page1[0].Submission.ID == page2[0].Submission.ID {
		t.Fatalf("pages must not overlap")
	}

	page3, _, err := svc.ListScored(context.Background(), fx.competitionID, ListScoredParams{Page: 3, Size: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page3) != 0 {
		t.Fatalf("page past the end: want len=0 got=%d", len(page3))
	}
}

func TestJudgeCountDistinct(t *testing.T) {
	svc, fx := newQueryFixture(t)

	count, err := svc.JudgeCount(context.Background(), fx.competitionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Three judges total; each scored several submissions but counts once.
	if count != 3 {
		t.Fatalf("judge count: want=3 got=%d", count)
	}
}

func TestScoreStatistics(t *testing.T) {
	svc, fx := newQueryFixture(t)

	stats, err := svc.ScoreStatistics(context.Background(), fx.competitionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Average == nil || stats.Max == nil || stats.Min == nil {
		t.Fatalf("statistics must be populated, got %+v", stats)
	}
	// Aggregates 90, 85, 95 regardless of quorum.
	if got := stats.Average.StringFixed(2); got != "90.00" {
		t.Fatalf("average: want=90.00 got=%s", got)
	}
	if got := stats.Max.StringFixed(2); got != "95.00" {
		t.Fatalf("max: want=95.00 got=%s", got)
	}
	if got := stats.Min.StringFixed(2); got != "85.00" {
		t.Fatalf("min: want=85.00 got=%s", got)
	}
}
