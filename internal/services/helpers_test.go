package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/clients/competition"
	"github.com/hackfest/judging-backend/internal/clients/directory"
	"github.com/hackfest/judging-backend/internal/clients/notify"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/repos"
	"github.com/hackfest/judging-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection so every session sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&types.Submission{},
		&types.JudgeRecord{},
		&types.CriterionScore{},
		&types.AwardRecord{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestRepos(t *testing.T, db *gorm.DB) (repos.SubmissionRepo, repos.JudgeRecordRepo, repos.CriterionScoreRepo, repos.AwardRecordRepo) {
	t.Helper()
	log := testLogger(t)
	return repos.NewSubmissionRepo(db, log),
		repos.NewJudgeRecordRepo(db, log),
		repos.NewCriterionScoreRepo(db, log),
		repos.NewAwardRecordRepo(db, log)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func seedSubmission(t *testing.T, db *gorm.DB, competitionID uuid.UUID, title string, aggregate *decimal.Decimal) *types.Submission {
	t.Helper()
	now := time.Now().UTC()
	sub := &types.Submission{
		ID:             uuid.New(),
		CompetitionID:  competitionID,
		Title:          title,
		Status:         types.SubmissionStatusApproved,
		AggregateScore: aggregate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return sub
}

func seedJudgeRecord(t *testing.T, db *gorm.DB, judgeID uuid.UUID, sub *types.Submission, total string, at time.Time) *types.JudgeRecord {
	t.Helper()
	rec := &types.JudgeRecord{
		ID:            uuid.New(),
		JudgeID:       judgeID,
		SubmissionID:  sub.ID,
		CompetitionID: sub.CompetitionID,
		TotalScore:    dec(t, total),
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to seed judge record: %v", err)
	}
	return rec
}

func seedCriterionScore(t *testing.T, db *gorm.DB, recordID uuid.UUID, criterion, score, weight string, at time.Time) {
	t.Helper()
	row := &types.CriterionScore{
		ID:            uuid.New(),
		JudgeRecordID: recordID,
		Criterion:     criterion,
		Score:         dec(t, score),
		Weight:        dec(t, weight),
		CreatedAt:     at,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to seed criterion score: %v", err)
	}
}

// endedCompetition is the default happy-path competition fact.
func endedCompetition(id uuid.UUID) *competition.Competition {
	return &competition.Competition{
		ID:     id,
		Name:   "Hackfest Finals",
		Status: competition.StatusCompleted,
	}
}

type fakeCompetitionClient struct {
	mu sync.Mutex

	comp    *competition.Competition
	compErr error

	assigned    map[uuid.UUID]bool
	assignedErr error

	setStatusErr error
	statusCalls  []string
}

func (f *fakeCompetitionClient) GetCompetition(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	if f.compErr != nil {
		return nil, f.compErr
	}
	return f.comp, nil
}

func (f *fakeCompetitionClient) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, status)
	f.mu.Unlock()
	return f.setStatusErr
}

func (f *fakeCompetitionClient) IsAssignedJudge(ctx context.Context, competitionID, judgeID uuid.UUID) (bool, error) {
	if f.assignedErr != nil {
		return false, f.assignedErr
	}
	return f.assigned[judgeID], nil
}

type fakeDirectoryClient struct {
	users     map[uuid.UUID]directory.Recipient
	teams     map[uuid.UUID][]directory.Recipient
	teamNames map[uuid.UUID]string
	err       error
}

func (f *fakeDirectoryClient) GetUser(ctx context.Context, userID uuid.UUID) (*directory.Recipient, error) {
	if f.err != nil {
		return nil, f.err
	}
	rcpt, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return &rcpt, nil
}

func (f *fakeDirectoryClient) GetTeamMembers(ctx context.Context, teamID uuid.UUID) ([]directory.Recipient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.teams[teamID], nil
}

func (f *fakeDirectoryClient) GetTeamName(ctx context.Context, teamID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.teamNames[teamID], nil
}

type fakeNotifyClient struct {
	mu   sync.Mutex
	sent []notify.AwardNotification
	err  error
}

func (f *fakeNotifyClient) NotifyAward(ctx context.Context, n notify.AwardNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifyClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeLocker struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if f.acquireErr != nil {
		return nil, false, f.acquireErr
	}
	if f.held {
		return nil, false, nil
	}
	return func() { f.releases++ }, true, nil
}

func (f *fakeLocker) Close() error { return nil }
