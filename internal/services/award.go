package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/hackfest/judging-backend/internal/clients/competition"
	"github.com/hackfest/judging-backend/internal/clients/directory"
	"github.com/hackfest/judging-backend/internal/clients/notify"
	redisclient "github.com/hackfest/judging-backend/internal/clients/redis"
	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/repos"
	"github.com/hackfest/judging-backend/internal/types"
)

const (
	maxPlacementRank = 3

	awardLockTTL       = 2 * time.Minute
	notifyConcurrency  = 4
	notifyDispatchTime = 15 * time.Second
)

type PublicWinner struct {
	SubmissionID   uuid.UUID        `json:"submission_id"`
	Title          string           `json:"title"`
	SubmitterName  string           `json:"submitter_name"`
	AggregateScore *decimal.Decimal `json:"aggregate_score,omitempty"`
	Awards         []string         `json:"awards"`
}

type AwardService interface {
	AutoAward(ctx context.Context, competitionID uuid.UUID) ([]*types.AwardRecord, error)
	ListPublicWinners(ctx context.Context, competitionID uuid.UUID, page, size int) ([]*PublicWinner, int64, error)
}

type awardService struct {
	db           *gorm.DB
	log          *logger.Logger
	submissions  repos.SubmissionRepo
	records      repos.JudgeRecordRepo
	criteria     repos.CriterionScoreRepo
	awards       repos.AwardRecordRepo
	competitions competition.Client
	directory    directory.Client
	notifier     notify.Client
	locker       redisclient.Locker
}

func NewAwardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	submissions repos.SubmissionRepo,
	records repos.JudgeRecordRepo,
	criteria repos.CriterionScoreRepo,
	awards repos.AwardRecordRepo,
	competitions competition.Client,
	dir directory.Client,
	notifier notify.Client,
	locker redisclient.Locker,
) AwardService {
	return &awardService{
		db:           db,
		log:          baseLog.With("service", "AwardService"),
		submissions:  submissions,
		records:      records,
		criteria:     criteria,
		awards:       awards,
		competitions: competitions,
		directory:    dir,
		notifier:     notifier,
		locker:       locker,
	}
}

// AutoAward ranks the competition's scored submissions, replaces the award
// set, transitions the competition to AWARDED and notifies recipients. The
// ranking computation itself is pure: rerunning with unchanged inputs
// produces an identical award set.
func (s *awardService) AutoAward(ctx context.Context, competitionID uuid.UUID) ([]*types.AwardRecord, error) {
	if competitionID == uuid.Nil {
		return nil, fmt.Errorf("competition id required")
	}

	// Two concurrent runs for one competition could interleave the
	// delete+insert below, so runs are serialized per competition.
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, "award:competition:"+competitionID.String(), awardLockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: award lock: %v", ErrUpstreamUnavailable, err)
		}
		if !ok {
			return nil, ErrAwardRunInProgress
		}
		defer release()
	}

	comp, err := s.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("%w: competition lookup: %v", ErrUpstreamUnavailable, err)
	}

	subs, err := s.submissions.GetByCompetitionID(ctx, nil, competitionID, true)
	if err != nil {
		return nil, fmt.Errorf("load scored submissions: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	criterionValues, err := firstCriterionValues(ctx, nil, s.records, s.criteria, ids)
	if err != nil {
		return nil, fmt.Errorf("load criterion scores: %w", err)
	}

	now := time.Now().UTC()
	newAwards := rankPlacements(competitionID, subs, now)
	newAwards = append(newAwards, categoryWinners(competitionID, criterionValues, now)...)

	// Replacing the award set is one transaction; the remote status
	// transition and the notifications deliberately sit outside it.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.awards.DeleteByCompetitionID(ctx, tx, competitionID); err != nil {
			return fmt.Errorf("delete prior awards: %w", err)
		}
		if _, err := s.awards.Create(ctx, tx, newAwards); err != nil {
			return fmt.Errorf("insert awards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.competitions.SetStatus(ctx, competitionID, competition.StatusAwarded); err != nil {
		// The award set is already correct; only the remote status is stale.
		// SetStatus is idempotent, so rerunning AutoAward (or retrying the
		// transition alone) heals this.
		s.log.Error("Award set persisted but competition status transition failed; retry required",
			"competition_id", competitionID,
			"error", err,
		)
	}

	s.notifyWinners(ctx, comp, subs, newAwards)

	s.log.Info("Awards allocated",
		"competition_id", competitionID,
		"award_count", len(newAwards),
		"submission_count", len(subs),
	)
	return newAwards, nil
}

// rankPlacements assigns the top-3 placement awards using competition ranking
// with skipped ranks: tied submissions share a rank and the next distinct
// score lands at assignedCount+1. A tie at rank 3 can hand out more than
// three placement awards.
func rankPlacements(competitionID uuid.UUID, subs []*types.Submission, at time.Time) []*types.AwardRecord {
	sorted := make([]*types.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub.AggregateScore != nil {
			sorted = append(sorted, sub)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := *sorted[i].AggregateScore, *sorted[j].AggregateScore
		if !si.Equal(sj) {
			return si.GreaterThan(sj)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	names := map[int]string{
		1: types.AwardChampion,
		2: types.AwardRunnerUp,
		3: types.AwardSecondRunnerUp,
	}

	var out []*types.AwardRecord
	assigned := 0
	currentRank := 0
	var prev decimal.Decimal
	for i, sub := range sorted {
		score := *sub.AggregateScore
		if i == 0 {
			currentRank = 1
		} else if score.LessThan(prev) {
			currentRank = assigned + 1
		}
		if currentRank > maxPlacementRank {
			break
		}
		rank := currentRank
		out = append(out, &types.AwardRecord{
			ID:            uuid.New(),
			CompetitionID: competitionID,
			SubmissionID:  sub.ID,
			Name:          names[rank],
			Rank:          &rank,
			CreatedAt:     at,
		})
		assigned++
		prev = score
	}
	return out
}

// categoryWinners awards "Best in <criterion>" to every submission tied at
// the maximum exposed value for that criterion.
func categoryWinners(competitionID uuid.UUID, values map[uuid.UUID]map[string]decimal.Decimal, at time.Time) []*types.AwardRecord {
	type entry struct {
		submissionID uuid.UUID
		score        decimal.Decimal
	}
	byCriterion := map[string][]entry{}
	for subID, criterionScores := range values {
		for criterion, score := range criterionScores {
			byCriterion[criterion] = append(byCriterion[criterion], entry{submissionID: subID, score: score})
		}
	}

	criteria := make([]string, 0, len(byCriterion))
	for criterion := range byCriterion {
		criteria = append(criteria, criterion)
	}
	sort.Strings(criteria)

	var out []*types.AwardRecord
	for _, criterion := range criteria {
		entries := byCriterion[criterion]
		max := entries[0].score
		for _, e := range entries[1:] {
			if e.score.GreaterThan(max) {
				max = e.score
			}
		}
		winners := make([]uuid.UUID, 0, 1)
		for _, e := range entries {
			if e.score.Equal(max) {
				winners = append(winners, e.submissionID)
			}
		}
		sort.Slice(winners, func(i, j int) bool { return winners[i].String() < winners[j].String() })
		for _, subID := range winners {
			out = append(out, &types.AwardRecord{
				ID:            uuid.New(),
				CompetitionID: competitionID,
				SubmissionID:  subID,
				Name:          "Best in " + criterion,
				CreatedAt:     at,
			})
		}
	}
	return out
}

// notifyWinners resolves recipients for every awarded submission and fans out
// one notification per recipient. Best effort: failures are logged and never
// block award finalization.
func (s *awardService) notifyWinners(ctx context.Context, comp *competition.Competition, subs []*types.Submission, awards []*types.AwardRecord) {
	if s.notifier == nil || s.directory == nil {
		return
	}

	awardNames := map[uuid.UUID][]string{}
	for _, a := range awards {
		awardNames[a.SubmissionID] = append(awardNames[a.SubmissionID], a.Name)
	}
	bySubmission := map[uuid.UUID]*types.Submission{}
	for _, sub := range subs {
		bySubmission[sub.ID] = sub
	}

	compName := ""
	if comp != nil {
		compName = comp.Name
	}
	now := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for subID, names := range awardNames {
		sub := bySubmission[subID]
		if sub == nil {
			continue
		}
		csv := strings.Join(names, ", ")
		g.Go(func() error {
			recipients, err := s.resolveRecipients(gctx, sub)
			if err != nil {
				s.log.Warn("Failed to resolve award recipients",
					"submission_id", sub.ID,
					"error", err,
				)
				return nil
			}
			for _, rcpt := range recipients {
				dctx, cancel := context.WithTimeout(gctx, notifyDispatchTime)
				err := s.notifier.NotifyAward(dctx, notify.AwardNotification{
					RecipientName:   rcpt.DisplayName,
					RecipientEmail:  rcpt.Email,
					CompetitionName: compName,
					AwardNames:      csv,
					AwardedAt:       now,
				})
				cancel()
				if err != nil {
					s.log.Warn("Award notification dispatch failed",
						"submission_id", sub.ID,
						"recipient", rcpt.Email,
						"error", err,
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *awardService) resolveRecipients(ctx context.Context, sub *types.Submission) ([]directory.Recipient, error) {
	switch {
	case sub.TeamID != nil:
		return s.directory.GetTeamMembers(ctx, *sub.TeamID)
	case sub.SubmitterUserID != nil:
		rcpt, err := s.directory.GetUser(ctx, *sub.SubmitterUserID)
		if err != nil {
			return nil, err
		}
		return []directory.Recipient{*rcpt}, nil
	default:
		return nil, fmt.Errorf("submission %s has no submitter", sub.ID)
	}
}

// ListPublicWinners projects the award set grouped by submission, joined with
// submitter or team display names, sorted by aggregate score descending with
// unscored rows last.
func (s *awardService) ListPublicWinners(ctx context.Context, competitionID uuid.UUID, page, size int) ([]*PublicWinner, int64, error) {
	if competitionID == uuid.Nil {
		return nil, 0, fmt.Errorf("competition id required")
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	awards, err := s.awards.GetByCompetitionID(ctx, nil, competitionID)
	if err != nil {
		return nil, 0, fmt.Errorf("load awards: %w", err)
	}
	if len(awards) == 0 {
		return []*PublicWinner{}, 0, nil
	}

	awardNames := map[uuid.UUID][]string{}
	ids := make([]uuid.UUID, 0, len(awards))
	for _, a := range awards {
		if _, seen := awardNames[a.SubmissionID]; !seen {
			ids = append(ids, a.SubmissionID)
		}
		awardNames[a.SubmissionID] = append(awardNames[a.SubmissionID], a.Name)
	}

	subs, err := s.submissions.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load submissions: %w", err)
	}

	winners := make([]*PublicWinner, 0, len(subs))
	for _, sub := range subs {
		name, err := s.displayName(ctx, sub)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: recipient lookup: %v", ErrUpstreamUnavailable, err)
		}
		winners = append(winners, &PublicWinner{
			SubmissionID:   sub.ID,
			Title:          sub.Title,
			SubmitterName:  name,
			AggregateScore: sub.AggregateScore,
			Awards:         awardNames[sub.ID],
		})
	}

	sort.SliceStable(winners, func(i, j int) bool {
		si, sj := winners[i].AggregateScore, winners[j].AggregateScore
		if (si == nil) != (sj == nil) {
			return si != nil
		}
		if si != nil && sj != nil && !si.Equal(*sj) {
			return si.GreaterThan(*sj)
		}
		return winners[i].SubmissionID.String() < winners[j].SubmissionID.String()
	})

	total := int64(len(winners))
	start := (page - 1) * size
	if start >= len(winners) {
		return []*PublicWinner{}, total, nil
	}
	end := start + size
	if end > len(winners) {
		end = len(winners)
	}
	return winners[start:end], total, nil
}

func (s *awardService) displayName(ctx context.Context, sub *types.Submission) (string, error) {
	if s.directory == nil {
		return "", nil
	}
	switch {
	case sub.TeamID != nil:
		return s.directory.GetTeamName(ctx, *sub.TeamID)
	case sub.SubmitterUserID != nil:
		rcpt, err := s.directory.GetUser(ctx, *sub.SubmitterUserID)
		if err != nil {
			return "", err
		}
		return rcpt.DisplayName, nil
	default:
		return "", nil
	}
}
