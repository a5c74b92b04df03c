package services

import "errors"

// Validation failures surface verbatim to the caller and are never retried.
// ErrUpstreamUnavailable is the one retryable class; persistence failures are
// wrapped raw and treated as fatal for the request.
var (
	ErrNotAssigned         = errors.New("judge is not assigned to this competition")
	ErrCompetitionNotEnded = errors.New("competition has not ended")
	ErrAlreadyJudged       = errors.New("submission already judged by this judge")
	ErrNoExistingRecord    = errors.New("no existing judge record to revise")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrNoScoresFound       = errors.New("no scores found for submission")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrAwardRunInProgress  = errors.New("award allocation already in progress for this competition")
)
