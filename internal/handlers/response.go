package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hackfest/judging-backend/internal/apierr"
	"github.com/hackfest/judging-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
// Validation failures surface verbatim and are not retryable; upstream
// failures are the one retryable class.
func RespondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, err)
		return
	}

	switch {
	case errors.Is(err, services.ErrNotAssigned):
		RespondError(c, http.StatusForbidden, "NOT_ASSIGNED", err)
	case errors.Is(err, services.ErrCompetitionNotEnded):
		RespondError(c, http.StatusConflict, "COMPETITION_NOT_ENDED", err)
	case errors.Is(err, services.ErrAlreadyJudged):
		RespondError(c, http.StatusConflict, "ALREADY_JUDGED", err)
	case errors.Is(err, services.ErrNoExistingRecord):
		RespondError(c, http.StatusNotFound, "NO_EXISTING_RECORD", err)
	case errors.Is(err, services.ErrSubmissionNotFound):
		RespondError(c, http.StatusNotFound, "SUBMISSION_NOT_FOUND", err)
	case errors.Is(err, services.ErrNoScoresFound):
		RespondError(c, http.StatusNotFound, "NO_SCORES_FOUND", err)
	case errors.Is(err, services.ErrAwardRunInProgress):
		RespondError(c, http.StatusConflict, "AWARD_RUN_IN_PROGRESS", err)
	case errors.Is(err, services.ErrUpstreamUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", err)
	default:
		RespondError(c, http.StatusInternalServerError, "PERSISTENCE_FAILURE", err)
	}
}
