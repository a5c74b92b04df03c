package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/middleware"
	"github.com/hackfest/judging-backend/internal/services"
)

type ScoringHandler struct {
	log     *logger.Logger
	scoring services.ScoringService
}

func NewScoringHandler(baseLog *logger.Logger, scoring services.ScoringService) *ScoringHandler {
	return &ScoringHandler{
		log:     baseLog.With("handler", "ScoringHandler"),
		scoring: scoring,
	}
}

type scorePayload struct {
	Comments string                    `json:"comments"`
	Criteria []services.CriterionInput `json:"criteria" binding:"required"`
}

type scoreResponse struct {
	JudgeRecordID uuid.UUID `json:"judge_record_id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	TotalScore    string    `json:"total_score"`
}

// SubmitScore handles POST /api/competitions/:id/submissions/:sid/scores.
func (h *ScoringHandler) SubmitScore(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}
	submissionID, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid submission id"))
		return
	}

	var payload scorePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	judgeID := middleware.GetUserID(c)
	record, err := h.scoring.SubmitScore(c.Request.Context(), judgeID, submissionID, competitionID, payload.Comments, payload.Criteria)
	if err != nil {
		h.log.Warn("Score submission rejected",
			"judge_id", judgeID,
			"submission_id", submissionID,
			"error", err,
		)
		RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scoreResponse{
		JudgeRecordID: record.ID,
		SubmissionID:  record.SubmissionID,
		TotalScore:    record.TotalScore.StringFixed(2),
	})
}

// ReviseScore handles PUT /api/submissions/:sid/scores.
func (h *ScoringHandler) ReviseScore(c *gin.Context) {
	submissionID, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid submission id"))
		return
	}

	var payload scorePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	judgeID := middleware.GetUserID(c)
	record, err := h.scoring.ReviseScore(c.Request.Context(), judgeID, submissionID, payload.Comments, payload.Criteria)
	if err != nil {
		h.log.Warn("Score revision rejected",
			"judge_id", judgeID,
			"submission_id", submissionID,
			"error", err,
		)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, scoreResponse{
		JudgeRecordID: record.ID,
		SubmissionID:  record.SubmissionID,
		TotalScore:    record.TotalScore.StringFixed(2),
	})
}
