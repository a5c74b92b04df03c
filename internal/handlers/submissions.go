package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/services"
)

type SubmissionsHandler struct {
	log   *logger.Logger
	query services.QueryService
}

func NewSubmissionsHandler(baseLog *logger.Logger, query services.QueryService) *SubmissionsHandler {
	return &SubmissionsHandler{
		log:   baseLog.With("handler", "SubmissionsHandler"),
		query: query,
	}
}

// ListScored handles GET /api/competitions/:id/scored-submissions.
func (h *SubmissionsHandler) ListScored(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}

	params := services.ListScoredParams{
		Keyword: c.Query("keyword"),
		SortBy:  c.Query("sort_by"),
		Order:   c.Query("order"),
		Page:    queryInt(c, "page", 1),
		Size:    queryInt(c, "size", 20),
	}

	results, total, err := h.query.ListScored(c.Request.Context(), competitionID, params)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"submissions": results,
		"total":       total,
		"page":        params.Page,
		"size":        params.Size,
	})
}

// ScoreStatistics handles GET /api/competitions/:id/score-statistics.
func (h *SubmissionsHandler) ScoreStatistics(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}

	stats, err := h.query.ScoreStatistics(c.Request.Context(), competitionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

// JudgeCount handles GET /api/competitions/:id/judge-count.
func (h *SubmissionsHandler) JudgeCount(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}

	count, err := h.query.JudgeCount(c.Request.Context(), competitionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"judge_count": count})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
