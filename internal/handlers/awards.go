package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackfest/judging-backend/internal/logger"
	"github.com/hackfest/judging-backend/internal/services"
	"github.com/hackfest/judging-backend/internal/types"
)

type AwardsHandler struct {
	log    *logger.Logger
	awards services.AwardService
}

func NewAwardsHandler(baseLog *logger.Logger, awards services.AwardService) *AwardsHandler {
	return &AwardsHandler{
		log:    baseLog.With("handler", "AwardsHandler"),
		awards: awards,
	}
}

type awardView struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Name         string    `json:"name"`
	Rank         *int      `json:"rank,omitempty"`
}

// AutoAward handles POST /api/competitions/:id/awards/auto.
func (h *AwardsHandler) AutoAward(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}

	records, err := h.awards.AutoAward(c.Request.Context(), competitionID)
	if err != nil {
		h.log.Warn("Award allocation failed",
			"competition_id", competitionID,
			"error", err,
		)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{"awards": awardViews(records)})
}

// ListPublicWinners handles GET /competitions/:id/winners. No auth.
func (h *AwardsHandler) ListPublicWinners(c *gin.Context) {
	competitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("invalid competition id"))
		return
	}

	page := queryInt(c, "page", 1)
	size := queryInt(c, "size", 20)

	winners, total, err := h.awards.ListPublicWinners(c.Request.Context(), competitionID, page, size)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"winners": winners,
		"total":   total,
		"page":    page,
		"size":    size,
	})
}

func awardViews(records []*types.AwardRecord) []awardView {
	out := make([]awardView, 0, len(records))
	for _, r := range records {
		out = append(out, awardView{
			SubmissionID: r.SubmissionID,
			Name:         r.Name,
			Rank:         r.Rank,
		})
	}
	return out
}
