package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

type periodChange struct {
	PlayerID int64 `json:"playerId"`
	historyItem
}

func (h *RatingHandler) ClosePeriod(c *gin.Context) {
	summary, err := h.Service.ClosePeriod(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	changes := make([]periodChange, 0, len(summary.Changes))
	for _, change := range summary.Changes {
		changes = append(changes, periodChange{PlayerID: change.PlayerID, historyItem: newHistoryItem(change)})
	}

	c.JSON(http.StatusOK, gin.H{
		"closedPeriodId": summary.ClosedPeriodID,
		"nextPeriod":     summary.NextPeriod,
		"games":          summary.Games,
		"changes":        changes,
	})
}

type evaluationResponse struct {
	Before             ratingView `json:"before"`
	After              ratingView `json:"after"`
	Variance           float64    `json:"variance"`
	Delta              float64    `json:"delta"`
	PrePeriodDeviation float64    `json:"prePeriodDeviation"`
	Iterations         int        `json:"iterations"`
}

// newEvaluationResponse reports variance and delta on the internal scale and
// the deviations on the conventional one
func newEvaluationResponse(ev domain.Evaluation) evaluationResponse {
	return evaluationResponse{
		Before:             newRatingView(ev.Before),
		After:              newRatingView(ev.After),
		Variance:           ev.Variance,
		Delta:              ev.Delta,
		PrePeriodDeviation: ev.PrePeriodDeviation * domain.ConventionalUnit,
		Iterations:         ev.Iterations,
	}
}

// Preview shows what the player's rating would be if the open period closed now
func (h *RatingHandler) Preview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ev, err := h.Service.Preview(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEvaluationResponse(*ev))
}
