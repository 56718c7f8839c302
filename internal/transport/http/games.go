package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

// RecordGame stores one result; the outcome is from playerId's side and
// accepts "win", "draw", "loss" or a score of 1, 0.5, 0
func (h *RatingHandler) RecordGame(c *gin.Context) {
	var req struct {
		PlayerID   int64           `json:"playerId"`
		OpponentID int64           `json:"opponentId"`
		Outcome    *domain.Outcome `json:"outcome"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.PlayerID <= 0 || req.OpponentID <= 0 || req.Outcome == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId, opponentId and outcome are required"})
		return
	}

	game, err := h.Service.RecordGame(c.Request.Context(), req.PlayerID, req.OpponentID, *req.Outcome)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}
