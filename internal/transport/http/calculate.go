package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

const maxCalculateGames = 1000

type calculateGame struct {
	ratingView
	Outcome *domain.Outcome `json:"outcome"`
}

// Calculate runs one rating period update on the posted values without
// touching storage
func (h *RatingHandler) Calculate(c *gin.Context) {
	var req struct {
		Player ratingView      `json:"player"`
		Games  []calculateGame `json:"games"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if len(req.Games) > maxCalculateGames {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d games per request", maxCalculateGames)})
		return
	}

	subject, err := req.Player.state()
	if err != nil {
		writeError(c, fmt.Errorf("player: %w", err))
		return
	}

	results := make([]domain.OpponentResult, 0, len(req.Games))
	for i, g := range req.Games {
		if g.Outcome == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("game %d: outcome is required", i)})
			return
		}
		opponent, err := g.state()
		if err != nil {
			writeError(c, fmt.Errorf("game %d: %w", i, err))
			return
		}
		results = append(results, domain.OpponentResult{Opponent: opponent, Outcome: *g.Outcome})
	}

	ev, err := h.Service.Calculate(subject, results)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEvaluationResponse(ev))
}

func (h *RatingHandler) WinProbability(c *gin.Context) {
	playerID, ok := queryID(c, "player")
	if !ok {
		return
	}
	opponentID, ok := queryID(c, "opponent")
	if !ok {
		return
	}

	p, err := h.Service.WinProbability(c.Request.Context(), playerID, opponentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"player":      playerID,
		"opponent":    opponentID,
		"probability": p,
	})
}
