package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/iamasit07/glicko2-ratings/internal/service/rating"
)

type playerResponse struct {
	ID int64 `json:"id"`
	ratingView
	Name        string    `json:"name"`
	GamesPlayed int       `json:"gamesPlayed"`
	Wins        int       `json:"wins"`
	Draws       int       `json:"draws"`
	Losses      int       `json:"losses"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newPlayerResponse(p *domain.Player) playerResponse {
	return playerResponse{
		ID:          p.ID,
		ratingView:  newRatingView(p.State),
		Name:        p.Name,
		GamesPlayed: p.GamesPlayed,
		Wins:        p.Wins,
		Draws:       p.Draws,
		Losses:      p.Losses,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type historyItem struct {
	PeriodID int64      `json:"periodId"`
	Before   ratingView `json:"before"`
	After    ratingView `json:"after"`
	Games    int        `json:"games"`
	Wins     int        `json:"wins"`
	Draws    int        `json:"draws"`
	Losses   int        `json:"losses"`
	At       time.Time  `json:"at"`
}

func newHistoryItem(c domain.RatingChange) historyItem {
	return historyItem{
		PeriodID: c.PeriodID,
		Before:   newRatingView(c.Before),
		After:    newRatingView(c.After),
		Games:    c.Games,
		Wins:     c.Wins,
		Draws:    c.Draws,
		Losses:   c.Losses,
		At:       c.At,
	}
}

func (h *RatingHandler) RegisterPlayer(c *gin.Context) {
	var req struct {
		Name       string   `json:"name"`
		Rating     *float64 `json:"rating"`
		Deviation  *float64 `json:"deviation"`
		Volatility *float64 `json:"volatility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var initial *rating.StartingRating
	if req.Rating != nil || req.Deviation != nil || req.Volatility != nil {
		r, rd, vol := domain.NewRatingState().Conventional()
		if req.Rating != nil {
			r = *req.Rating
		}
		if req.Deviation != nil {
			rd = *req.Deviation
		}
		if req.Volatility != nil {
			vol = *req.Volatility
		}
		initial = &rating.StartingRating{Rating: r, Deviation: rd, Volatility: vol}
	}

	player, err := h.Service.RegisterPlayer(c.Request.Context(), req.Name, initial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPlayerResponse(player))
}

func (h *RatingHandler) GetPlayer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	player, err := h.Service.GetPlayer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPlayerResponse(player))
}

func (h *RatingHandler) GetHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	changes, err := h.Service.GetHistory(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	history := make([]historyItem, 0, len(changes))
	for _, change := range changes {
		history = append(history, newHistoryItem(change))
	}
	c.JSON(http.StatusOK, history)
}

func (h *RatingHandler) Leaderboard(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	entries, err := h.Service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
