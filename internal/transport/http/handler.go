package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/iamasit07/glicko2-ratings/internal/service/rating"
)

type RatingService interface {
	RegisterPlayer(ctx context.Context, name string, initial *rating.StartingRating) (*domain.Player, error)
	GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error)
	GetHistory(ctx context.Context, playerID int64, limit int) ([]domain.RatingChange, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	RecordGame(ctx context.Context, playerID, opponentID int64, outcome domain.Outcome) (*domain.Game, error)
	WinProbability(ctx context.Context, playerID, opponentID int64) (float64, error)
	Preview(ctx context.Context, playerID int64) (*domain.Evaluation, error)
	Calculate(subject domain.RatingState, results []domain.OpponentResult) (domain.Evaluation, error)
	ClosePeriod(ctx context.Context) (*rating.PeriodSummary, error)
}

type RatingHandler struct {
	Service RatingService
}

func NewRatingHandler(svc RatingService) *RatingHandler {
	return &RatingHandler{Service: svc}
}

// RegisterRoutes mounts the public API and the admin routes behind adminMW
func (h *RatingHandler) RegisterRoutes(router gin.IRouter, adminMW gin.HandlerFunc) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.GET("/players/:id", h.GetPlayer)
	api.GET("/players/:id/history", h.GetHistory)
	api.GET("/players/:id/preview", h.Preview)
	api.GET("/leaderboard", h.Leaderboard)
	api.GET("/win-probability", h.WinProbability)
	api.POST("/calculate", h.Calculate)

	admin := api.Group("/")
	admin.Use(adminMW)
	{
		admin.POST("/players", h.RegisterPlayer)
		admin.POST("/games", h.RecordGame)
		admin.POST("/periods/close", h.ClosePeriod)
	}
}

func (h *RatingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ratingView is a rating state on the conventional scale
type ratingView struct {
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

func newRatingView(s domain.RatingState) ratingView {
	r, rd, vol := s.Conventional()
	return ratingView{Rating: r, Deviation: rd, Volatility: vol}
}

// state converts the view back, defaulting a missing volatility
func (v ratingView) state() (domain.RatingState, error) {
	vol := v.Volatility
	if vol == 0 {
		vol = domain.DefaultVolatility
	}
	return domain.NewRatingStateFromConventional(v.Rating, v.Deviation, vol)
}

func writeError(c *gin.Context, err error) {
	var domainErr domain.Error
	switch {
	case errors.Is(err, rating.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPlayerExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, rating.ErrSamePlayer), errors.Is(err, rating.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVolatilityNotConverged), errors.Is(err, domain.ErrNonFiniteValue):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &domainErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, false
	}
	return limit, true
}
