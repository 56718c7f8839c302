package domain

import "math"

const (
	DefaultTau           = 0.9
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100

	// conventional scale is the familiar 1500-centered one
	ConventionalOrigin = 1500.0
	ConventionalUnit   = 173.7178

	DefaultRating          = 0.0
	DefaultRatingDeviation = 350.0 / ConventionalUnit
	DefaultVolatility      = 0.06
)

// RatingState is a competitor's belief state on the internal Glicko-2 scale.
type RatingState struct {
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"ratingDeviation"`
	Volatility      float64 `json:"volatility"`
}

// NewRatingState returns a state with the system defaults.
func NewRatingState() RatingState {
	return RatingState{
		Rating:          DefaultRating,
		RatingDeviation: DefaultRatingDeviation,
		Volatility:      DefaultVolatility,
	}
}

// NewRatingStateFromValues builds a state from internal-scale values.
func NewRatingStateFromValues(rating, ratingDeviation, volatility float64) (RatingState, error) {
	s := RatingState{
		Rating:          rating,
		RatingDeviation: ratingDeviation,
		Volatility:      volatility,
	}
	if err := s.Validate(); err != nil {
		return RatingState{}, err
	}
	return s, nil
}

// NewRatingStateFromConventional builds a state from 1500-centered values.
// Volatility does not depend on the scale and is kept as is.
func NewRatingStateFromConventional(rating, ratingDeviation, volatility float64) (RatingState, error) {
	return NewRatingStateFromValues(
		(rating-ConventionalOrigin)/ConventionalUnit,
		ratingDeviation/ConventionalUnit,
		volatility,
	)
}

// Validate rejects non-finite values and non-positive deviation or volatility.
func (s RatingState) Validate() error {
	if !isFinite(s.Rating) || !isFinite(s.RatingDeviation) || !isFinite(s.Volatility) {
		return ErrNonFiniteValue
	}
	if s.RatingDeviation <= 0 {
		return ErrInvalidDeviation
	}
	if s.Volatility <= 0 {
		return ErrInvalidVolatility
	}
	return nil
}

// Conventional returns the state on the 1500-centered scale as
// (rating, deviation, volatility).
func (s RatingState) Conventional() (float64, float64, float64) {
	return ConventionalUnit*s.Rating + ConventionalOrigin, ConventionalUnit * s.RatingDeviation, s.Volatility
}

// Idle returns the state after a rating period without games: only the
// deviation grows, by the current volatility.
func (s RatingState) Idle() RatingState {
	s.RatingDeviation = math.Sqrt(s.RatingDeviation*s.RatingDeviation + s.Volatility*s.Volatility)
	return s
}

// Settings tunes one rating system.
type Settings struct {
	Tau           float64 `json:"tau"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"maxIterations"`
}

// DefaultSettings returns the package default tuning.
func DefaultSettings() Settings {
	return Settings{
		Tau:           DefaultTau,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate rejects non-positive or non-finite tuning.
func (s Settings) Validate() error {
	if !isFinite(s.Tau) || s.Tau <= 0 || !isFinite(s.Tolerance) || s.Tolerance <= 0 || s.MaxIterations <= 0 {
		return ErrInvalidSettings
	}
	return nil
}

// g discounts an opponent's influence by its uncertainty.
func g(deviation float64) float64 {
	return 1 / math.Sqrt(1+3*deviation*deviation/(math.Pi*math.Pi))
}

// expectedScore is the win probability of rating against one opponent.
func expectedScore(rating, opponentRating, opponentDeviation float64) float64 {
	return 1 / (1 + math.Exp(-g(opponentDeviation)*(rating-opponentRating)))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
