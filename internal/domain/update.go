package domain

import (
	"fmt"
	"math"
)

// OpponentResult pairs an opponent's state with the subject's outcome against it.
type OpponentResult struct {
	Opponent RatingState `json:"opponent"`
	Outcome  Outcome     `json:"outcome"`
}

// Evaluation is the full breakdown of one rating period update.
type Evaluation struct {
	Before             RatingState `json:"before"`
	After              RatingState `json:"after"`
	Variance           float64     `json:"variance"`
	Delta              float64     `json:"delta"`
	PrePeriodDeviation float64     `json:"prePeriodDeviation"`
	Iterations         int         `json:"iterations"`
}

// RatingPeriodUpdate collects one subject's games for a rating period and
// computes its next state.
type RatingPeriodUpdate struct {
	Settings Settings

	subject   RatingState
	opponents []OpponentResult
}

// NewRatingPeriodUpdate starts an update for subject with the default settings.
func NewRatingPeriodUpdate(subject RatingState) *RatingPeriodUpdate {
	return NewRatingPeriodUpdateWithSettings(subject, DefaultSettings())
}

// NewRatingPeriodUpdateWithSettings starts an update for subject under settings.
func NewRatingPeriodUpdateWithSettings(subject RatingState, settings Settings) *RatingPeriodUpdate {
	return &RatingPeriodUpdate{
		Settings: settings,
		subject:  subject,
	}
}

// Subject returns the state the update starts from.
func (u *RatingPeriodUpdate) Subject() RatingState {
	return u.subject
}

// Opponents returns a copy of the attached results.
func (u *RatingPeriodUpdate) Opponents() []OpponentResult {
	out := make([]OpponentResult, len(u.opponents))
	copy(out, u.opponents)
	return out
}

// AddOpponent records one game against opponent, from the subject's side.
func (u *RatingPeriodUpdate) AddOpponent(opponent RatingState, outcome Outcome) error {
	if err := opponent.Validate(); err != nil {
		return fmt.Errorf("opponent: %w", err)
	}
	if !outcome.Valid() {
		return ErrInvalidOutcome
	}
	u.opponents = append(u.opponents, OpponentResult{Opponent: opponent, Outcome: outcome})
	return nil
}

// Compute returns the subject's state for the next period. Nothing held by u changes.
func (u *RatingPeriodUpdate) Compute() (RatingState, error) {
	ev, err := u.Evaluate()
	if err != nil {
		return RatingState{}, err
	}
	return ev.After, nil
}

// Apply computes the next state, makes it the held subject and clears the
// opponent list so the update can be reused for the next period.
func (u *RatingPeriodUpdate) Apply() (RatingState, error) {
	next, err := u.Compute()
	if err != nil {
		return RatingState{}, err
	}
	u.subject = next
	u.opponents = nil
	return next, nil
}

// Evaluate runs the period update: variance, improvement, volatility,
// pre-period deviation, then the new deviation and rating.
func (u *RatingPeriodUpdate) Evaluate() (Evaluation, error) {
	if err := u.Settings.Validate(); err != nil {
		return Evaluation{}, err
	}
	if err := u.subject.Validate(); err != nil {
		return Evaluation{}, err
	}
	if len(u.opponents) == 0 {
		return Evaluation{}, ErrNoOpponents
	}
	for _, o := range u.opponents {
		if err := o.Opponent.Validate(); err != nil {
			return Evaluation{}, fmt.Errorf("opponent: %w", err)
		}
		if !o.Outcome.Valid() {
			return Evaluation{}, ErrInvalidOutcome
		}
	}

	mu := u.subject.Rating
	phi := u.subject.RatingDeviation

	v := u.variance()
	if !isFinite(v) {
		return Evaluation{}, ErrNonFiniteValue
	}
	improvement := u.improvement()
	delta := v * improvement

	problem := newVolatilityProblem(delta, phi, v, u.subject.Volatility, u.Settings.Tau)
	x, iterations, err := problem.solve(u.Settings.Tolerance, u.Settings.MaxIterations)
	if err != nil {
		return Evaluation{}, err
	}
	volatility := math.Exp(x / 2)

	phiStar := math.Sqrt(phi*phi + volatility*volatility)
	newPhi := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	newMu := mu + newPhi*newPhi*improvement

	after := RatingState{
		Rating:          newMu,
		RatingDeviation: newPhi,
		Volatility:      volatility,
	}
	if err := after.Validate(); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrVolatilityNotConverged, err)
	}

	return Evaluation{
		Before:             u.subject,
		After:              after,
		Variance:           v,
		Delta:              delta,
		PrePeriodDeviation: phiStar,
		Iterations:         iterations,
	}, nil
}

// variance is the estimated variance V of the subject's performance,
// based only on the opponents' ratings and deviations.
func (u *RatingPeriodUpdate) variance() float64 {
	sum := 0.0
	for _, o := range u.opponents {
		gj := g(o.Opponent.RatingDeviation)
		e := expectedScore(u.subject.Rating, o.Opponent.Rating, o.Opponent.RatingDeviation)
		sum += gj * gj * e * (1 - e)
	}
	return 1 / sum
}

// improvement is Σ g(φj)·(s − E); scaled by V it gives Δ, scaled by φ'² the rating change.
func (u *RatingPeriodUpdate) improvement() float64 {
	sum := 0.0
	for _, o := range u.opponents {
		e := expectedScore(u.subject.Rating, o.Opponent.Rating, o.Opponent.RatingDeviation)
		sum += g(o.Opponent.RatingDeviation) * (o.Outcome.Score() - e)
	}
	return sum
}

// WinProbability is the chance that a beats b, using both deviations.
func WinProbability(a, b RatingState) float64 {
	combined := math.Sqrt(a.RatingDeviation*a.RatingDeviation + b.RatingDeviation*b.RatingDeviation)
	return 1 / (1 + math.Exp(-g(combined)*(a.Rating-b.Rating)))
}
