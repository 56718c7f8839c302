package domain

import "time"

type Player struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	State       RatingState `json:"state"`
	GamesPlayed int         `json:"gamesPlayed"`
	Wins        int         `json:"wins"`
	Draws       int         `json:"draws"`
	Losses      int         `json:"losses"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PlayerRating is a player's state on the conventional scale, for display.
type PlayerRating struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

func (p *Player) Rating() PlayerRating {
	r, rd, vol := p.State.Conventional()
	return PlayerRating{
		ID:         p.ID,
		Name:       p.Name,
		Rating:     r,
		Deviation:  rd,
		Volatility: vol,
	}
}

// Game is one result recorded in a rating period, from PlayerID's side.
type Game struct {
	ID         int64     `json:"id"`
	PeriodID   int64     `json:"periodId"`
	PlayerID   int64     `json:"playerId"`
	OpponentID int64     `json:"opponentId"`
	Outcome    Outcome   `json:"outcome"`
	PlayedAt   time.Time `json:"playedAt"`
}

type RatingPeriod struct {
	ID        int64      `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// RatingChange is one player's transition across a closed rating period.
type RatingChange struct {
	PlayerID int64       `json:"playerId"`
	PeriodID int64       `json:"periodId"`
	Before   RatingState `json:"before"`
	After    RatingState `json:"after"`
	Games    int         `json:"games"`
	Wins     int         `json:"wins"`
	Draws    int         `json:"draws"`
	Losses   int         `json:"losses"`
	At       time.Time   `json:"at"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	PlayerID    int64   `json:"playerId"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Deviation   float64 `json:"deviation"`
	GamesPlayed int     `json:"gamesPlayed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}
