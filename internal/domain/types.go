package domain

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrNoOpponents            Error = "rating period has no opponents"
	ErrInvalidDeviation       Error = "rating deviation must be positive"
	ErrInvalidVolatility      Error = "volatility must be positive"
	ErrNonFiniteValue         Error = "rating values must be finite"
	ErrInvalidOutcome         Error = "invalid game outcome"
	ErrInvalidSettings        Error = "invalid rating system settings"
	ErrVolatilityNotConverged Error = "volatility iteration did not converge"
	ErrPlayerExists           Error = "player name already taken"
)

// to represent the websocket message types
type MessageType string

const (
	MessageRatingUpdate MessageType = "rating_update"
	MessagePeriodClosed MessageType = "period_closed"
	MessageGameRecorded MessageType = "game_recorded"
	MessageWelcome      MessageType = "welcome"
	MessageSubscribed   MessageType = "subscribed"
	MessageError        MessageType = "error"
)

type ServerMessage struct {
	Type     MessageType   `json:"type"`
	Message  string        `json:"message,omitempty"`
	PeriodID int64         `json:"periodId,omitempty"`
	Player   *PlayerRating `json:"player,omitempty"`
	Game     *Game         `json:"game,omitempty"`
}

// ClientMessage is sent by websocket subscribers. A subscribe message with
// player IDs narrows player-specific events to those players; an empty list
// subscribes to everything again.
type ClientMessage struct {
	Type      string  `json:"type"`
	PlayerIDs []int64 `json:"playerIds,omitempty"`
}
