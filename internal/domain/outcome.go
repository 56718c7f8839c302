package domain

import (
	"encoding/json"
	"strings"
)

// Outcome is the result of one game from the subject's point of view.
type Outcome uint8

const (
	Loss Outcome = iota
	Draw
	Win
)

func (o Outcome) Valid() bool {
	return o <= Win
}

// Score maps the outcome to 0, 0.5 or 1.
func (o Outcome) Score() float64 {
	return float64(o) / 2
}

// Inverse is the same game seen from the opponent's side.
func (o Outcome) Inverse() Outcome {
	return Win - o
}

func (o Outcome) String() string {
	switch o {
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	case Win:
		return "win"
	}
	return "invalid"
}

func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loss", "lose", "lost", "0":
		return Loss, nil
	case "draw", "0.5":
		return Draw, nil
	case "win", "won", "1":
		return Win, nil
	}
	return 0, ErrInvalidOutcome
}

// OutcomeFromScore accepts exactly 0, 0.5 and 1.
func OutcomeFromScore(score float64) (Outcome, error) {
	switch score {
	case 0:
		return Loss, nil
	case 0.5:
		return Draw, nil
	case 1:
		return Win, nil
	}
	return 0, ErrInvalidOutcome
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, ErrInvalidOutcome
	}
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var score float64
		if err := json.Unmarshal(data, &score); err != nil {
			return ErrInvalidOutcome
		}
		parsed, err := OutcomeFromScore(score)
		if err != nil {
			return err
		}
		*o = parsed
		return nil
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
