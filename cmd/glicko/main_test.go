package main

import (
	"testing"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGame(t *testing.T) {
	tests := []struct {
		in      string
		outcome domain.Outcome
		vol     float64
		wantErr bool
	}{
		{in: "1400:30:win", outcome: domain.Win, vol: domain.DefaultVolatility},
		{in: "1550:100:0.05:loss", outcome: domain.Loss, vol: 0.05},
		{in: "1700:300:0.5", outcome: domain.Draw, vol: domain.DefaultVolatility},
		{in: "1700:300", wantErr: true},
		{in: "abc:300:win", wantErr: true},
		{in: "1700:0:win", wantErr: true},
		{in: "1700:300:maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGame(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.vol, got.Opponent.Volatility)
		})
	}
}

func TestGameFlagsAccumulate(t *testing.T) {
	var g gameFlags
	require.NoError(t, g.Set("1400:30:win"))
	require.NoError(t, g.Set("1550:100:loss"))
	assert.Len(t, g, 2)
	assert.Error(t, g.Set("nope"))
	assert.Len(t, g, 2)
}

func TestParseOpponent(t *testing.T) {
	s, err := parseOpponent("1673.7178:173.7178")
	require.NoError(t, err)
	assert.InDelta(t, 1, s.Rating, 1e-12)
	assert.InDelta(t, 1, s.RatingDeviation, 1e-12)

	_, err = parseOpponent("1500")
	assert.Error(t, err)
}
