package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolatilitySolverConverges(t *testing.T) {
	deltas := []float64{-4, -3.75, -2.5, -1, -0.4834, 0, 0.25, 1.5, 3, 3.75, 4}
	deviations := []float64{0.2, 0.35, 0.5, 1, 1.5, DefaultRatingDeviation}
	variances := []float64{0.3, 0.5, 1, 1.7785, 3, 10, 30}
	volatilities := []float64{0.03, 0.06, 0.1}
	taus := []float64{0.3, 0.5, 0.75, 0.9, 1.2}

	for _, delta := range deltas {
		for _, phi := range deviations {
			for _, v := range variances {
				for _, sigma := range volatilities {
					for _, tau := range taus {
						p := newVolatilityProblem(delta, phi, v, sigma, tau)
						x, iterations, err := p.solve(DefaultTolerance, DefaultMaxIterations)
						require.NoError(t, err, "delta=%v phi=%v v=%v sigma=%v tau=%v", delta, phi, v, sigma, tau)
						assert.LessOrEqual(t, iterations, 50)
						assert.Less(t, math.Abs(p.f(x)), 1e-6, "delta=%v phi=%v v=%v sigma=%v tau=%v", delta, phi, v, sigma, tau)
					}
				}
			}
		}
	}
}

func TestVolatilityBracket(t *testing.T) {
	t.Run("large improvement uses the log bracket", func(t *testing.T) {
		p := newVolatilityProblem(3, 0.5, 1, 0.06, 0.9)
		B, err := p.bracket(DefaultMaxIterations)
		require.NoError(t, err)
		assert.InDelta(t, math.Log(9-0.25-1), B, 1e-12)
	})

	t.Run("small improvement steps down until f is non-negative", func(t *testing.T) {
		p := newVolatilityProblem(-0.4834, 200/ConventionalUnit, 1.7785, 0.06, 0.5)
		B, err := p.bracket(DefaultMaxIterations)
		require.NoError(t, err)
		assert.Less(t, p.f(p.a), 0.0)
		assert.GreaterOrEqual(t, p.f(B), 0.0)
		k := (p.a - B) / p.tau
		assert.InDelta(t, math.Round(k), k, 1e-9)
		assert.GreaterOrEqual(t, k, 1.0)
	})
}

func TestVolatilitySolverIterationCeiling(t *testing.T) {
	p := newVolatilityProblem(-0.4834, 200/ConventionalUnit, 1.7785, 0.06, 0.5)
	_, _, err := p.solve(0, 1)
	assert.ErrorIs(t, err, ErrVolatilityNotConverged)
}
