package domain

import "math"

// volatilityProblem holds the inputs of the new-volatility equation f(x) = 0,
// where x = ln(σ'²).
type volatilityProblem struct {
	delta     float64
	deviation float64
	variance  float64
	a         float64 // ln(σ²)
	tau       float64
}

func newVolatilityProblem(delta, deviation, variance, volatility, tau float64) volatilityProblem {
	return volatilityProblem{
		delta:     delta,
		deviation: deviation,
		variance:  variance,
		a:         math.Log(volatility * volatility),
		tau:       tau,
	}
}

func (p volatilityProblem) f(x float64) float64 {
	ex := math.Exp(x)
	phi2 := p.deviation * p.deviation
	denom := phi2 + p.variance + ex
	return ex*(p.delta*p.delta-phi2-p.variance-ex)/(2*denom*denom) - (x-p.a)/(p.tau*p.tau)
}

// bracket returns the second endpoint B. f(a) is never positive when
// Δ² <= φ²+v, so B steps down by τ until f(B) stops being negative.
func (p volatilityProblem) bracket(maxIterations int) (float64, error) {
	phi2 := p.deviation * p.deviation
	d2 := p.delta * p.delta
	if d2 > phi2+p.variance {
		return math.Log(d2 - phi2 - p.variance), nil
	}

	k := 1.0
	for i := 0; p.f(p.a-k*p.tau) < 0; i++ {
		if i >= maxIterations {
			return 0, ErrVolatilityNotConverged
		}
		k++
	}
	return p.a - k*p.tau, nil
}

// solve runs the Illinois iteration and returns the converged x = ln(σ'²)
// together with the number of secant steps taken.
func (p volatilityProblem) solve(tolerance float64, maxIterations int) (float64, int, error) {
	A := p.a
	B, err := p.bracket(maxIterations)
	if err != nil {
		return 0, 0, err
	}

	fA := p.f(A)
	fB := p.f(B)

	iterations := 0
	for math.Abs(B-A) > tolerance {
		if iterations >= maxIterations {
			return 0, iterations, ErrVolatilityNotConverged
		}
		iterations++

		C := A + (A-B)*fA/(fB-fA)
		fC := p.f(C)
		if !isFinite(C) || !isFinite(fC) {
			return 0, iterations, ErrVolatilityNotConverged
		}
		// exact root: halving fA would never move B again
		if fC == 0 {
			return C, iterations, nil
		}

		if fC*fB < 0 {
			A = B
			fA = fB
		} else {
			fA = fA / 2
		}
		B = C
		fB = fC
	}

	return A, iterations, nil
}
