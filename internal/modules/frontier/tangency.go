package frontier

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultCALPoints is the number of points used to trace the capital
// allocation line from zero to the largest sampled volatility.
const DefaultCALPoints = 100

// CapitalAllocationLine is the line through (0, risk-free period rate) and
// the tangency portfolio, parameterized by volatility.
type CapitalAllocationLine struct {
	Intercept float64 // risk-free period rate
	Slope     float64 // (tangency return - intercept) / tangency volatility
}

// LinePoint is one (volatility, return) coordinate.
type LinePoint struct {
	Volatility float64
	Return     float64
}

// ReturnAt evaluates the line at volatility x.
func (l CapitalAllocationLine) ReturnAt(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Segment returns points evenly spaced over [0, maxVolatility], inclusive.
func (l CapitalAllocationLine) Segment(maxVolatility float64, points int) []LinePoint {
	if points < 2 {
		points = 2
	}
	xs := floats.Span(make([]float64, points), 0, maxVolatility)
	out := make([]LinePoint, points)
	for i, x := range xs {
		out[i] = LinePoint{Volatility: x, Return: l.ReturnAt(x)}
	}
	return out
}

// ResolveTangency selects the sampled portfolio with the highest Sharpe ratio
// and derives the capital allocation line through it.
//
// Sharpe ratios in the sample exclude the risk-free rate, so the tangency
// point is the maximum return-to-volatility point; the line itself is still
// anchored at the risk-free period rate. Points with NaN Sharpe are skipped
// and the first maximum wins on ties.
func ResolveTangency(sample *FrontierSample, periodRate float64) (PortfolioPoint, CapitalAllocationLine, error) {
	if sample == nil || len(sample.Points) == 0 {
		return PortfolioPoint{}, CapitalAllocationLine{}, fmt.Errorf("%w: empty frontier sample", ErrInsufficientData)
	}

	best := -1
	for i, p := range sample.Points {
		if p.Degenerate() {
			continue
		}
		if best < 0 || p.SharpeRatio > sample.Points[best].SharpeRatio {
			best = i
		}
	}
	if best < 0 {
		return PortfolioPoint{}, CapitalAllocationLine{}, fmt.Errorf("%w: no sampled portfolio has a defined Sharpe ratio", ErrDegenerateVolatility)
	}

	tangency := sample.Points[best]
	line := CapitalAllocationLine{
		Intercept: periodRate,
		Slope:     (tangency.ExpectedReturn - periodRate) / tangency.Volatility,
	}
	return tangency, line, nil
}
