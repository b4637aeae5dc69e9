package frontier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PortfolioPoint is a weight vector together with its annualized return,
// volatility and return-to-volatility ratio.
//
// SharpeRatio is ExpectedReturn / Volatility with no risk-free subtraction,
// matching the sampled frontier column. It is NaN when Volatility is zero.
type PortfolioPoint struct {
	Weights        []float64
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    float64
}

// Degenerate reports whether the point has an undefined Sharpe ratio.
func (p PortfolioPoint) Degenerate() bool {
	return math.IsNaN(p.SharpeRatio)
}

// Evaluate computes return, volatility and Sharpe ratio for the weights.
// A zero-volatility portfolio is still returned, with a NaN Sharpe ratio and
// ErrDegenerateVolatility, so callers can decide whether to keep it.
func Evaluate(weights []float64, m *MomentEstimate) (PortfolioPoint, error) {
	if len(weights) != m.AssetCount() {
		return PortfolioPoint{}, fmt.Errorf("%w: %d weights for %d assets", ErrDimensionMismatch, len(weights), m.AssetCount())
	}

	w := mat.NewVecDense(len(weights), append([]float64(nil), weights...))
	ret, vol := m.performance(w)

	point := PortfolioPoint{
		Weights:        w.RawVector().Data,
		ExpectedReturn: ret,
		Volatility:     vol,
	}
	if vol == 0 {
		point.SharpeRatio = math.NaN()
		return point, ErrDegenerateVolatility
	}
	point.SharpeRatio = ret / vol
	return point, nil
}

// performance returns w·μ and sqrt(wᵀΣw), clamping negative rounding noise to zero.
func (e *MomentEstimate) performance(w mat.Vector) (float64, float64) {
	ret := mat.Dot(w, e.mean)
	variance := mat.Inner(w, e.covariance, w)
	if variance < 0 {
		variance = 0
	}
	return ret, math.Sqrt(variance)
}
