package frontier

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// ReportedWeightDecimals is the precision of weights in reports.
const ReportedWeightDecimals = 5

const (
	boundsTolerance = 1e-12
	penaltyWeight   = 1000.0
)

// Bounds are per-asset weight limits applied uniformly to every asset.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds allows any long-only portfolio.
var DefaultBounds = Bounds{Min: 0, Max: 1}

// Validate checks that a fully invested portfolio of n assets can satisfy
// the bounds.
func (b Bounds) Validate(n int) error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
		return fmt.Errorf("%w: bounds must be finite, got [%v, %v]", ErrInvalidBounds, b.Min, b.Max)
	}
	if b.Min > b.Max {
		return fmt.Errorf("%w: min weight %.4f exceeds max weight %.4f", ErrInvalidBounds, b.Min, b.Max)
	}
	if float64(n)*b.Min > 1+boundsTolerance {
		return fmt.Errorf("%w: %d assets at min weight %.4f exceed a fully invested portfolio", ErrInvalidBounds, n, b.Min)
	}
	if float64(n)*b.Max < 1-boundsTolerance {
		return fmt.Errorf("%w: %d assets at max weight %.4f cannot reach a fully invested portfolio", ErrInvalidBounds, n, b.Max)
	}
	return nil
}

// OptimizerSettings bounds the work the solver may do.
type OptimizerSettings struct {
	MaxIterations      int
	MaxFuncEvaluations int
	GradientThreshold  float64
}

// DefaultOptimizerSettings returns the settings used when none are configured.
func DefaultOptimizerSettings() OptimizerSettings {
	return OptimizerSettings{
		MaxIterations:      1000,
		MaxFuncEvaluations: 200000,
		GradientThreshold:  1e-8,
	}
}

// OptimalPortfolio is the result of the constrained search.
type OptimalPortfolio struct {
	PortfolioPoint
	Assets          []string
	Converged       bool
	Method          string
	Status          string
	Iterations      int
	FuncEvaluations int
	// Warning wraps ErrOptimizationDidNotConverge when Converged is false.
	// The weights are feasible but may not be optimal.
	Warning error
}

// ReportedWeights returns the weights rounded to ReportedWeightDecimals.
func (p *OptimalPortfolio) ReportedWeights() []float64 {
	scale := math.Pow(10, ReportedWeightDecimals)
	out := make([]float64, len(p.Weights))
	for i, w := range p.Weights {
		out[i] = math.Round(w*scale) / scale
	}
	return out
}

// Optimizer maximizes the return-to-volatility ratio subject to
// sum(w) = 1 and Min <= w_i <= Max.
type Optimizer struct {
	settings OptimizerSettings
	log      zerolog.Logger
}

// NewOptimizer creates a new constrained optimizer.
func NewOptimizer(settings OptimizerSettings, log zerolog.Logger) *Optimizer {
	defaults := DefaultOptimizerSettings()
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = defaults.MaxIterations
	}
	if settings.MaxFuncEvaluations <= 0 {
		settings.MaxFuncEvaluations = defaults.MaxFuncEvaluations
	}
	if settings.GradientThreshold <= 0 {
		settings.GradientThreshold = defaults.GradientThreshold
	}
	return &Optimizer{
		settings: settings,
		log:      log.With().Str("component", "frontier_optimizer").Logger(),
	}
}

// Optimize searches for the weights with the highest expected return per unit
// of volatility, starting from equal weights.
//
// Mathematical formulation:
//   - Objective: minimize -(μ'w) / sqrt(w'Σw), no risk-free subtraction
//   - Σw = 1 and Min ≤ w_i ≤ Max, enforced by projecting every iterate onto
//     the capped simplex, plus a quadratic penalty on the projection distance
//
// Preconditions are checked before the solver runs. A solver that stops
// without converging still yields feasible weights, flagged via Converged
// and Warning.
func (o *Optimizer) Optimize(m *MomentEstimate, bounds Bounds) (*OptimalPortfolio, error) {
	if m == nil || m.AssetCount() < 2 {
		return nil, fmt.Errorf("%w: optimizer needs at least 2 assets", ErrInsufficientData)
	}
	n := m.AssetCount()
	if err := bounds.Validate(n); err != nil {
		return nil, err
	}

	problem := o.buildProblem(m, bounds)

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, method, converged := o.run(problem, initial)

	weights := projectCappedSimplex(result.X, bounds.Min, bounds.Max)
	point, err := Evaluate(weights, m)
	if err != nil && !errors.Is(err, ErrDegenerateVolatility) {
		return nil, fmt.Errorf("failed to evaluate optimal weights: %w", err)
	}
	if err != nil {
		o.log.Warn().Msg("Optimal weights have zero volatility")
	}

	portfolio := &OptimalPortfolio{
		PortfolioPoint:  point,
		Assets:          m.Assets(),
		Converged:       converged,
		Method:          method,
		Status:          result.Status.String(),
		Iterations:      result.Stats.MajorIterations,
		FuncEvaluations: result.Stats.FuncEvaluations,
	}

	if !converged {
		portfolio.Warning = fmt.Errorf("%w: %s stopped with status %s after %d iterations",
			ErrOptimizationDidNotConverge, method, result.Status, result.Stats.MajorIterations)
		o.log.Warn().
			Str("method", method).
			Str("status", result.Status.String()).
			Int("iterations", result.Stats.MajorIterations).
			Msg("Optimizer did not converge, returning last feasible iterate")
	}

	o.log.Debug().
		Int("num_assets", n).
		Str("method", method).
		Bool("converged", converged).
		Float64("expected_return", point.ExpectedReturn).
		Float64("volatility", point.Volatility).
		Msg("Optimized portfolio")

	return portfolio, nil
}

func (o *Optimizer) buildProblem(m *MomentEstimate, bounds Bounds) optimize.Problem {
	n := m.AssetCount()

	objective := func(x []float64) float64 {
		proj := projectCappedSimplex(x, bounds.Min, bounds.Max)
		w := mat.NewVecDense(n, proj)

		returnVal := mat.Dot(w, m.mean)
		variance := mat.Inner(w, m.covariance, w)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))

		dist := floats.Distance(x, proj, 2)
		return -returnVal/stdDev + penaltyWeight*dist*dist
	}

	return optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central})
		},
	}
}

// run tries BFGS first and falls back to Nelder-Mead, returning the best
// result and whether it converged.
func (o *Optimizer) run(problem optimize.Problem, initial []float64) (*optimize.Result, string, bool) {
	settings := func() *optimize.Settings {
		return &optimize.Settings{
			MajorIterations:   o.settings.MaxIterations,
			FuncEvaluations:   o.settings.MaxFuncEvaluations,
			GradientThreshold: o.settings.GradientThreshold,
		}
	}

	type attempt struct {
		name   string
		method optimize.Method
	}
	attempts := []attempt{
		{name: "bfgs", method: &optimize.BFGS{}},
		{name: "nelder_mead", method: &optimize.NelderMead{}},
	}

	var (
		best       *optimize.Result
		bestMethod string
	)
	for _, a := range attempts {
		result, err := optimize.Minimize(problem, initial, settings(), a.method)
		if err != nil {
			o.log.Debug().Err(err).Str("method", a.name).Msg("Optimizer method failed")
		}
		if result == nil || len(result.X) != len(initial) {
			continue
		}
		if err == nil && statusConverged(result.Status) {
			return result, a.name, true
		}
		if best == nil || result.F < best.F {
			best, bestMethod = result, a.name
		}
	}

	if best == nil {
		// Both methods failed outright; report the starting point.
		best = &optimize.Result{
			Location: optimize.Location{X: append([]float64(nil), initial...)},
			Status:   optimize.Failure,
		}
		bestMethod = "none"
	}
	return best, bestMethod, false
}

func statusConverged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.GradientThreshold,
		optimize.FunctionConvergence,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

// projectCappedSimplex returns the Euclidean projection of x onto
// {w : sum(w) = 1, lo <= w_i <= hi}. The bounds must already be validated.
// The projection has the form w_i = clamp(x_i - tau, lo, hi); tau is found by
// bisection since the sum is non-increasing in tau.
func projectCappedSimplex(x []float64, lo, hi float64) []float64 {
	n := len(x)
	in := make([]float64, n)
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 1.0 / float64(n)
		}
		in[i] = v
	}

	out := make([]float64, n)
	sumAt := func(tau float64) float64 {
		s := 0.0
		for i, v := range in {
			out[i] = math.Max(lo, math.Min(hi, v-tau))
			s += out[i]
		}
		return s
	}

	left := floats.Min(in) - hi
	right := floats.Max(in) - lo
	for iter := 0; iter < 200 && right-left > 1e-16; iter++ {
		mid := 0.5 * (left + right)
		if sumAt(mid) > 1 {
			left = mid
		} else {
			right = mid
		}
	}
	sumAt(0.5 * (left + right))
	return out
}
