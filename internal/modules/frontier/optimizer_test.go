package frontier

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func newTestOptimizer() *Optimizer {
	return NewOptimizer(DefaultOptimizerSettings(), zerolog.Nop())
}

func assertFeasible(t *testing.T, weights []float64, b Bounds) {
	t.Helper()
	assert.InDelta(t, 1.0, floats.Sum(weights), 1e-6, "weights should sum to 1")
	for i, w := range weights {
		assert.GreaterOrEqual(t, w, b.Min-1e-9, "weight %d below min", i)
		assert.LessOrEqual(t, w, b.Max+1e-9, "weight %d above max", i)
	}
}

func TestOptimizer_ConcreteScenario(t *testing.T) {
	m := concreteMoments(t)

	result, err := newTestOptimizer().Optimize(m, DefaultBounds)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Converged)
	assert.NoError(t, result.Warning)
	assertFeasible(t, result.Weights, DefaultBounds)

	assert.Greater(t, result.ExpectedReturn, 0.10)
	assert.Less(t, result.ExpectedReturn, 0.20)

	// Σ⁻¹μ is proportional to (1, 1) here.
	assert.InDelta(t, 0.5, result.Weights[0], 1e-3)
	assert.InDelta(t, 0.5, result.Weights[1], 1e-3)
	assert.InDelta(t, 0.15, result.ExpectedReturn, 1e-3)
	assert.Equal(t, []string{"A", "B"}, result.Assets)
}

func TestOptimizer_DominantAsset(t *testing.T) {
	m, err := NewMomentEstimate([]string{"STRONG", "WEAK"}, []float64{0.20, 0.02}, [][]float64{
		{0.04, 0.03},
		{0.03, 0.09},
	})
	require.NoError(t, err)

	result, err := newTestOptimizer().Optimize(m, DefaultBounds)
	require.NoError(t, err)

	assertFeasible(t, result.Weights, DefaultBounds)
	assert.InDelta(t, 1.0, result.Weights[0], 1e-3, "dominant asset should approach max weight")
	assert.InDelta(t, 1.0, result.SharpeRatio, 1e-3)
}

func TestOptimizer_RespectsMaxWeight(t *testing.T) {
	m, err := NewMomentEstimate([]string{"STRONG", "WEAK"}, []float64{0.20, 0.02}, [][]float64{
		{0.04, 0.03},
		{0.03, 0.09},
	})
	require.NoError(t, err)

	bounds := Bounds{Min: 0, Max: 0.7}
	result, err := newTestOptimizer().Optimize(m, bounds)
	require.NoError(t, err)

	assertFeasible(t, result.Weights, bounds)
	assert.InDelta(t, 0.7, result.Weights[0], 1e-3)
	assert.InDelta(t, 0.3, result.Weights[1], 1e-3)
}

func TestOptimizer_RespectsMinWeight(t *testing.T) {
	// LOSER has a negative mean, so the unconstrained optimum holds none of it.
	m, err := NewMomentEstimate([]string{"A", "B", "LOSER"}, []float64{0.10, 0.12, -0.05}, [][]float64{
		{0.04, 0, 0},
		{0, 0.04, 0},
		{0, 0, 0.04},
	})
	require.NoError(t, err)

	unconstrained, err := newTestOptimizer().Optimize(m, DefaultBounds)
	require.NoError(t, err)
	assert.Less(t, unconstrained.Weights[2], 0.2)

	bounds := Bounds{Min: 0.2, Max: 1}
	result, err := newTestOptimizer().Optimize(m, bounds)
	require.NoError(t, err)

	assertFeasible(t, result.Weights, bounds)
	assert.InDelta(t, 0.2, result.Weights[2], 1e-4, "lower bound should bind on the losing asset")
	assert.Greater(t, result.Weights[0], 0.2+1e-3)
	assert.Greater(t, result.Weights[1], 0.2+1e-3)
	assert.InDelta(t, 0.6537, result.SharpeRatio, 1e-3)
}

func TestOptimizer_NotWorseThanEqualWeights(t *testing.T) {
	m := threeAssetMoments(t)

	result, err := newTestOptimizer().Optimize(m, DefaultBounds)
	require.NoError(t, err)

	equal, err := Evaluate([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, m)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.SharpeRatio, equal.SharpeRatio-1e-9)
}

func TestOptimizer_InvalidBounds(t *testing.T) {
	m := concreteMoments(t)

	tests := []struct {
		name   string
		bounds Bounds
	}{
		{"inverted", Bounds{Min: 0.6, Max: 0.4}},
		{"min too large", Bounds{Min: 0.6, Max: 1}},
		{"max too small", Bounds{Min: 0, Max: 0.4}},
		{"nan", Bounds{Min: math.NaN(), Max: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestOptimizer().Optimize(m, tt.bounds)
			assert.ErrorIs(t, err, ErrInvalidBounds)
			assert.Nil(t, result)
		})
	}
}

func TestOptimizer_InsufficientData(t *testing.T) {
	result, err := newTestOptimizer().Optimize(nil, DefaultBounds)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Nil(t, result)
}

func TestOptimizer_NonConvergenceIsAWarning(t *testing.T) {
	m, err := NewMomentEstimate(
		[]string{"A", "B", "C", "D"},
		[]float64{0.05, 0.25, 0.10, 0.02},
		[][]float64{
			{0.030, 0.004, 0.002, 0.001},
			{0.004, 0.160, 0.010, 0.003},
			{0.002, 0.010, 0.050, 0.002},
			{0.001, 0.003, 0.002, 0.020},
		},
	)
	require.NoError(t, err)

	optimizer := NewOptimizer(OptimizerSettings{MaxIterations: 1}, zerolog.Nop())
	result, err := optimizer.Optimize(m, DefaultBounds)
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.ErrorIs(t, result.Warning, ErrOptimizationDidNotConverge)
	assertFeasible(t, result.Weights, DefaultBounds)
}

func TestOptimalPortfolio_ReportedWeights(t *testing.T) {
	p := &OptimalPortfolio{PortfolioPoint: PortfolioPoint{
		Weights: []float64{0.123456789, 0.876543211},
	}}

	assert.Equal(t, []float64{0.12346, 0.87654}, p.ReportedWeights())
	// Unrounded weights stay available.
	assert.Equal(t, 0.123456789, p.Weights[0])
}

func TestBounds_Validate(t *testing.T) {
	assert.NoError(t, DefaultBounds.Validate(2))
	assert.NoError(t, Bounds{Min: 0.25, Max: 0.25}.Validate(4))
	assert.NoError(t, Bounds{Min: 0, Max: 0.5}.Validate(2))
	assert.ErrorIs(t, Bounds{Min: 0.5, Max: 0.4}.Validate(2), ErrInvalidBounds)
	assert.ErrorIs(t, Bounds{Min: 0, Max: 0.2}.Validate(4), ErrInvalidBounds)
	assert.ErrorIs(t, Bounds{Min: 0, Max: math.Inf(1)}.Validate(4), ErrInvalidBounds)
}

func TestProjectCappedSimplex(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		lo, hi   float64
		expected []float64
	}{
		{"feasible point unchanged", []float64{0.3, 0.7}, 0, 1, []float64{0.3, 0.7}},
		{"shift onto simplex", []float64{0.6, 0.6}, 0, 1, []float64{0.5, 0.5}},
		{"clip negative", []float64{2, -1}, 0, 1, []float64{1, 0}},
		{"upper cap", []float64{0.9, 0.05, 0.05}, 0.1, 0.5, []float64{0.5, 0.25, 0.25}},
		{"pinned", []float64{5, -3, 0.2, 0}, 0.25, 0.25, []float64{0.25, 0.25, 0.25, 0.25}},
		{"non-finite treated as equal weight", []float64{math.NaN(), 0.5}, 0, 1, []float64{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := projectCappedSimplex(tt.x, tt.lo, tt.hi)
			require.Len(t, got, len(tt.expected))
			for i := range got {
				assert.InDelta(t, tt.expected[i], got[i], 1e-9)
			}
			assert.InDelta(t, 1.0, floats.Sum(got), 1e-12)
		})
	}
}
