package frontier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTangency(t *testing.T) {
	sample := &FrontierSample{Points: []PortfolioPoint{
		{ExpectedReturn: 0.10, Volatility: 0.20, SharpeRatio: 0.5},
		{ExpectedReturn: 0.18, Volatility: 0.20, SharpeRatio: 0.9},
		{ExpectedReturn: 0.00, Volatility: 0.00, SharpeRatio: math.NaN()},
		{ExpectedReturn: 0.09, Volatility: 0.10, SharpeRatio: 0.9},
		{ExpectedReturn: 0.05, Volatility: 0.25, SharpeRatio: 0.2},
	}}

	tangency, cal, err := ResolveTangency(sample, 0.01)
	require.NoError(t, err)

	// First maximum wins.
	assert.Equal(t, 0.18, tangency.ExpectedReturn)
	assert.Equal(t, 0.01, cal.Intercept)
	assert.InDelta(t, (0.18-0.01)/0.20, cal.Slope, 1e-12)

	assert.InDelta(t, 0.01, cal.ReturnAt(0), 1e-12)
	assert.InDelta(t, 0.18, cal.ReturnAt(0.20), 1e-12)
}

func TestResolveTangency_SkipsLeadingNaN(t *testing.T) {
	sample := &FrontierSample{Points: []PortfolioPoint{
		{SharpeRatio: math.NaN()},
		{ExpectedReturn: 0.06, Volatility: 0.3, SharpeRatio: 0.2},
	}}

	tangency, _, err := ResolveTangency(sample, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.06, tangency.ExpectedReturn)
}

func TestResolveTangency_Errors(t *testing.T) {
	_, _, err := ResolveTangency(&FrontierSample{}, 0.01)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = ResolveTangency(&FrontierSample{Points: []PortfolioPoint{
		{SharpeRatio: math.NaN()},
		{SharpeRatio: math.NaN()},
	}}, 0.01)
	assert.ErrorIs(t, err, ErrDegenerateVolatility)
}

func TestCapitalAllocationLine_Segment(t *testing.T) {
	cal := CapitalAllocationLine{Intercept: 0.001, Slope: 0.5}

	points := cal.Segment(0.3, DefaultCALPoints)
	require.Len(t, points, 100)

	assert.Equal(t, 0.0, points[0].Volatility)
	assert.InDelta(t, 0.001, points[0].Return, 1e-15)
	assert.InDelta(t, 0.3, points[99].Volatility, 1e-15)
	assert.InDelta(t, 0.151, points[99].Return, 1e-12)

	step := points[1].Volatility - points[0].Volatility
	assert.InDelta(t, 0.3/99, step, 1e-15)
}
