// Package report flattens a frontier computation into plain numeric tables:
// the sampled frontier, the optimal weights, correlation and covariance
// matrices, and capital allocation line data for plotting.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/frontier/internal/modules/frontier"
)

// ExpectedReturnLabel is the pseudo-asset row appended to the optimal
// portfolio table.
const ExpectedReturnLabel = "Expected Return"

// FrontierRow is one sampled portfolio. SharpeRatio is null when the
// portfolio has zero volatility.
type FrontierRow struct {
	Return      float64  `json:"return" msgpack:"return"`
	Volatility  float64  `json:"volatility" msgpack:"volatility"`
	SharpeRatio *float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
}

// WeightRow is one line of the optimal portfolio table.
type WeightRow struct {
	Stock  string  `json:"stock" msgpack:"stock"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// MatrixTable is a labelled square matrix. Undefined entries are null.
type MatrixTable struct {
	Assets []string     `json:"assets" msgpack:"assets"`
	Values [][]*float64 `json:"values" msgpack:"values"`
}

// LinePoint is one (volatility, return) coordinate on the CAL.
type LinePoint struct {
	Volatility float64 `json:"volatility" msgpack:"volatility"`
	Return     float64 `json:"return" msgpack:"return"`
}

// CALData describes the capital allocation line and a plottable segment.
type CALData struct {
	Intercept float64     `json:"intercept" msgpack:"intercept"`
	Slope     float64     `json:"slope" msgpack:"slope"`
	Points    []LinePoint `json:"points" msgpack:"points"`
}

// TangencyPoint is the best sampled portfolio.
type TangencyPoint struct {
	Return      float64     `json:"return" msgpack:"return"`
	Volatility  float64     `json:"volatility" msgpack:"volatility"`
	SharpeRatio float64     `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	Weights     []WeightRow `json:"weights" msgpack:"weights"`
}

// Optimization summarizes how the constrained search ended.
type Optimization struct {
	Converged   bool     `json:"converged" msgpack:"converged"`
	Method      string   `json:"method" msgpack:"method"`
	Status      string   `json:"status" msgpack:"status"`
	Iterations  int      `json:"iterations" msgpack:"iterations"`
	Volatility  float64  `json:"volatility" msgpack:"volatility"`
	SharpeRatio *float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
}

// Parameters echoes the inputs used, including the resolved seed.
type Parameters struct {
	Interval            string  `json:"interval" msgpack:"interval"`
	AnnualizationFactor int     `json:"annualization_factor" msgpack:"annualization_factor"`
	SampleCount         int     `json:"sample_count" msgpack:"sample_count"`
	Scheme              string  `json:"scheme" msgpack:"scheme"`
	Seed                uint64  `json:"seed" msgpack:"seed"`
	MinWeight           float64 `json:"min_weight" msgpack:"min_weight"`
	MaxWeight           float64 `json:"max_weight" msgpack:"max_weight"`
	RiskFreeRateAnnual  float64 `json:"risk_free_rate" msgpack:"risk_free_rate"`
	RiskFreeRatePeriod  float64 `json:"risk_free_rate_period" msgpack:"risk_free_rate_period"`
}

// Report is the complete tabular output of one computation.
type Report struct {
	ID                string        `json:"id" msgpack:"id"`
	ComputedAt        time.Time     `json:"computed_at" msgpack:"computed_at"`
	Parameters        Parameters    `json:"parameters" msgpack:"parameters"`
	EfficientFrontier []FrontierRow `json:"efficient_frontier" msgpack:"efficient_frontier"`
	OptimalPortfolio  []WeightRow   `json:"optimal_portfolio" msgpack:"optimal_portfolio"`
	Optimization      Optimization  `json:"optimization" msgpack:"optimization"`
	Tangency          TangencyPoint `json:"tangency" msgpack:"tangency"`
	CAL               CALData       `json:"cal" msgpack:"cal"`
	Correlation       MatrixTable   `json:"correlation_matrix" msgpack:"correlation_matrix"`
	Covariance        MatrixTable   `json:"covariance_matrix" msgpack:"covariance_matrix"`
	DegeneratePoints  int           `json:"degenerate_points" msgpack:"degenerate_points"`
	Warnings          []string      `json:"warnings,omitempty" msgpack:"warnings,omitempty"`
}

// Build converts a computation result into report tables.
func Build(r *frontier.Result) (*Report, error) {
	if r == nil || r.Moments == nil || r.Frontier == nil || r.Optimal == nil {
		return nil, fmt.Errorf("incomplete computation result")
	}

	assets := r.Moments.Assets()

	rows := make([]FrontierRow, len(r.Frontier.Points))
	for i, p := range r.Frontier.Points {
		rows[i] = FrontierRow{
			Return:      p.ExpectedReturn,
			Volatility:  p.Volatility,
			SharpeRatio: nullable(p.SharpeRatio),
		}
	}

	var seed uint64
	if r.Params.Seed != nil {
		seed = *r.Params.Seed
	}

	rep := &Report{
		ID:         r.ID.String(),
		ComputedAt: r.ComputedAt,
		Parameters: Parameters{
			Interval:            string(r.Params.Interval),
			AnnualizationFactor: r.Params.AnnualizationFactor,
			SampleCount:         len(r.Frontier.Points),
			Scheme:              string(r.Frontier.Scheme),
			Seed:                seed,
			MinWeight:           r.Params.Bounds.Min,
			MaxWeight:           r.Params.Bounds.Max,
			RiskFreeRateAnnual:  r.Params.RiskFreeRateAnnual,
			RiskFreeRatePeriod:  r.PeriodRiskFreeRate,
		},
		EfficientFrontier: rows,
		OptimalPortfolio:  OptimalTable(r.Optimal),
		Optimization: Optimization{
			Converged:   r.Optimal.Converged,
			Method:      r.Optimal.Method,
			Status:      r.Optimal.Status,
			Iterations:  r.Optimal.Iterations,
			Volatility:  r.Optimal.Volatility,
			SharpeRatio: nullable(r.Optimal.SharpeRatio),
		},
		Tangency: TangencyPoint{
			Return:      r.Tangency.ExpectedReturn,
			Volatility:  r.Tangency.Volatility,
			SharpeRatio: r.Tangency.SharpeRatio,
			Weights:     weightRows(assets, r.Tangency.Weights),
		},
		CAL:              calData(r.CAL, r.Frontier.MaxVolatility()),
		Correlation:      matrixTable(assets, r.Moments.Correlation()),
		Covariance:       matrixTable(assets, r.Moments.Covariance()),
		DegeneratePoints: r.Frontier.Degenerate,
	}

	for _, w := range r.Warnings {
		rep.Warnings = append(rep.Warnings, w.Error())
	}
	return rep, nil
}

// OptimalTable lists each asset with its weight rounded to five decimals,
// followed by the expected return of the unrounded weights.
func OptimalTable(p *frontier.OptimalPortfolio) []WeightRow {
	rows := weightRows(p.Assets, p.ReportedWeights())
	return append(rows, WeightRow{Stock: ExpectedReturnLabel, Weight: p.ExpectedReturn})
}

func weightRows(assets []string, weights []float64) []WeightRow {
	rows := make([]WeightRow, 0, len(weights)+1)
	for i, w := range weights {
		rows = append(rows, WeightRow{Stock: assets[i], Weight: w})
	}
	return rows
}

func calData(line frontier.CapitalAllocationLine, maxVolatility float64) CALData {
	segment := line.Segment(maxVolatility, frontier.DefaultCALPoints)
	points := make([]LinePoint, len(segment))
	for i, p := range segment {
		points[i] = LinePoint{Volatility: p.Volatility, Return: p.Return}
	}
	return CALData{Intercept: line.Intercept, Slope: line.Slope, Points: points}
}

func matrixTable(assets []string, values [][]float64) MatrixTable {
	out := make([][]*float64, len(values))
	for i, row := range values {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			out[i][j] = nullable(v)
		}
	}
	return MatrixTable{Assets: assets, Values: out}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
