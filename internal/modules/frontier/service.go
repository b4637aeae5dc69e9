package frontier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Params are the scalar inputs of one computation. Every field is passed
// explicitly; nothing is read from process state.
type Params struct {
	Interval            Interval
	AnnualizationFactor int // 0 derives the factor from Interval
	SampleCount         int // 0 means DefaultSampleCount
	Bounds              Bounds
	RiskFreeRateAnnual  float64
	Seed                *uint64
	Scheme              WeightScheme
}

// DefaultParams returns daily data, 10000 samples, long-only bounds and a 2%
// annual risk-free rate.
func DefaultParams() Params {
	return Params{
		Interval:           IntervalDaily,
		SampleCount:        DefaultSampleCount,
		Bounds:             DefaultBounds,
		RiskFreeRateAnnual: 0.02,
		Scheme:             SchemeNormalizedUniform,
	}
}

// PeriodRiskFreeRate de-annualizes the risk-free rate with the same factor
// that scales the moments. The annual rate passes through unscaled only when
// neither the factor nor the interval is known.
func (p Params) PeriodRiskFreeRate() float64 {
	if p.AnnualizationFactor > 0 {
		return PeriodRate(p.RiskFreeRateAnnual, p.AnnualizationFactor)
	}
	return p.Interval.PeriodRiskFreeRate(p.RiskFreeRateAnnual)
}

func (p Params) resolved() Params {
	if p.AnnualizationFactor == 0 {
		p.AnnualizationFactor = p.Interval.AnnualizationFactor()
	}
	if p.SampleCount == 0 {
		p.SampleCount = DefaultSampleCount
	}
	if p.Scheme == "" {
		p.Scheme = SchemeNormalizedUniform
	}
	return p
}

// Result is everything one computation produces.
type Result struct {
	ID                 uuid.UUID
	ComputedAt         time.Time
	Params             Params
	Moments            *MomentEstimate
	Frontier           *FrontierSample
	Optimal            *OptimalPortfolio
	Tangency           PortfolioPoint
	CAL                CapitalAllocationLine
	PeriodRiskFreeRate float64
	// Warnings holds non-fatal conditions, such as optimizer non-convergence.
	Warnings []error
}

// Service runs the full frontier computation.
type Service struct {
	sampler   *Sampler
	optimizer *Optimizer
	log       zerolog.Logger
}

// NewService creates a new frontier service.
func NewService(sampler *Sampler, optimizer *Optimizer, log zerolog.Logger) *Service {
	return &Service{
		sampler:   sampler,
		optimizer: optimizer,
		log:       log.With().Str("component", "frontier_service").Logger(),
	}
}

// Compute estimates moments, samples the frontier, resolves the tangency
// portfolio and capital allocation line, and runs the constrained optimizer.
// Precondition failures abort before sampling starts.
func (s *Service) Compute(matrix *ReturnMatrix, params Params) (*Result, error) {
	periodRate := params.PeriodRiskFreeRate()
	params = params.resolved()

	if matrix == nil || matrix.AssetCount() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 assets", ErrInsufficientData)
	}
	if matrix.Observations() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInsufficientData, matrix.Observations())
	}
	if err := params.Bounds.Validate(matrix.AssetCount()); err != nil {
		return nil, err
	}
	if params.SampleCount < 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", params.SampleCount)
	}
	if !params.Scheme.Valid() {
		return nil, fmt.Errorf("unknown weight scheme %q", params.Scheme)
	}

	start := time.Now()

	moments, err := EstimateMoments(matrix, params.AnnualizationFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate moments: %w", err)
	}

	sample, err := s.sampler.Sample(moments, SampleOptions{
		Count:  params.SampleCount,
		Seed:   params.Seed,
		Scheme: params.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sample frontier: %w", err)
	}

	tangency, cal, err := ResolveTangency(sample, periodRate)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tangency portfolio: %w", err)
	}

	optimal, err := s.optimizer.Optimize(moments, params.Bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to optimize portfolio: %w", err)
	}

	// Record the seed actually used so the run can be reproduced.
	seed := sample.Seed
	params.Seed = &seed

	result := &Result{
		ID:                 uuid.New(),
		ComputedAt:         start.UTC(),
		Params:             params,
		Moments:            moments,
		Frontier:           sample,
		Optimal:            optimal,
		Tangency:           tangency,
		CAL:                cal,
		PeriodRiskFreeRate: periodRate,
	}
	if optimal.Warning != nil {
		result.Warnings = append(result.Warnings, optimal.Warning)
	}

	s.log.Info().
		Str("result_id", result.ID.String()).
		Int("num_assets", moments.AssetCount()).
		Int("observations", matrix.Observations()).
		Int("sample_count", len(sample.Points)).
		Bool("converged", optimal.Converged).
		Float64("optimal_return", optimal.ExpectedReturn).
		Float64("tangency_sharpe", tangency.SharpeRatio).
		Dur("duration", time.Since(start)).
		Msg("Computed efficient frontier")

	return result, nil
}
