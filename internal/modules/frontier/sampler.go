package frontier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSampleCount is the number of random portfolios drawn per request.
const DefaultSampleCount = 10000

// WeightScheme selects how random weight vectors are drawn.
type WeightScheme string

const (
	// SchemeNormalizedUniform draws independent U(0,1) values and divides by
	// their sum. This does not sample the simplex uniformly: it concentrates
	// mass near equal weights and under-samples concentrated portfolios.
	SchemeNormalizedUniform WeightScheme = "uniform"

	// SchemeDirichlet draws from Dirichlet(1,...,1), which is uniform over
	// the simplex.
	SchemeDirichlet WeightScheme = "dirichlet"
)

// Valid reports whether s names a known scheme. The empty scheme is valid and
// means SchemeNormalizedUniform.
func (s WeightScheme) Valid() bool {
	switch s {
	case "", SchemeNormalizedUniform, SchemeDirichlet:
		return true
	}
	return false
}

// SampleOptions controls a sampling run.
type SampleOptions struct {
	Count  int          // 0 means DefaultSampleCount
	Seed   *uint64      // nil seeds from system entropy
	Scheme WeightScheme // empty means SchemeNormalizedUniform
}

// FrontierSample is the cloud of randomly weighted portfolios.
type FrontierSample struct {
	Points     []PortfolioPoint
	Seed       uint64
	Scheme     WeightScheme
	Degenerate int // points with zero volatility, kept with NaN Sharpe
}

// MaxVolatility returns the largest volatility in the sample.
func (s *FrontierSample) MaxVolatility() float64 {
	maxVol := 0.0
	for _, p := range s.Points {
		if p.Volatility > maxVol {
			maxVol = p.Volatility
		}
	}
	return maxVol
}

// Sampler draws random portfolios to approximate the efficient frontier.
// Per-asset weight bounds are deliberately not applied: every draw is kept.
type Sampler struct {
	log zerolog.Logger
}

// NewSampler creates a new frontier sampler.
func NewSampler(log zerolog.Logger) *Sampler {
	return &Sampler{
		log: log.With().Str("component", "frontier_sampler").Logger(),
	}
}

// Sample draws opts.Count weight vectors summing to 1 and evaluates each one.
// With a fixed seed the result is bit-identical across calls.
func (s *Sampler) Sample(m *MomentEstimate, opts SampleOptions) (*FrontierSample, error) {
	if m == nil || m.AssetCount() < 2 {
		return nil, fmt.Errorf("%w: sampler needs at least 2 assets", ErrInsufficientData)
	}

	count := opts.Count
	if count == 0 {
		count = DefaultSampleCount
	}
	if count < 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", count)
	}

	scheme := opts.Scheme
	if scheme == "" {
		scheme = SchemeNormalizedUniform
	}
	if !scheme.Valid() {
		return nil, fmt.Errorf("unknown weight scheme %q", scheme)
	}

	var seed uint64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = rand.Uint64()
	}
	n := m.AssetCount()
	weights := newWeightSampler(newSource(seed), n, scheme)

	sample := &FrontierSample{
		Points: make([]PortfolioPoint, 0, count),
		Seed:   seed,
		Scheme: scheme,
	}

	for i := 0; i < count; i++ {
		w := weights.draw()
		point, err := Evaluate(w, m)
		if err != nil {
			if !errors.Is(err, ErrDegenerateVolatility) {
				return nil, fmt.Errorf("failed to evaluate sample %d: %w", i, err)
			}
			sample.Degenerate++
		}
		sample.Points = append(sample.Points, point)
	}

	if sample.Degenerate > 0 {
		s.log.Warn().
			Int("degenerate_points", sample.Degenerate).
			Int("sample_count", count).
			Msg("Sampled portfolios with zero volatility have undefined Sharpe ratio")
	}

	s.log.Debug().
		Int("sample_count", count).
		Int("num_assets", n).
		Str("scheme", string(scheme)).
		Uint64("seed", seed).
		Msg("Sampled frontier portfolios")

	return sample, nil
}

// newSource returns a PCG source owned by a single sampling run.
func newSource(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// weightSampler draws non-negative weight vectors summing to 1.
type weightSampler struct {
	n    int
	dist interface {
		Rand(dst []float64) []float64
	}
}

func newWeightSampler(src rand.Source, n int, scheme WeightScheme) *weightSampler {
	if scheme == SchemeDirichlet {
		alpha := make([]float64, n)
		floats.AddConst(1, alpha)
		return &weightSampler{n: n, dist: distmv.NewDirichlet(alpha, src)}
	}
	return &weightSampler{n: n, dist: normalizedUniform{u: distuv.Uniform{Min: 0, Max: 1, Src: src}}}
}

// draw redraws until the weights are finite, which only fails when every
// variate underflows to zero.
func (ws *weightSampler) draw() []float64 {
	for {
		w := ws.dist.Rand(make([]float64, ws.n))
		if validWeights(w) {
			return w
		}
	}
}

func validWeights(w []float64) bool {
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// normalizedUniform fills dst with U(0,1) variates divided by their sum.
type normalizedUniform struct {
	u distuv.Uniform
}

func (nu normalizedUniform) Rand(dst []float64) []float64 {
	for i := range dst {
		dst[i] = nu.u.Rand()
	}
	if sum := floats.Sum(dst); sum > 0 {
		floats.Scale(1/sum, dst)
	} else {
		dst[0] = math.NaN()
	}
	return dst
}
