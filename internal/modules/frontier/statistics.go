package frontier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MomentEstimate holds annualized mean returns and the annualized covariance
// matrix of a set of assets. It is immutable once built.
type MomentEstimate struct {
	assets      []string
	mean        *mat.VecDense
	covariance  *mat.SymDense
	correlation *mat.SymDense
}

// EstimateMoments computes annualized mean returns and the annualized sample
// covariance (N-1 denominator) from a log-return matrix.
func EstimateMoments(m *ReturnMatrix, annualizationFactor int) (*MomentEstimate, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no return matrix", ErrInsufficientData)
	}
	if annualizationFactor <= 0 {
		return nil, fmt.Errorf("annualization factor must be positive, got %d", annualizationFactor)
	}

	n := m.AssetCount()
	t := m.Observations()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 assets, got %d", ErrInsufficientData, n)
	}
	if t < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInsufficientData, t)
	}

	data := mat.NewDense(t, n, append([]float64(nil), m.values...))
	k := float64(annualizationFactor)

	mean := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, data)
		mean.SetVec(j, stat.Mean(col, nil)*k)
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	cov.ScaleSym(k, cov)

	corr := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(corr, data, nil)

	return &MomentEstimate{
		assets:      m.Assets(),
		mean:        mean,
		covariance:  cov,
		correlation: corr,
	}, nil
}

// NewMomentEstimate builds an estimate from already-annualized statistics.
// The covariance must be square, match the mean vector and be symmetric.
func NewMomentEstimate(assets []string, meanReturns []float64, covariance [][]float64) (*MomentEstimate, error) {
	n := len(meanReturns)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 assets, got %d", ErrInsufficientData, n)
	}
	if len(assets) != n {
		return nil, fmt.Errorf("%w: %d assets for %d mean returns", ErrDimensionMismatch, len(assets), n)
	}
	if len(covariance) != n {
		return nil, fmt.Errorf("%w: covariance has %d rows, expected %d", ErrDimensionMismatch, len(covariance), n)
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(covariance[i]) != n {
			return nil, fmt.Errorf("%w: covariance row %d has %d values, expected %d", ErrDimensionMismatch, i, len(covariance[i]), n)
		}
		for j := i; j < n; j++ {
			if math.Abs(covariance[i][j]-covariance[j][i]) > 1e-12 {
				return nil, fmt.Errorf("covariance is not symmetric at (%d,%d)", i, j)
			}
			cov.SetSym(i, j, covariance[i][j])
		}
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denom := math.Sqrt(cov.At(i, i) * cov.At(j, j))
			c := math.NaN()
			if denom > 0 {
				c = cov.At(i, j) / denom
			}
			corr.SetSym(i, j, c)
		}
	}

	return &MomentEstimate{
		assets:      append([]string(nil), assets...),
		mean:        mat.NewVecDense(n, append([]float64(nil), meanReturns...)),
		covariance:  cov,
		correlation: corr,
	}, nil
}

// Assets returns the asset identifiers in estimate order.
func (e *MomentEstimate) Assets() []string {
	return append([]string(nil), e.assets...)
}

// AssetCount returns the number of assets.
func (e *MomentEstimate) AssetCount() int {
	return e.mean.Len()
}

// MeanReturns returns a copy of the annualized mean return vector.
func (e *MomentEstimate) MeanReturns() []float64 {
	out := make([]float64, e.mean.Len())
	for i := range out {
		out[i] = e.mean.AtVec(i)
	}
	return out
}

// Covariance returns a copy of the annualized covariance matrix.
func (e *MomentEstimate) Covariance() [][]float64 {
	return symToSlices(e.covariance)
}

// Correlation returns a copy of the correlation matrix. Entries involving a
// zero-variance asset are NaN.
func (e *MomentEstimate) Correlation() [][]float64 {
	return symToSlices(e.correlation)
}

func symToSlices(s *mat.SymDense) [][]float64 {
	n := s.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = s.At(i, j)
		}
	}
	return out
}
