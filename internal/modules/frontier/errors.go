// Package frontier computes a sampled mean-variance efficient frontier and a
// bound-constrained maximum Sharpe ratio portfolio from a matrix of periodic
// log returns.
//
// Everything in this package is a pure transformation of its inputs: nothing
// is cached, nothing is shared between calls, and concurrent calls with
// independent inputs are safe.
package frontier

import "errors"

var (
	// ErrInsufficientData is returned when fewer than 2 assets or 2 observations are available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidBounds is returned when the weight bounds leave no feasible portfolio.
	ErrInvalidBounds = errors.New("invalid weight bounds")

	// ErrDegenerateVolatility marks a portfolio whose volatility is exactly zero,
	// which leaves its Sharpe ratio undefined.
	ErrDegenerateVolatility = errors.New("degenerate volatility")

	// ErrOptimizationDidNotConverge is carried as a warning on OptimalPortfolio
	// when the solver stopped before meeting its convergence criteria.
	ErrOptimizationDidNotConverge = errors.New("optimization did not converge")

	// ErrDimensionMismatch is returned when vectors and matrices disagree on the asset count.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
