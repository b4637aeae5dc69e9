package frontier

import (
	"math"
	"strings"
)

// Interval is the sampling interval of the return series.
type Interval string

const (
	IntervalDaily   Interval = "1d"
	IntervalWeekly  Interval = "1wk"
	IntervalMonthly Interval = "1mo"
)

// Periods per year for each known interval.
const (
	TradingDaysPerYear   = 252
	TradingWeeksPerYear  = 52
	TradingMonthsPerYear = 12

	DefaultAnnualizationFactor = TradingDaysPerYear
)

// ParseInterval normalizes user input such as "1D" or " 1wk ".
// Unrecognized values are kept as-is and treated as unknown.
func ParseInterval(s string) Interval {
	return Interval(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether the interval has a defined periods-per-year value.
func (i Interval) Known() bool {
	_, ok := i.periodsPerYear()
	return ok
}

func (i Interval) periodsPerYear() (int, bool) {
	switch i {
	case IntervalDaily:
		return TradingDaysPerYear, true
	case IntervalWeekly:
		return TradingWeeksPerYear, true
	case IntervalMonthly:
		return TradingMonthsPerYear, true
	default:
		return 0, false
	}
}

// AnnualizationFactor returns the periods per year used to scale mean and
// covariance. Unknown intervals fall back to daily.
func (i Interval) AnnualizationFactor() int {
	if k, ok := i.periodsPerYear(); ok {
		return k
	}
	return DefaultAnnualizationFactor
}

// PeriodRiskFreeRate de-annualizes an annual risk-free rate for this interval.
// Unknown intervals pass the annual rate through unscaled.
func (i Interval) PeriodRiskFreeRate(annual float64) float64 {
	k, ok := i.periodsPerYear()
	if !ok {
		return annual
	}
	return PeriodRate(annual, k)
}

// PeriodRate converts an annual rate to a per-period rate by compounding:
// (1+r)^(1/k) - 1.
func PeriodRate(annual float64, periodsPerYear int) float64 {
	return math.Pow(1+annual, 1/float64(periodsPerYear)) - 1
}

// AnnualRate is the inverse of PeriodRate: (1+p)^k - 1.
func AnnualRate(period float64, periodsPerYear int) float64 {
	return math.Pow(1+period, float64(periodsPerYear)) - 1
}
