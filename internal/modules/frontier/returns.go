package frontier

import (
	"fmt"
	"math"
	"time"
)

// ReturnMatrix holds time-aligned periodic log returns, one column per asset
// and one row per observation. Rows are ordered by ascending date and contain
// no missing values.
type ReturnMatrix struct {
	assets []string
	dates  []time.Time
	values []float64 // row-major, len(dates) x len(assets)
}

// NewReturnMatrix validates and copies the given observations.
// dates may be nil when the caller has no date index; otherwise it must be
// strictly ascending and have one entry per row.
func NewReturnMatrix(assets []string, dates []time.Time, rows [][]float64) (*ReturnMatrix, error) {
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a == "" {
			return nil, fmt.Errorf("empty asset identifier")
		}
		if seen[a] {
			return nil, fmt.Errorf("duplicate asset identifier %q", a)
		}
		seen[a] = true
	}

	if dates != nil && len(dates) != len(rows) {
		return nil, fmt.Errorf("%w: %d dates for %d rows", ErrDimensionMismatch, len(dates), len(rows))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates must be strictly ascending: %s follows %s",
				dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
	}

	n := len(assets)
	values := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d asset %s: non-finite return %v", i, assets[j], v)
			}
		}
		values = append(values, row...)
	}

	m := &ReturnMatrix{
		assets: append([]string(nil), assets...),
		values: values,
	}
	if dates != nil {
		m.dates = append([]time.Time(nil), dates...)
	}
	return m, nil
}

// Assets returns the asset identifiers in column order.
func (m *ReturnMatrix) Assets() []string {
	return append([]string(nil), m.assets...)
}

// Dates returns the observation dates, or nil if none were supplied.
func (m *ReturnMatrix) Dates() []time.Time {
	if m.dates == nil {
		return nil
	}
	return append([]time.Time(nil), m.dates...)
}

// AssetCount returns the number of columns.
func (m *ReturnMatrix) AssetCount() int {
	return len(m.assets)
}

// Observations returns the number of rows.
func (m *ReturnMatrix) Observations() int {
	if len(m.assets) == 0 {
		return 0
	}
	return len(m.values) / len(m.assets)
}

// Column returns a copy of the return series of asset j.
// It panics if j is not in [0, AssetCount()).
func (m *ReturnMatrix) Column(j int) []float64 {
	n := len(m.assets)
	if j < 0 || j >= n {
		panic(fmt.Sprintf("frontier: column %d out of range [0, %d)", j, n))
	}
	col := make([]float64, m.Observations())
	for i := range col {
		col[i] = m.values[i*n+j]
	}
	return col
}

// Row returns a copy of observation i.
// It panics if i is not in [0, Observations()).
func (m *ReturnMatrix) Row(i int) []float64 {
	n := len(m.assets)
	if i < 0 || i >= m.Observations() {
		panic(fmt.Sprintf("frontier: row %d out of range [0, %d)", i, m.Observations()))
	}
	return append([]float64(nil), m.values[i*n:(i+1)*n]...)
}
