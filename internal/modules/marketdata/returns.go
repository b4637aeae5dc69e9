// Package marketdata turns per-asset price histories into the aligned
// log-return matrix consumed by the frontier computation. It never fetches
// prices itself.
package marketdata

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// PricePoint is a closing price on a calendar date.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is the price history of one asset.
type PriceSeries struct {
	Asset  string       `json:"asset"`
	Points []PricePoint `json:"points"`
}

// TimeSeriesData holds prices on a shared, ascending date grid. Missing
// prices are NaN.
type TimeSeriesData struct {
	Dates  []string
	Assets []string
	Data   map[string][]float64
}

// Options controls how gaps in the price grid are handled.
type Options struct {
	// FillMissing forward-fills then back-fills gaps before computing returns.
	// When false, returns are taken over each asset's own dates and only the
	// rows of missing dates are dropped.
	FillMissing bool
}

// Builder converts price series into log returns.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new return matrix builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("component", "marketdata").Logger(),
	}
}

// BuildReturnMatrix aligns the series on the union of their dates, computes
// each asset's log returns over its own prices and keeps only the dates on
// which every asset has a return.
func (b *Builder) BuildReturnMatrix(series []PriceSeries, opts Options) (*frontier.ReturnMatrix, error) {
	data, err := b.Align(series)
	if err != nil {
		return nil, err
	}
	if opts.FillMissing {
		data = b.FillMissing(data)
	}

	returns := LogReturns(data)
	dates, rows := dropMissingRows(data.Dates[min(1, len(data.Dates)):], data.Assets, returns)

	dropped := len(data.Dates) - 1 - len(rows)
	if dropped > 0 {
		b.log.Debug().
			Int("dropped_rows", dropped).
			Int("kept_rows", len(rows)).
			Msg("Dropped return rows with missing values")
	}

	parsed := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d, err)
		}
		parsed[i] = t
	}

	matrix, err := frontier.NewReturnMatrix(data.Assets, parsed, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build return matrix: %w", err)
	}
	return matrix, nil
}

// Align places every series on the sorted union of all dates. Dates are
// compared by UTC calendar day.
func (b *Builder) Align(series []PriceSeries) (TimeSeriesData, error) {
	if len(series) == 0 {
		return TimeSeriesData{}, fmt.Errorf("no price series provided")
	}

	pricesByAsset := make(map[string]map[string]float64, len(series))
	dateSet := make(map[string]bool)
	assets := make([]string, 0, len(series))

	for _, s := range series {
		if s.Asset == "" {
			return TimeSeriesData{}, fmt.Errorf("price series without asset identifier")
		}
		if _, dup := pricesByAsset[s.Asset]; dup {
			return TimeSeriesData{}, fmt.Errorf("duplicate price series for %s", s.Asset)
		}
		assets = append(assets, s.Asset)

		prices := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			if math.IsNaN(p.Close) {
				continue
			}
			if p.Close <= 0 || math.IsInf(p.Close, 0) {
				return TimeSeriesData{}, fmt.Errorf("%s: invalid price %v on %s", s.Asset, p.Close, p.Date.Format(dateLayout))
			}
			key := p.Date.UTC().Format(dateLayout)
			if _, dup := prices[key]; dup {
				return TimeSeriesData{}, fmt.Errorf("%s: duplicate price on %s", s.Asset, key)
			}
			prices[key] = p.Close
			dateSet[key] = true
		}
		pricesByAsset[s.Asset] = prices
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	data := make(map[string][]float64, len(assets))
	for _, asset := range assets {
		prices := make([]float64, len(dates))
		for i, d := range dates {
			if p, ok := pricesByAsset[asset][d]; ok {
				prices[i] = p
			} else {
				prices[i] = math.NaN()
			}
		}
		data[asset] = prices
	}

	b.log.Debug().
		Int("num_dates", len(dates)).
		Int("num_assets", len(assets)).
		Msg("Aligned price series")

	return TimeSeriesData{Dates: dates, Assets: assets, Data: data}, nil
}

// FillMissing fills gaps using forward-fill, then back-fill for leading gaps.
func (b *Builder) FillMissing(data TimeSeriesData) TimeSeriesData {
	filledData := TimeSeriesData{
		Dates:  data.Dates,
		Assets: data.Assets,
		Data:   make(map[string][]float64, len(data.Data)),
	}

	missingCount := 0
	filledCount := 0

	for asset, prices := range data.Data {
		filled := append([]float64(nil), prices...)

		hasLast := false
		var last float64
		for i := range filled {
			if math.IsNaN(filled[i]) {
				missingCount++
				if hasLast {
					filled[i] = last
					filledCount++
				}
				continue
			}
			last, hasLast = filled[i], true
		}

		hasNext := false
		var next float64
		for i := len(filled) - 1; i >= 0; i-- {
			if math.IsNaN(filled[i]) {
				if hasNext {
					filled[i] = next
					filledCount++
				}
				continue
			}
			next, hasNext = filled[i], true
		}

		filledData.Data[asset] = filled
	}

	if missingCount > 0 {
		b.log.Warn().
			Int("missing_data_points", missingCount).
			Int("filled_data_points", filledCount).
			Int("still_missing", missingCount-filledCount).
			Msg("Filled missing price data")
	}

	return filledData
}

// LogReturns computes ln(p_t / p_prev) per asset, where p_prev is the asset's
// own previous available price. Each asset's returns follow its own dates, so
// a gap only removes the return on the missing date. A return is NaN when the
// price on that date is missing or no earlier price exists. Each result has
// one fewer entry than the grid.
func LogReturns(data TimeSeriesData) map[string][]float64 {
	returns := make(map[string][]float64, len(data.Data))
	for asset, prices := range data.Data {
		if len(prices) < 2 {
			returns[asset] = []float64{}
			continue
		}
		r := make([]float64, len(prices)-1)
		prev := prices[0]
		for i := 1; i < len(prices); i++ {
			p := prices[i]
			switch {
			case math.IsNaN(p):
				r[i-1] = math.NaN()
				continue
			case math.IsNaN(prev):
				r[i-1] = math.NaN()
			default:
				r[i-1] = math.Log(p / prev)
			}
			prev = p
		}
		returns[asset] = r
	}
	return returns
}

// dropMissingRows transposes per-asset returns into rows, keeping only rows
// where every asset has a finite value.
func dropMissingRows(dates, assets []string, returns map[string][]float64) ([]string, [][]float64) {
	keptDates := make([]string, 0, len(dates))
	rows := make([][]float64, 0, len(dates))

	for i, d := range dates {
		row := make([]float64, len(assets))
		complete := true
		for j, asset := range assets {
			v := returns[asset][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
			row[j] = v
		}
		if complete {
			keptDates = append(keptDates, d)
			rows = append(rows, row)
		}
	}
	return keptDates, rows
}
