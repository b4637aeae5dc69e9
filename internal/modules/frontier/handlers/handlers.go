// Package handlers provides HTTP handlers for frontier computations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/modules/batch"
	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/report"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxBodyBytes   = 16 << 20
	maxSampleCount = 1_000_000
	maxBatchJobs   = 100
	dateLayout     = "2006-01-02"
)

var errBadRequest = errors.New("bad request")

// Computer runs one frontier computation.
type Computer interface {
	Compute(matrix *frontier.ReturnMatrix, params frontier.Params) (*frontier.Result, error)
}

// BatchRunner runs many computations under one context.
type BatchRunner interface {
	Run(ctx context.Context, jobs []batch.Job) ([]batch.JobResult, error)
}

// Handler handles frontier HTTP requests
type Handler struct {
	service  Computer
	runner   BatchRunner
	builder  *marketdata.Builder
	defaults frontier.Params
	log      zerolog.Logger
}

// NewHandler creates a new frontier handler
func NewHandler(
	service Computer,
	runner BatchRunner,
	builder *marketdata.Builder,
	defaults frontier.Params,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		runner:   runner,
		builder:  builder,
		defaults: defaults,
		log:      log.With().Str("handler", "frontier").Logger(),
	}
}

// PricePointRequest is one closing price.
type PricePointRequest struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// PriceSeriesRequest is the price history of one asset.
type PriceSeriesRequest struct {
	Asset  string              `json:"asset"`
	Points []PricePointRequest `json:"points"`
}

// ComputeRequest represents a request to compute an efficient frontier.
// Either Returns (rows of log returns in Assets order) or Prices must be set.
// Unset parameters fall back to the configured defaults.
type ComputeRequest struct {
	Name         string               `json:"name,omitempty"`
	Assets       []string             `json:"assets,omitempty"`
	Dates        []string             `json:"dates,omitempty"`
	Returns      [][]float64          `json:"returns,omitempty"`
	Prices       []PriceSeriesRequest `json:"prices,omitempty"`
	FillMissing  bool                 `json:"fill_missing,omitempty"`
	Interval     *string              `json:"interval,omitempty"`
	SampleCount  *int                 `json:"sample_count,omitempty"`
	MinWeight    *float64             `json:"min_weight,omitempty"`
	MaxWeight    *float64             `json:"max_weight,omitempty"`
	RiskFreeRate *float64             `json:"risk_free_rate,omitempty"`
	Seed         *uint64              `json:"seed,omitempty"`
	Scheme       *string              `json:"scheme,omitempty"`
}

// BatchRequest represents a request to compute several frontiers.
type BatchRequest struct {
	Jobs []ComputeRequest `json:"jobs"`
}

// BatchJobResponse is the outcome of one batch job.
type BatchJobResponse struct {
	JobID      string         `json:"job_id" msgpack:"job_id"`
	Name       string         `json:"name,omitempty" msgpack:"name,omitempty"`
	Error      string         `json:"error,omitempty" msgpack:"error,omitempty"`
	DurationMs int64          `json:"duration_ms" msgpack:"duration_ms"`
	Report     *report.Report `json:"report,omitempty" msgpack:"report,omitempty"`
}

// DefaultsResponse describes the parameters applied to unset request fields.
type DefaultsResponse struct {
	Interval            string  `json:"interval" msgpack:"interval"`
	AnnualizationFactor int     `json:"annualization_factor" msgpack:"annualization_factor"`
	SampleCount         int     `json:"sample_count" msgpack:"sample_count"`
	MinWeight           float64 `json:"min_weight" msgpack:"min_weight"`
	MaxWeight           float64 `json:"max_weight" msgpack:"max_weight"`
	RiskFreeRate        float64 `json:"risk_free_rate" msgpack:"risk_free_rate"`
	Scheme              string  `json:"scheme" msgpack:"scheme"`
}

type envelope struct {
	Data     interface{}            `json:"data" msgpack:"data"`
	Metadata map[string]interface{} `json:"metadata" msgpack:"metadata"`
}

// HandleGetDefaults handles GET /api/frontier/defaults
func (h *Handler) HandleGetDefaults(w http.ResponseWriter, r *http.Request) {
	d := h.defaults
	factor := d.AnnualizationFactor
	if factor == 0 {
		factor = d.Interval.AnnualizationFactor()
	}
	h.writeResponse(w, r, http.StatusOK, DefaultsResponse{
		Interval:            string(d.Interval),
		AnnualizationFactor: factor,
		SampleCount:         d.SampleCount,
		MinWeight:           d.Bounds.Min,
		MaxWeight:           d.Bounds.Max,
		RiskFreeRate:        d.RiskFreeRateAnnual,
		Scheme:              string(d.Scheme),
	})
}

// HandleCompute handles POST /api/frontier/compute
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	matrix, params, err := h.prepare(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Compute(matrix, params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rep, err := report.Build(result)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeResponse(w, r, http.StatusOK, rep)
}

// HandleBatch handles POST /api/frontier/batch
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Jobs) == 0 {
		http.Error(w, "jobs are required", http.StatusBadRequest)
		return
	}
	if len(req.Jobs) > maxBatchJobs {
		http.Error(w, fmt.Sprintf("at most %d jobs per batch", maxBatchJobs), http.StatusBadRequest)
		return
	}

	jobs := make([]batch.Job, 0, len(req.Jobs))
	for i, jr := range req.Jobs {
		matrix, params, err := h.prepare(jr)
		if err != nil {
			h.writeError(w, fmt.Errorf("job %d: %w", i, err))
			return
		}
		jobs = append(jobs, batch.Job{Name: jr.Name, Matrix: matrix, Params: params})
	}

	results, err := h.runner.Run(r.Context(), jobs)
	if err != nil {
		h.log.Warn().Err(err).Msg("Batch interrupted")
		http.Error(w, "batch cancelled", http.StatusServiceUnavailable)
		return
	}

	out := make([]BatchJobResponse, len(results))
	failed := 0
	for i, res := range results {
		out[i] = BatchJobResponse{
			JobID:      res.JobID,
			Name:       res.Name,
			DurationMs: res.Duration.Milliseconds(),
		}
		if res.Err == nil {
			rep, buildErr := report.Build(res.Result)
			if buildErr == nil {
				out[i].Report = rep
				continue
			}
			res.Err = buildErr
		}
		out[i].Error = res.Err.Error()
		failed++
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"results":   out,
		"completed": len(out) - failed,
		"failed":    failed,
	})
}

// prepare converts a request into the matrix and parameters for one computation.
func (h *Handler) prepare(req ComputeRequest) (*frontier.ReturnMatrix, frontier.Params, error) {
	params, err := h.params(req)
	if err != nil {
		return nil, frontier.Params{}, err
	}

	var matrix *frontier.ReturnMatrix
	switch {
	case len(req.Prices) > 0 && len(req.Returns) > 0:
		return nil, frontier.Params{}, fmt.Errorf("%w: provide either returns or prices, not both", errBadRequest)
	case len(req.Prices) > 0:
		series, err := toPriceSeries(req.Prices)
		if err != nil {
			return nil, frontier.Params{}, err
		}
		matrix, err = h.builder.BuildReturnMatrix(series, marketdata.Options{FillMissing: req.FillMissing})
		if err != nil {
			return nil, frontier.Params{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	case len(req.Returns) > 0:
		dates, err := parseDates(req.Dates)
		if err != nil {
			return nil, frontier.Params{}, err
		}
		matrix, err = frontier.NewReturnMatrix(req.Assets, dates, req.Returns)
		if err != nil {
			if errors.Is(err, frontier.ErrDimensionMismatch) {
				return nil, frontier.Params{}, err
			}
			return nil, frontier.Params{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	default:
		return nil, frontier.Params{}, fmt.Errorf("%w: returns or prices are required", errBadRequest)
	}

	return matrix, params, nil
}

func (h *Handler) params(req ComputeRequest) (frontier.Params, error) {
	p := h.defaults
	if req.Interval != nil {
		p.Interval = frontier.ParseInterval(*req.Interval)
		p.AnnualizationFactor = 0
	}
	if req.SampleCount != nil {
		if *req.SampleCount <= 0 || *req.SampleCount > maxSampleCount {
			return p, fmt.Errorf("%w: sample_count must be between 1 and %d", errBadRequest, maxSampleCount)
		}
		p.SampleCount = *req.SampleCount
	}
	if req.MinWeight != nil {
		p.Bounds.Min = *req.MinWeight
	}
	if req.MaxWeight != nil {
		p.Bounds.Max = *req.MaxWeight
	}
	if req.RiskFreeRate != nil {
		p.RiskFreeRateAnnual = *req.RiskFreeRate
	}
	if req.Seed != nil {
		seed := *req.Seed
		p.Seed = &seed
	}
	if req.Scheme != nil {
		p.Scheme = frontier.WeightScheme(strings.ToLower(*req.Scheme))
		if !p.Scheme.Valid() {
			return p, fmt.Errorf("%w: unknown scheme %q", errBadRequest, *req.Scheme)
		}
	}
	return p, nil
}

func toPriceSeries(in []PriceSeriesRequest) ([]marketdata.PriceSeries, error) {
	out := make([]marketdata.PriceSeries, len(in))
	for i, s := range in {
		points := make([]marketdata.PricePoint, len(s.Points))
		for j, p := range s.Points {
			d, err := time.Parse(dateLayout, p.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: invalid date %q", errBadRequest, s.Asset, p.Date)
			}
			points[j] = marketdata.PricePoint{Date: d, Close: p.Close}
		}
		out[i] = marketdata.PriceSeries{Asset: s.Asset, Points: points}
	}
	return out, nil
}

func parseDates(in []string) ([]time.Time, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]time.Time, len(in))
	for i, s := range in {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
		}
		out[i] = d
	}
	return out, nil
}

// statusFor maps computation errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, frontier.ErrInsufficientData),
		errors.Is(err, frontier.ErrInvalidBounds),
		errors.Is(err, frontier.ErrDimensionMismatch),
		errors.Is(err, frontier.ErrDegenerateVolatility):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Frontier computation failed")
		http.Error(w, "Internal server error", status)
		return
	}
	h.log.Debug().Err(err).Int("status", status).Msg("Rejected frontier request")
	http.Error(w, err.Error(), status)
}

// decodeBody reads JSON, or msgpack when the request says so.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if report.NegotiateFormat(r.Header.Get("Content-Type")) == report.FormatMsgpack {
		dec := msgpack.NewDecoder(body)
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}
	return json.NewDecoder(body).Decode(v)
}

// writeResponse writes data wrapped in the standard envelope, as JSON or
// msgpack depending on the Accept header.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	format := report.NegotiateFormat(r.Header.Get("Accept"))

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)

	resp := envelope{
		Data: data,
		Metadata: map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := report.Encode(w, format, resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
