// Package forecast runs the full stock forecasting pipeline for one item:
// cleaning, pattern detection, the model ensemble and result assembly.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/stockcast/ensemble"
	"github.com/sartorproj/stockcast/pattern"
	"github.com/sartorproj/stockcast/preprocess"
	"github.com/sartorproj/stockcast/timeseries"
)

var (
	// ErrInsufficientData is wrapped by InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidHorizon is returned for a horizon outside [1, MaxHorizon].
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)

// InsufficientDataError reports how many usable monthly points were found.
type InsufficientDataError struct {
	Count    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d months, found %d", e.Required, e.Count)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// Options configures a Forecaster.
type Options struct {
	DefaultHorizon int // used when the caller passes 0 (default: 3)
	MaxHorizon     int // largest accepted horizon (default: 24)
	MinRows        int // fewest usable months (default: 6)
	Ensemble       ensemble.Options
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		DefaultHorizon: 3,
		MaxHorizon:     24,
		MinRows:        6,
		Ensemble:       ensemble.DefaultOptions(),
	}
}

// Forecaster is safe for concurrent use; every call works on its own data.
type Forecaster struct {
	opts     Options
	ensemble *ensemble.Ensemble
}

// New creates a forecaster. With no fitters the ensemble uses
// ensemble.DefaultFitters.
func New(opts Options, fitters ...ensemble.Fitter) *Forecaster {
	def := DefaultOptions()
	if opts.DefaultHorizon < 1 {
		opts.DefaultHorizon = def.DefaultHorizon
	}
	if opts.MaxHorizon < opts.DefaultHorizon {
		opts.MaxHorizon = max(def.MaxHorizon, opts.DefaultHorizon)
	}
	if opts.MinRows < 1 {
		opts.MinRows = def.MinRows
	}
	return &Forecaster{
		opts:     opts,
		ensemble: ensemble.New(opts.Ensemble, fitters...),
	}
}

// Options returns the effective options.
func (f *Forecaster) Options() Options {
	return f.opts
}

// Forecast predicts horizon months past the last observation. A zero
// horizon means the default.
//
// The cleaned series is profiled, re-cleaned with smoothing when highly
// volatile, and handed to the ensemble. The unsmoothed cleaned series is
// echoed as history and scored against the chosen model's fitted values.
func (f *Forecaster) Forecast(ctx context.Context, itemCode string, obs []timeseries.Observation, horizon int) (*Result, error) {
	if horizon == 0 {
		horizon = f.opts.DefaultHorizon
	}
	if horizon < 1 || horizon > f.opts.MaxHorizon {
		return nil, fmt.Errorf("%w: %d months requested, allowed 1 to %d", ErrInvalidHorizon, horizon, f.opts.MaxHorizon)
	}
	if len(obs) < f.opts.MinRows {
		return nil, &InsufficientDataError{Count: len(obs), Required: f.opts.MinRows}
	}

	clean := preprocess.Clean(obs, false)
	if clean.Len() < f.opts.MinRows {
		return nil, &InsufficientDataError{Count: clean.Len(), Required: f.opts.MinRows}
	}

	profile := pattern.Detect(clean)
	model := clean
	if profile.Volatility == pattern.High {
		model = preprocess.Clean(obs, true)
	}

	sel, err := f.ensemble.Run(ctx, model.Values, horizon, profile)
	if err != nil {
		return nil, fmt.Errorf("run ensemble: %w", err)
	}

	return assemble(itemCode, len(obs), clean, model, profile, sel), nil
}

func assemble(itemCode string, rows int, clean, model *timeseries.Series, profile pattern.Profile, sel *ensemble.Selection) *Result {
	chosen := sel.Chosen
	res := &Result{
		ItemCode:   itemCode,
		RowsUsed:   rows,
		ModelOrder: chosen.Order,
		Family:     string(chosen.Family),
		State:      sel.State,
		Profile:    profile,
		History:    make([]HistoryPoint, clean.Len()),
	}

	for i, v := range clean.Values {
		res.History[i] = HistoryPoint{Date: clean.Timestamps[i], Value: v}
	}

	point, lower, upper := chosen.Forecast, chosen.Lower, chosen.Upper
	if sel.State == ensemble.Selected {
		point, lower, upper = clampFloor(point), clampFloor(lower), clampFloor(upper)
		if mape, err := MAPE(clean.Values, chosen.Fitted, accuracyWindow); err == nil {
			res.AccuracyMAPE = &mape
		}
	}

	dates := model.FutureMonths(len(point))
	res.Predictions = make([]Prediction, len(point))
	for i := range point {
		res.Predictions[i] = Prediction{
			Date:     dates[i],
			Forecast: point[i],
			Lower:    lower[i],
			Upper:    upper[i],
		}
	}

	for _, c := range sel.Candidates {
		res.Candidates = append(res.Candidates, CandidateSummary{
			Family:    string(c.Family),
			Order:     c.Order,
			AIC:       c.AIC,
			Plausible: ensemble.Plausible(c, model.Values),
		})
	}
	return res
}

func clampFloor(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(v, preprocess.Floor)
	}
	return out
}

// HistoryPoint is one month of the cleaned series.
type HistoryPoint struct {
	Date  time.Time
	Value float64
}

// Prediction is the forecast for one future month.
type Prediction struct {
	Date     time.Time
	Forecast float64
	Lower    float64
	Upper    float64
}

// CandidateSummary describes a family's best candidate.
type CandidateSummary struct {
	Family    string
	Order     string
	AIC       float64
	Plausible bool
}

// Result is the outcome of one forecast request.
type Result struct {
	ItemCode     string
	RowsUsed     int
	ModelOrder   string
	Family       string
	State        ensemble.State
	AccuracyMAPE *float64 // nil when accuracy could not be computed
	History      []HistoryPoint
	Predictions  []Prediction
	Profile      pattern.Profile
	Candidates   []CandidateSummary
}
