package ensemble

import (
	"context"

	"github.com/sartorproj/stockcast/arima"
	"github.com/sartorproj/stockcast/ets"
	"github.com/sartorproj/stockcast/pattern"
	"github.com/sartorproj/stockcast/sarima"
)

// Family names a model family.
type Family string

const (
	FamilySARIMA Family = "SARIMA"
	FamilyARIMA  Family = "ARIMA"
	FamilyETS    Family = "Exponential_Smoothing"
	FamilyNaive  Family = "naive"
)

// Order descriptors that are not tuples.
const (
	OrderETS   = "exp_smoothing"
	OrderNaive = "naive_with_trend"
)

const (
	confidenceLevel   = 0.95
	seasonalMinLength = 24
	seasonalPeriod    = 12
)

// Candidate is the output of one successful fit.
type Candidate struct {
	Family   Family
	Order    string
	Forecast []float64
	Lower    []float64
	Upper    []float64
	AIC      float64
	// Fitted holds in-sample one-step fitted values aligned with the input,
	// NaN where the model gives none.
	Fitted []float64
}

// Config is a single fit attempt within a family.
type Config interface {
	Order() string
	Fit(ctx context.Context, y []float64, horizon int) (*Candidate, error)
}

// Fitter enumerates the configurations of one family for a series. An empty
// result means the family does not apply.
type Fitter interface {
	Family() Family
	Configs(n int, profile pattern.Profile) []Config
}

// DefaultFitters returns the families in attempt order. The order breaks
// AIC ties.
func DefaultFitters() []Fitter {
	return []Fitter{SARIMAFitter{}, ARIMAFitter{}, ETSFitter{}}
}

// ARIMAFitter grid-searches (p, d, q). d is drawn from {1, 2} for trending
// series and {0, 1} otherwise; p and q from {1, 2, 3} for highly volatile
// series and {0, 1, 2} otherwise. (0, 0, 0) is skipped.
type ARIMAFitter struct{}

func (ARIMAFitter) Family() Family { return FamilyARIMA }

func (ARIMAFitter) Configs(_ int, profile pattern.Profile) []Config {
	dRange := []int{0, 1}
	if profile.HasTrend {
		dRange = []int{1, 2}
	}
	pqRange := []int{0, 1, 2}
	if profile.Volatility == pattern.High {
		pqRange = []int{1, 2, 3}
	}

	var configs []Config
	for _, p := range pqRange {
		for _, d := range dRange {
			for _, q := range pqRange {
				if p == 0 && d == 0 && q == 0 {
					continue
				}
				configs = append(configs, arimaConfig{arima.Order{P: p, D: d, Q: q}})
			}
		}
	}
	return configs
}

type arimaConfig struct {
	order arima.Order
}

func (c arimaConfig) Order() string { return c.order.String() }

func (c arimaConfig) Fit(ctx context.Context, y []float64, horizon int) (*Candidate, error) {
	model := arima.New(c.order.P, c.order.D, c.order.Q)
	if err := model.Fit(ctx, y); err != nil {
		return nil, err
	}
	fc, err := model.Forecast(horizon, confidenceLevel)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Family:   FamilyARIMA,
		Order:    c.Order(),
		Forecast: fc.Point,
		Lower:    fc.Lower,
		Upper:    fc.Upper,
		AIC:      model.AIC,
		Fitted:   model.FittedValues(),
	}, nil
}

// SARIMAOrders are the seasonal configurations tried, in order.
var SARIMAOrders = []sarima.Order{
	{P: 1, D: 1, Q: 1, SP: 1, SD: 1, SQ: 1, M: seasonalPeriod},
	{P: 0, D: 1, Q: 1, SP: 0, SD: 1, SQ: 1, M: seasonalPeriod},
	{P: 1, D: 1, Q: 0, SP: 1, SD: 1, SQ: 0, M: seasonalPeriod},
	{P: 2, D: 1, Q: 2, SP: 1, SD: 1, SQ: 1, M: seasonalPeriod},
}

// SARIMAFitter tries SARIMAOrders on seasonal series of at least 24 points.
type SARIMAFitter struct{}

func (SARIMAFitter) Family() Family { return FamilySARIMA }

func (SARIMAFitter) Configs(n int, profile pattern.Profile) []Config {
	if !profile.HasSeasonality || n < seasonalMinLength {
		return nil
	}
	configs := make([]Config, len(SARIMAOrders))
	for i, o := range SARIMAOrders {
		configs[i] = sarimaConfig{o}
	}
	return configs
}

type sarimaConfig struct {
	order sarima.Order
}

func (c sarimaConfig) Order() string { return c.order.String() }

func (c sarimaConfig) Fit(ctx context.Context, y []float64, horizon int) (*Candidate, error) {
	model := sarima.NewFromOrder(c.order)
	if err := model.Fit(ctx, y); err != nil {
		return nil, err
	}
	point, lower, upper, err := model.PredictWithInterval(horizon, confidenceLevel)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Family:   FamilySARIMA,
		Order:    c.Order(),
		Forecast: point,
		Lower:    lower,
		Upper:    upper,
		AIC:      model.AIC,
		Fitted:   model.FittedValues(),
	}, nil
}

// ETSFitter fits one Holt-Winters model shaped by the series length.
type ETSFitter struct{}

func (ETSFitter) Family() Family { return FamilyETS }

func (ETSFitter) Configs(n int, _ pattern.Profile) []Config {
	return []Config{etsConfig{ets.ConfigForLength(n)}}
}

type etsConfig struct {
	cfg ets.Config
}

func (etsConfig) Order() string { return OrderETS }

func (c etsConfig) Fit(ctx context.Context, y []float64, horizon int) (*Candidate, error) {
	model := ets.New(c.cfg)
	if err := model.Fit(ctx, y); err != nil {
		return nil, err
	}
	fc, err := model.Forecast(horizon)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Family:   FamilyETS,
		Order:    OrderETS,
		Forecast: fc.Point,
		Lower:    fc.Lower,
		Upper:    fc.Upper,
		AIC:      model.AIC,
		Fitted:   model.FittedValues(),
	}, nil
}
