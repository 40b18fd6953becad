package sarima

import (
	"context"
	"fmt"

	"github.com/sartorproj/stockcast/arima"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (e.g., 12 for monthly data with yearly seasonality)
}

// String formats the order as nested tuples, e.g. "((1, 1, 1), (1, 1, 1, 12))".
func (o Order) String() string {
	return fmt.Sprintf("(%s, %s)", o.nonSeasonal(), o.seasonal())
}

func (o Order) nonSeasonal() arima.Order {
	return arima.Order{P: o.P, D: o.D, Q: o.Q}
}

func (o Order) seasonal() arima.SeasonalOrder {
	return arima.SeasonalOrder{P: o.SP, D: o.SD, Q: o.SQ, M: o.M}
}

// Model represents a SARIMA model. Estimation is delegated to the
// conditional-sum-of-squares engine in package arima.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Variance  float64
	AIC       float64
	LogLik    float64

	engine *arima.Model
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return NewFromOrder(Order{
		P: p, D: d, Q: q,
		SP: sp, SD: sd, SQ: sq, M: m,
	})
}

// NewFromOrder creates a model from an Order value.
func NewFromOrder(order Order) *Model {
	return &Model{
		Order:  order,
		engine: arima.NewSeasonal(order.nonSeasonal(), order.seasonal()),
	}
}

// MinObservations returns the shortest series Fit accepts.
func (m *Model) MinObservations() int {
	return m.engine.MinObservations()
}

// Fit fits the SARIMA model to the given values.
func (m *Model) Fit(ctx context.Context, values []float64) error {
	if m.Order.M < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", m.Order.M)
	}
	if err := m.engine.Fit(ctx, values); err != nil {
		return fmt.Errorf("sarima %s: %w", m.Order, err)
	}

	e := m.engine
	m.ARCoeffs = e.ARCoeffs
	m.MACoeffs = e.MACoeffs
	m.SARCoeffs = e.SARCoeffs
	m.SMACoeffs = e.SMACoeffs
	m.Variance = e.Variance
	m.AIC = e.AIC
	m.LogLik = e.LogLik
	return nil
}

// PredictWithInterval generates forecasts with a prediction interval at the
// given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	fc, err := m.engine.Forecast(steps, confidence)
	if err != nil {
		return nil, nil, nil, err
	}
	return fc.Point, fc.Lower, fc.Upper, nil
}

// FittedValues returns one-step fitted values aligned with the input.
func (m *Model) FittedValues() []float64 {
	return m.engine.FittedValues()
}
