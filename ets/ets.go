// Package ets implements additive Holt-Winters exponential smoothing with an
// additive trend, an optional damped trend and an optional additive seasonal
// component.
package ets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/stats"
)

var (
	// ErrInsufficientData is returned when the series is too short for the configuration.
	ErrInsufficientData = errors.New("insufficient data points for exponential smoothing")
	// ErrNotFitted is returned when a fitted model is required.
	ErrNotFitted = errors.New("model must be fitted before prediction")
)

const (
	minTrendObs = 4
	minDamping  = 0.8
	maxDamping  = 0.98
)

// Config selects the model structure.
type Config struct {
	Seasonal   bool // add an additive seasonal component
	Period     int  // seasonal period, required when Seasonal is set
	Damped     bool // damp the trend
	RemoveBias bool // shift fitted values and forecasts so residuals average zero
}

// ConfigForLength returns the configuration used for a series of n monthly
// points: seasonal with period 12 and damped once two full years exist,
// trend-only otherwise. Bias removal is always on.
func ConfigForLength(n int) Config {
	if n >= 24 {
		return Config{Seasonal: true, Period: 12, Damped: true, RemoveBias: true}
	}
	return Config{RemoveBias: true}
}

// Model represents a fitted Holt-Winters model.
type Model struct {
	Config Config
	Alpha  float64 // level smoothing
	Beta   float64 // trend smoothing
	Gamma  float64 // seasonal smoothing
	Phi    float64 // damping factor, 1 when undamped
	Bias   float64 // mean residual removed when RemoveBias is set
	SSE    float64
	AIC    float64

	fitted bool
	data   []float64

	// initial states
	level0     float64
	trend0     float64
	seasonals0 []float64

	// final states
	level     float64
	trend     float64
	seasonals []float64

	fittedVals []float64
	residuals  []float64
}

// New creates a model with the given configuration.
func New(cfg Config) *Model {
	return &Model{Config: cfg, Phi: 1}
}

// MinObservations returns the shortest series Fit accepts.
func (m *Model) MinObservations() int {
	if m.Config.Seasonal {
		return max(2*m.Config.Period, minTrendObs)
	}
	return minTrendObs
}

// NumParams counts the smoothing parameters and the initial states.
func (m *Model) NumParams() int {
	k := 2 + 2 // alpha, beta, initial level, initial trend
	if m.Config.Damped {
		k++
	}
	if m.Config.Seasonal {
		k += 1 + m.Config.Period
	}
	return k
}

// Fit estimates the smoothing parameters by Nelder-Mead minimization of the
// one-step squared error, starting from heuristic initial states.
func (m *Model) Fit(ctx context.Context, data []float64) error {
	if m.Config.Seasonal && m.Config.Period < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", m.Config.Period)
	}
	if len(data) < m.MinObservations() {
		return ErrInsufficientData
	}

	m.data = data
	m.initializeStates()

	// Parameters live on the real line and are mapped into their bounds.
	init := []float64{0, logit(0.1)}
	if m.Config.Seasonal {
		init = append(init, logit(0.2))
	}
	if m.Config.Damped {
		init = append(init, 0)
	}

	objective := func(x []float64) float64 {
		m.setParams(x)
		sse := m.run(false)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}
		return sse
	}

	settings := &optimize.Settings{
		MajorIterations: 500,
		FuncEvaluations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
	}
	problem := optimize.Problem{
		Func: objective,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if result == nil || result.X == nil || result.F == math.MaxFloat64 {
		if err == nil {
			err = errors.New("smoothing diverged")
		}
		return fmt.Errorf("optimize smoothing parameters: %w", err)
	}

	m.setParams(result.X)
	m.SSE = m.run(true)

	if m.Config.RemoveBias {
		m.Bias = stat.Mean(m.residuals, nil)
		for i := range m.fittedVals {
			m.fittedVals[i] += m.Bias
			m.residuals[i] -= m.Bias
		}
		m.SSE = 0
		for _, r := range m.residuals {
			m.SSE += r * r
		}
	}

	m.calculateIC()
	if math.IsNaN(m.AIC) || math.IsInf(m.AIC, 0) {
		return errors.New("smoothing produced a non-finite information criterion")
	}
	m.fitted = true
	return nil
}

// initializeStates derives the state before the first observation. The
// trend-only model starts from the first difference. The seasonal model
// starts from the first-season mean, the slope between the first two
// season means, and detrended first-season deviations.
func (m *Model) initializeStates() {
	y := m.data
	if !m.Config.Seasonal {
		m.trend0 = y[1] - y[0]
		m.level0 = y[0] - m.trend0
		m.seasonals0 = nil
		return
	}

	p := m.Config.Period
	mean1 := stat.Mean(y[:p], nil)
	mean2 := stat.Mean(y[p:2*p], nil)
	m.trend0 = (mean2 - mean1) / float64(p)

	mid := float64(p-1) / 2
	m.seasonals0 = make([]float64, p)
	for i := 0; i < p; i++ {
		m.seasonals0[i] = y[i] - (mean1 + (float64(i)-mid)*m.trend0)
	}
	centre := stat.Mean(m.seasonals0, nil)
	for i := range m.seasonals0 {
		m.seasonals0[i] -= centre
	}
	m.level0 = mean1 - (mid+1)*m.trend0
}

func (m *Model) setParams(x []float64) {
	m.Alpha = sigmoid(x[0])
	m.Beta = sigmoid(x[1])
	i := 2
	m.Gamma = 0
	if m.Config.Seasonal {
		m.Gamma = (1 - m.Alpha) * sigmoid(x[i])
		i++
	}
	m.Phi = 1
	if m.Config.Damped {
		m.Phi = minDamping + (maxDamping-minDamping)*sigmoid(x[i])
	}
}

// run filters the data with the current parameters and returns the SSE.
// When record is set it stores fitted values, residuals and final states.
func (m *Model) run(record bool) float64 {
	y := m.data
	level, trend := m.level0, m.trend0
	var season []float64
	p := m.Config.Period
	if m.Config.Seasonal {
		season = make([]float64, p)
		copy(season, m.seasonals0)
	}
	if record {
		m.fittedVals = make([]float64, len(y))
		m.residuals = make([]float64, len(y))
	}

	sse := 0.0
	for t, obs := range y {
		s := 0.0
		if season != nil {
			s = season[t%p]
		}
		forecast := level + m.Phi*trend + s
		e := obs - forecast
		sse += e * e

		prevLevel := level
		level = m.Alpha*(obs-s) + (1-m.Alpha)*(prevLevel+m.Phi*trend)
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*m.Phi*trend
		if season != nil {
			season[t%p] = m.Gamma*(obs-level) + (1-m.Gamma)*s
		}

		if record {
			m.fittedVals[t] = forecast
			m.residuals[t] = e
		}
	}

	if record {
		m.level, m.trend, m.seasonals = level, trend, season
	}
	return sse
}

// calculateIC computes a Gaussian AIC from the one-step errors, counting the
// variance as one extra parameter, so it is comparable with package arima.
func (m *Model) calculateIC() {
	n := float64(len(m.data))
	floor := 1e-10 * math.Max(1, stat.Variance(m.data, nil))
	variance := math.Max(m.SSE/n, floor)
	logLik := -n / 2 * (math.Log(2*math.Pi*variance) + m.SSE/(n*variance))
	m.AIC = -2*logLik + 2*float64(m.NumParams()+1)
}

// Predict returns point forecasts for the given number of steps.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	n := len(m.data)
	out := make([]float64, steps)
	damp := 0.0
	for h := 1; h <= steps; h++ {
		damp += math.Pow(m.Phi, float64(h))
		v := m.level + damp*m.trend + m.Bias
		if m.seasonals != nil {
			v += m.seasonals[(n+h-1)%m.Config.Period]
		}
		out[h-1] = v
	}
	return out, nil
}

// Forecast holds point forecasts and bands.
type Forecast struct {
	Point []float64
	Lower []float64
	Upper []float64
}

// Forecast returns point forecasts with bands of half-width
// std(residuals) * (1.96 + 0.1*i) at zero-based step i.
func (m *Model) Forecast(steps int) (*Forecast, error) {
	point, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}
	sd := stats.PopStd(m.residuals)
	fc := &Forecast{
		Point: point,
		Lower: make([]float64, steps),
		Upper: make([]float64, steps),
	}
	for i, v := range point {
		half := sd * (1.96 + 0.1*float64(i))
		fc.Lower[i] = v - half
		fc.Upper[i] = v + half
	}
	return fc, nil
}

// FittedValues returns the one-step fitted values.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(m.fittedVals))
	copy(out, m.fittedVals)
	return out
}

// Residuals returns data minus fitted values.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
