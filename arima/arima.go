package arima

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/stockcast/stats"
)

var (
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
	// ErrNotFitted is returned when a fitted model is required.
	ErrNotFitted = errors.New("model must be fitted before prediction")
	// ErrNonFinite is returned when estimation produces non-finite parameters or variance.
	ErrNonFinite = errors.New("estimation produced non-finite values")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int // AR order (number of autoregressive terms)
	D int // Differencing order
	Q int // MA order (number of moving average terms)
}

// String formats the order as a tuple, e.g. "(1, 1, 0)".
func (o Order) String() string {
	return fmt.Sprintf("(%d, %d, %d)", o.P, o.D, o.Q)
}

// SeasonalOrder represents the seasonal part (P, D, Q, m) of a SARIMA model.
// The zero value means no seasonal component.
type SeasonalOrder struct {
	P int // Seasonal AR order
	D int // Seasonal differencing order
	Q int // Seasonal MA order
	M int // Seasonal period
}

// String formats the seasonal order as a tuple, e.g. "(1, 1, 1, 12)".
func (s SeasonalOrder) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", s.P, s.D, s.Q, s.M)
}

// IsZero reports whether there is no seasonal component.
func (s SeasonalOrder) IsZero() bool {
	return s.P == 0 && s.D == 0 && s.Q == 0
}

// Model represents a (seasonal) ARIMA model. Stationarity and invertibility
// are not enforced during estimation.
type Model struct {
	Order     Order
	Seasonal  SeasonalOrder
	ARCoeffs  []float64 // AR coefficients (phi)
	MACoeffs  []float64 // MA coefficients (theta)
	SARCoeffs []float64 // Seasonal AR coefficients (Phi)
	SMACoeffs []float64 // Seasonal MA coefficients (Theta)
	Intercept float64   // Mean of the series, only estimated when d = D = 0
	Variance  float64   // Residual variance
	AIC       float64
	LogLik    float64 // Gaussian log-likelihood scaled to the full series length

	fitted     bool
	data       []float64
	levels     [][]float64 // data after each differencing step; the last is the working series
	lags       []int       // lag applied at each differencing step
	start      int         // working-series values the CSS recursion conditions on
	residuals  []float64   // residuals on the working series from start on
	fittedVals []float64   // one-step fitted values on the data scale
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return NewSeasonal(Order{P: p, D: d, Q: q}, SeasonalOrder{})
}

// NewSeasonal creates a model with both non-seasonal and seasonal orders.
func NewSeasonal(order Order, seasonal SeasonalOrder) *Model {
	if seasonal.IsZero() {
		seasonal = SeasonalOrder{}
	}
	return &Model{
		Order:     order,
		Seasonal:  seasonal,
		ARCoeffs:  make([]float64, order.P),
		MACoeffs:  make([]float64, order.Q),
		SARCoeffs: make([]float64, seasonal.P),
		SMACoeffs: make([]float64, seasonal.Q),
	}
}

// NumParams returns the number of ARMA coefficients plus the mean when it is estimated.
func (m *Model) NumParams() int {
	k := m.Order.P + m.Order.Q + m.Seasonal.P + m.Seasonal.Q
	if m.includeMean() {
		k++
	}
	return k
}

// MinObservations returns the shortest series Fit accepts: after
// differencing and conditioning on the first p values, at least one more
// residual than estimated coefficients must remain.
func (m *Model) MinObservations() int {
	return m.Order.D + m.Seasonal.D*m.Seasonal.M + m.Order.P + m.NumParams() + 1
}

// conditioning returns how many leading values of a working series of
// length n the CSS recursion conditions on: every AR lag p + P*m when enough
// residuals remain, otherwise only the non-seasonal lags, with seasonal lags
// reaching before the start dropped.
func (m *Model) conditioning(n int) int {
	full := m.Order.P + m.Seasonal.P*m.Seasonal.M
	if n-full >= m.NumParams()+1 {
		return full
	}
	return m.Order.P
}

func (m *Model) includeMean() bool {
	return m.Order.D == 0 && m.Seasonal.D == 0
}

// Fit fits the model to y. The context bounds the optimizer's runtime.
func (m *Model) Fit(ctx context.Context, y []float64) error {
	if len(y) < m.MinObservations() {
		return ErrInsufficientData
	}
	if !m.Seasonal.IsZero() && m.Seasonal.M < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", m.Seasonal.M)
	}

	m.data = y
	m.difference()
	w := m.levels[len(m.levels)-1]

	m.Intercept = 0
	if m.includeMean() {
		m.Intercept = stat.Mean(w, nil)
	}
	z := make([]float64, len(w))
	for i, v := range w {
		z[i] = v - m.Intercept
	}
	m.start = m.conditioning(len(z))

	if err := m.fitCSS(ctx, z); err != nil {
		return err
	}
	if !finite(m.ARCoeffs) || !finite(m.MACoeffs) || !finite(m.SARCoeffs) || !finite(m.SMACoeffs) {
		return ErrNonFinite
	}

	m.calculateIC()
	if math.IsNaN(m.AIC) || math.IsInf(m.AIC, 0) {
		return ErrNonFinite
	}
	m.computeFitted()

	m.fitted = true
	return nil
}

// difference applies d regular then D seasonal differences, keeping every
// intermediate level for integration.
func (m *Model) difference() {
	m.levels = [][]float64{m.data}
	m.lags = nil
	for i := 0; i < m.Order.D; i++ {
		m.lags = append(m.lags, 1)
	}
	for i := 0; i < m.Seasonal.D; i++ {
		m.lags = append(m.lags, m.Seasonal.M)
	}

	cur := m.data
	for _, lag := range m.lags {
		next := make([]float64, len(cur)-lag)
		for t := lag; t < len(cur); t++ {
			next[t-lag] = cur[t] - cur[t-lag]
		}
		m.levels = append(m.levels, next)
		cur = next
	}
}

// fitCSS estimates the ARMA coefficients on the centered working series by
// Nelder-Mead minimization of the conditional sum of squares.
func (m *Model) fitCSS(ctx context.Context, z []float64) error {
	p, q := m.Order.P, m.Order.Q
	sp, sq := m.Seasonal.P, m.Seasonal.Q
	k := p + q + sp + sq

	if k == 0 {
		m.residuals = make([]float64, len(z)-m.start)
		copy(m.residuals, z[m.start:])
		return nil
	}

	// Yule-Walker start for AR, small positive start for MA.
	init := make([]float64, k)
	if p > 0 {
		if acf := stats.ACF(z, p); acf != nil {
			copy(init, stats.YuleWalker(acf, p))
		}
	}
	for i := p; i < p+q; i++ {
		init[i] = 0.1
	}
	for i := p + q + sp; i < k; i++ {
		init[i] = 0.1
	}

	objective := func(x []float64) float64 {
		m.unpack(x)
		ar, ma := m.polynomials()
		sse := 0.0
		for _, e := range cssResiduals(z, ar, ma, m.start) {
			sse += e * e
		}
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
			err = ErrNonFinite
		}
		return fmt.Errorf("optimize %v%v: %w", m.Order, m.Seasonal, err)
	}

	m.unpack(result.X)
	ar, ma := m.polynomials()
	m.residuals = cssResiduals(z, ar, ma, m.start)
	return nil
}

func (m *Model) unpack(x []float64) {
	p, q, sp := m.Order.P, m.Order.Q, m.Seasonal.P
	copy(m.ARCoeffs, x[:p])
	copy(m.MACoeffs, x[p:p+q])
	copy(m.SARCoeffs, x[p+q:p+q+sp])
	copy(m.SMACoeffs, x[p+q+sp:])
}

// polynomials returns the expanded AR polynomial phi(B)Phi(B^m) and MA
// polynomial theta(B)Theta(B^m), each with a leading 1.
func (m *Model) polynomials() (ar, ma []float64) {
	ar = polyMul(lagPoly(m.ARCoeffs, 1, -1), lagPoly(m.SARCoeffs, m.Seasonal.M, -1))
	ma = polyMul(lagPoly(m.MACoeffs, 1, 1), lagPoly(m.SMACoeffs, m.Seasonal.M, 1))
	return ar, ma
}

// cssResiduals runs the ARMA recursion a(B)z_t = b(B)e_t for t >= start,
// conditioning on z[:start] and taking earlier shocks as zero. It returns
// the residuals from start on.
func cssResiduals(z, ar, ma []float64, start int) []float64 {
	e := make([]float64, len(z))
	for t := start; t < len(z); t++ {
		v := z[t]
		for j := 1; j < len(ar) && j <= t; j++ {
			v += ar[j] * z[t-j]
		}
		for j := 1; j < len(ma) && j <= t; j++ {
			v -= ma[j] * e[t-j]
		}
		e[t] = v
	}
	return e[start:]
}

// calculateIC computes the Gaussian log-likelihood and AIC from the CSS
// residuals. Differencing and conditioning leave fewer residuals than data
// points, so the per-residual log-likelihood is scaled to len(data) to keep
// AIC comparable across orders and with package ets. The variance counts as
// one extra parameter.
func (m *Model) calculateIC() {
	n := float64(len(m.residuals))
	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	// Exact fits would drive the log-likelihood to +Inf.
	floor := 1e-10 * math.Max(1, stat.Variance(m.data, nil))
	m.Variance = math.Max(sse/n, floor)

	nobs := float64(len(m.data))
	m.LogLik = -nobs / 2 * (math.Log(2*math.Pi*m.Variance) + sse/(n*m.Variance))
	m.AIC = -2*m.LogLik + 2*float64(m.NumParams()+1)
}

// computeFitted maps the working-series residuals back to one-step fitted
// values on the data scale. Points consumed by differencing are NaN.
func (m *Model) computeFitted() {
	offset := len(m.data) - len(m.residuals)
	m.fittedVals = make([]float64, len(m.data))
	for t := range m.data {
		if t < offset {
			m.fittedVals[t] = math.NaN()
			continue
		}
		m.fittedVals[t] = m.data[t] - m.residuals[t-offset]
	}
}

// Forecast holds point forecasts and a two-sided prediction interval.
type Forecast struct {
	Point []float64
	Lower []float64
	Upper []float64
	Level float64
}

// Forecast returns point forecasts with a prediction interval at the given
// confidence level. Interval widths come from the psi weights of the
// integrated model.
func (m *Model) Forecast(steps int, level float64) (*Forecast, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("confidence level must be in (0, 1), got %v", level)
	}

	ar, ma := m.polynomials()
	w := m.levels[len(m.levels)-1]
	n := len(w)

	ext := make([]float64, n+steps)
	for i, v := range w {
		ext[i] = v - m.Intercept
	}
	for h := 0; h < steps; h++ {
		t := n + h
		pred := 0.0
		for j := 1; j < len(ar) && j <= t; j++ {
			pred -= ar[j] * ext[t-j]
		}
		// Future shocks have zero expectation, as do those before start.
		for j := 1; j < len(ma) && j <= t; j++ {
			if i := t - j; i >= m.start && i < n {
				pred += ma[j] * m.residuals[i-m.start]
			}
		}
		ext[t] = pred
	}

	point := make([]float64, steps)
	for h := range point {
		point[h] = ext[n+h] + m.Intercept
	}
	point = m.integrate(point)

	psi := psiWeights(polyMul(ar, m.differencingPoly()), ma, steps)
	z := distuv.UnitNormal.Quantile(0.5 + level/2)

	fc := &Forecast{
		Point: point,
		Lower: make([]float64, steps),
		Upper: make([]float64, steps),
		Level: level,
	}
	cum := 0.0
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		half := z * math.Sqrt(m.Variance*cum)
		fc.Lower[h] = point[h] - half
		fc.Upper[h] = point[h] + half
	}
	return fc, nil
}

// integrate undoes each differencing step, last applied first.
func (m *Model) integrate(forecasts []float64) []float64 {
	result := forecasts
	for i := len(m.lags) - 1; i >= 0; i-- {
		base := m.levels[i]
		lag := m.lags[i]
		next := make([]float64, len(result))
		for h := range result {
			var prev float64
			if h-lag >= 0 {
				prev = next[h-lag]
			} else {
				prev = base[len(base)+h-lag]
			}
			next[h] = result[h] + prev
		}
		result = next
	}
	return result
}

func (m *Model) differencingPoly() []float64 {
	poly := []float64{1}
	for _, lag := range m.lags {
		step := make([]float64, lag+1)
		step[0], step[lag] = 1, -1
		poly = polyMul(poly, step)
	}
	return poly
}

// psiWeights returns the first h coefficients of b(B)/a(B).
func psiWeights(ar, ma []float64, h int) []float64 {
	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i < len(ar) && i <= j; i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// lagPoly builds 1 + sign*(c1 B^lag + c2 B^(2 lag) + ...).
func lagPoly(coeffs []float64, lag int, sign float64) []float64 {
	if len(coeffs) == 0 {
		return []float64{1}
	}
	poly := make([]float64, len(coeffs)*lag+1)
	poly[0] = 1
	for i, c := range coeffs {
		poly[(i+1)*lag] = sign * c
	}
	return poly
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FittedValues returns one-step fitted values aligned with the input series.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.fittedVals))
	copy(result, m.fittedVals)
	return result
}
