package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/sartorproj/stockcast/ensemble"
	"github.com/sartorproj/stockcast/pattern"
	"github.com/sartorproj/stockcast/timeseries"
)

func monthly(values []float64) []timeseries.Observation {
	start := time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC)
	obs := make([]timeseries.Observation, len(values))
	for i, v := range values {
		obs[i] = timeseries.Observation{Date: start.AddDate(0, i, 0), Value: v}
	}
	return obs
}

func TestForecastLinearTrend(t *testing.T) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 100 + 2*float64(i)
	}

	res, err := New(DefaultOptions()).Forecast(context.Background(), "ITEM-A", monthly(values), 3)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	if res.State != ensemble.Selected {
		t.Fatalf("State = %v, want selected", res.State)
	}
	if res.Family != string(ensemble.FamilyARIMA) {
		t.Fatalf("family = %s %s, want ARIMA", res.Family, res.ModelOrder)
	}
	var p, d, q int
	if _, err := fmt.Sscanf(res.ModelOrder, "(%d, %d, %d)", &p, &d, &q); err != nil {
		t.Fatalf("parse order %q: %v", res.ModelOrder, err)
	}
	if d < 1 {
		t.Errorf("order %s does not difference the trend", res.ModelOrder)
	}
	if res.RowsUsed != 36 || len(res.History) != 36 {
		t.Errorf("RowsUsed = %d, history = %d, want 36", res.RowsUsed, len(res.History))
	}

	want := []float64{172, 174, 176}
	for i, p := range res.Predictions {
		if math.Abs(p.Forecast-want[i]) > 0.5 {
			t.Errorf("step %d: forecast %.2f, want about %.0f", i+1, p.Forecast, want[i])
		}
		if p.Lower > p.Forecast || p.Upper < p.Forecast {
			t.Errorf("step %d: interval [%.2f, %.2f] does not contain %.2f", i+1, p.Lower, p.Upper, p.Forecast)
		}
	}

	wantDates := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	for i, p := range res.Predictions {
		if got := p.Date.Format(dateLayout); got != wantDates[i] {
			t.Errorf("step %d: date %s, want %s", i+1, got, wantDates[i])
		}
	}
}

func TestForecastFlatSeries(t *testing.T) {
	res, err := New(DefaultOptions()).Forecast(context.Background(), "ITEM-B", monthly([]float64{50, 50, 50, 50, 50, 50}), 3)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	if res.State != ensemble.Selected || res.ModelOrder == ensemble.OrderNaive {
		t.Errorf("order = %s, state = %v, want a fitted model", res.ModelOrder, res.State)
	}
	// Six points leave fewer than 12 fitted values to score.
	if res.AccuracyMAPE != nil {
		t.Errorf("AccuracyMAPE = %v, want nil", *res.AccuracyMAPE)
	}
	for i, p := range res.Predictions {
		if math.Abs(p.Forecast-50) > 1e-6 {
			t.Errorf("step %d: forecast %v, want 50", i+1, p.Forecast)
		}
	}
	if res.Profile.Volatility != pattern.Low || res.Profile.HasTrend || res.Profile.HasSeasonality {
		t.Errorf("profile = %+v", res.Profile)
	}
}

func TestForecastSeasonal(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = 100 + 40*math.Sin(2*math.Pi*float64(i)/12)
	}

	var sarimaAttempted bool
	opts := DefaultOptions()
	opts.Ensemble.Observer = func(e ensemble.Event) {
		if e.Kind == ensemble.EventAttempted && e.Family == ensemble.FamilySARIMA {
			sarimaAttempted = true
		}
	}

	res, err := New(opts).Forecast(context.Background(), "ITEM-C", monthly(values), 6)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if !res.Profile.HasSeasonality {
		t.Fatal("seasonality not detected")
	}
	if !sarimaAttempted {
		t.Error("SARIMA was not attempted")
	}
	if len(res.Predictions) != 6 {
		t.Fatalf("got %d predictions, want 6", len(res.Predictions))
	}

	if res.Family != string(ensemble.FamilySARIMA) {
		t.Fatalf("family = %s %s, want SARIMA", res.Family, res.ModelOrder)
	}
	// Two years leave the first 13 fitted values undefined after seasonal
	// and regular differencing, so the 12-month window cannot be scored.
	if res.AccuracyMAPE != nil {
		t.Errorf("AccuracyMAPE = %v, want nil", *res.AccuracyMAPE)
	}
}

func TestForecastSeasonalThreeYears(t *testing.T) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 100 + 40*math.Sin(2*math.Pi*float64(i)/12)
	}

	res, err := New(DefaultOptions()).Forecast(context.Background(), "ITEM-C", monthly(values), 12)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if res.Family != string(ensemble.FamilySARIMA) {
		t.Fatalf("family = %s %s, want SARIMA", res.Family, res.ModelOrder)
	}
	if res.AccuracyMAPE == nil {
		t.Fatal("AccuracyMAPE is nil")
	}
	if *res.AccuracyMAPE > 1 {
		t.Errorf("AccuracyMAPE = %.3f, want under 1%%", *res.AccuracyMAPE)
	}
	for i, p := range res.Predictions {
		want := 100 + 40*math.Sin(2*math.Pi*float64(36+i)/12)
		if math.Abs(p.Forecast-want) > 1 {
			t.Errorf("step %d: forecast %.2f, want about %.2f", i+1, p.Forecast, want)
		}
	}
}

func TestForecastInsufficientData(t *testing.T) {
	f := New(DefaultOptions())

	_, err := f.Forecast(context.Background(), "X", monthly([]float64{1, 2, 3, 4, 5}), 3)
	var ide *InsufficientDataError
	if !errors.As(err, &ide) || ide.Count != 5 {
		t.Fatalf("err = %v, want InsufficientDataError with count 5", err)
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("error does not unwrap to ErrInsufficientData")
	}

	// Six rows that collapse into three months after deduplication.
	obs := monthly([]float64{10, 20, 30})
	obs = append(obs, monthly([]float64{11, 21, 31})...)
	_, err = f.Forecast(context.Background(), "X", obs, 3)
	if !errors.As(err, &ide) || ide.Count != 3 {
		t.Fatalf("err = %v, want InsufficientDataError with count 3", err)
	}
}

func TestForecastHorizon(t *testing.T) {
	f := New(DefaultOptions())
	obs := monthly([]float64{50, 50, 50, 50, 50, 50})

	for _, h := range []int{-1, 25} {
		if _, err := f.Forecast(context.Background(), "X", obs, h); !errors.Is(err, ErrInvalidHorizon) {
			t.Errorf("horizon %d: err = %v, want ErrInvalidHorizon", h, err)
		}
	}

	res, err := f.Forecast(context.Background(), "X", obs, 0)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(res.Predictions) != 3 {
		t.Errorf("default horizon gave %d predictions, want 3", len(res.Predictions))
	}
}

func TestForecastClampsSelected(t *testing.T) {
	fitter := stubFitter{cand: &ensemble.Candidate{
		Family:   ensemble.FamilyARIMA,
		Order:    "(1, 0, 0)",
		Forecast: []float64{10, 10, 10},
		Lower:    []float64{-5, -5, -5},
		Upper:    []float64{20, 20, 20},
		AIC:      10,
		Fitted:   []float64{math.NaN(), 10, 10, 10, 10, 10, 10},
	}}
	res, err := New(DefaultOptions(), fitter).Forecast(context.Background(), "X", monthly([]float64{10, 10, 10, 10, 10, 10, 10}), 3)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	for i, p := range res.Predictions {
		if p.Lower != 1 {
			t.Errorf("step %d: lower %v, want clamped to 1", i+1, p.Lower)
		}
	}
	if res.AccuracyMAPE != nil {
		t.Error("NaN fitted value should make accuracy unavailable")
	}
}

type stubFitter struct {
	cand *ensemble.Candidate
}

func (stubFitter) Family() ensemble.Family { return ensemble.FamilyARIMA }

func (f stubFitter) Configs(int, pattern.Profile) []ensemble.Config {
	return []ensemble.Config{stubConfig(f)}
}

type stubConfig stubFitter

func (stubConfig) Order() string { return "stub" }

func (c stubConfig) Fit(context.Context, []float64, int) (*ensemble.Candidate, error) {
	return c.cand, nil
}

func TestMAPE(t *testing.T) {
	got, err := MAPE([]float64{100, 200}, []float64{110, 180}, 12)
	if err != nil {
		t.Fatalf("MAPE failed: %v", err)
	}
	if math.Abs(got-10) > 1e-9 {
		t.Errorf("MAPE = %v, want 10", got)
	}

	// Only the window is scored.
	got, err = MAPE([]float64{1, 100}, []float64{math.NaN(), 150}, 1)
	if err != nil || math.Abs(got-50) > 1e-9 {
		t.Errorf("MAPE = %v, %v, want 50", got, err)
	}

	bad := []struct {
		name           string
		actual, fitted []float64
	}{
		{"mismatch", []float64{1, 2}, []float64{1}},
		{"zero actual", []float64{0, 2}, []float64{1, 2}},
		{"nan fitted", []float64{1, 2}, []float64{math.NaN(), 2}},
		{"empty", nil, nil},
	}
	for _, tt := range bad {
		if _, err := MAPE(tt.actual, tt.fitted, 12); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
