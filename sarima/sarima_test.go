package sarima

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sartorproj/stockcast/arima"
)

func seasonalSeries(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 20*math.Sin(2*math.Pi*float64(i)/12) + float64(i%5-2)/2
	}
	return values
}

func TestNewSARIMA(t *testing.T) {
	model := New(1, 1, 1, 1, 1, 1, 12)

	if model.Order.P != 1 || model.Order.D != 1 || model.Order.Q != 1 {
		t.Errorf("Unexpected non-seasonal order %+v", model.Order)
	}
	if model.Order.SP != 1 || model.Order.SD != 1 || model.Order.SQ != 1 || model.Order.M != 12 {
		t.Errorf("Unexpected seasonal order %+v", model.Order)
	}
}

func TestOrderString(t *testing.T) {
	got := New(2, 1, 2, 1, 1, 1, 12).Order.String()
	if got != "((2, 1, 2), (1, 1, 1, 12))" {
		t.Errorf("Unexpected order string %q", got)
	}
}

func TestMinObservations(t *testing.T) {
	tests := []struct {
		model *Model
		want  int
	}{
		{New(0, 1, 1, 0, 1, 1, 12), 16},
		{New(1, 1, 0, 1, 1, 0, 12), 17},
		{New(1, 1, 1, 1, 1, 1, 12), 19},
		{New(2, 1, 2, 1, 1, 1, 12), 22},
	}
	for _, tt := range tests {
		if got := tt.model.MinObservations(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.model.Order, tt.want, got)
		}
	}
}

func TestSARIMAFitMonthlyData(t *testing.T) {
	values := seasonalSeries(48)

	model := New(0, 1, 1, 0, 1, 1, 12)
	if err := model.Fit(context.Background(), values); err != nil {
		t.Fatalf("Failed to fit SARIMA model: %v", err)
	}

	t.Logf("SARIMA(0,1,1)(0,1,1)[12] - AIC: %f", model.AIC)

	forecasts, lower, upper, err := model.PredictWithInterval(12, 0.95)
	if err != nil {
		t.Fatalf("Prediction failed: %v", err)
	}

	// The forecast should follow the seasonal wave of the last year.
	for h := 0; h < 12; h++ {
		expected := 100 + 20*math.Sin(2*math.Pi*float64(48+h)/12)
		if math.Abs(forecasts[h]-expected) > 10 {
			t.Errorf("Step %d: expected about %f, got %f", h+1, expected, forecasts[h])
		}
		if lower[h] > forecasts[h] || upper[h] < forecasts[h] {
			t.Errorf("Step %d: forecast outside interval", h+1)
		}
	}

	fitted := model.FittedValues()
	if len(fitted) != len(values) {
		t.Fatalf("Expected %d fitted values, got %d", len(values), len(fitted))
	}
	for i := 0; i < 13; i++ {
		if !math.IsNaN(fitted[i]) {
			t.Errorf("Fitted value %d should be undefined after differencing", i)
		}
	}
	if math.IsNaN(fitted[len(fitted)-1]) {
		t.Error("Last fitted value should be defined")
	}
}

func TestSARIMAInsufficientData(t *testing.T) {
	model := New(1, 1, 1, 1, 1, 1, 12)
	err := model.Fit(context.Background(), seasonalSeries(18))
	if !errors.Is(err, arima.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestSARIMAFitsTwoYears(t *testing.T) {
	values := seasonalSeries(24)
	for _, model := range []*Model{
		New(1, 1, 1, 1, 1, 1, 12),
		New(0, 1, 1, 0, 1, 1, 12),
		New(1, 1, 0, 1, 1, 0, 12),
		New(2, 1, 2, 1, 1, 1, 12),
	} {
		if err := model.Fit(context.Background(), values); err != nil {
			t.Errorf("%s: fit failed on 24 points: %v", model.Order, err)
			continue
		}
		if math.IsNaN(model.AIC) || math.IsInf(model.AIC, 0) {
			t.Errorf("%s: AIC should be finite, got %f", model.Order, model.AIC)
		}
		point, lower, upper, err := model.PredictWithInterval(6, 0.95)
		if err != nil {
			t.Errorf("%s: forecast failed: %v", model.Order, err)
			continue
		}
		for h := range point {
			if lower[h] > point[h] || upper[h] < point[h] {
				t.Errorf("%s: step %d outside interval", model.Order, h+1)
			}
		}
	}
}

func TestSARIMAInvalidPeriod(t *testing.T) {
	if err := New(0, 1, 1, 0, 1, 1, 1).Fit(context.Background(), seasonalSeries(48)); err == nil {
		t.Error("Expected error for period 1")
	}
}
