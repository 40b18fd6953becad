package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/internal/database"
	"github.com/sartorproj/stockcast/internal/metrics"
	"github.com/sartorproj/stockcast/timeseries"
)

type fakeHistory struct {
	data map[string][]timeseries.Observation
	err  error
}

func (f *fakeHistory) MonthlyHistory(_ context.Context, itemCode string) ([]timeseries.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[strings.ToLower(strings.TrimSpace(itemCode))], nil
}

type fakeHealth struct {
	pingErr error
	sample  *database.SummaryRow
}

func (f *fakeHealth) Ping(context.Context) error { return f.pingErr }

func (f *fakeHealth) Sample(context.Context) (*database.SummaryRow, error) { return f.sample, nil }

func months(values ...float64) []timeseries.Observation {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]timeseries.Observation, len(values))
	for i, v := range values {
		obs[i] = timeseries.Observation{Date: start.AddDate(0, i, 0), Value: v}
	}
	return obs
}

func setupRouter(history *fakeHistory, health *fakeHealth) (*gin.Engine, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := metrics.New()
	opts := forecast.DefaultOptions()
	opts.Ensemble.Observer = m.Observer()
	router := NewRouter(Dependencies{
		Forecaster:     forecast.New(opts),
		History:        history,
		Health:         health,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		Version:        "test",
	})
	return router, m
}

func defaultHistory() *fakeHistory {
	return &fakeHistory{data: map[string][]timeseries.Observation{
		"flat":  months(50, 50, 50, 50, 50, 50),
		"short": months(10, 20, 30),
	}}
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestPredict_Success(t *testing.T) {
	router, m := setupRouter(defaultHistory(), &fakeHealth{})

	w := postJSON(t, router, "/predict", `{"item_code": "FLAT", "months": 2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "FLAT", body["item_code"])
	assert.Equal(t, float64(6), body["rows_used"])
	assert.Equal(t, "(0, 1, 0)", body["model_order"])
	assert.Contains(t, body, "accuracy_mape")
	assert.Nil(t, body["accuracy_mape"])

	preds := body["predictions"].([]any)
	require.Len(t, preds, 2)
	first := preds[0].(map[string]any)
	assert.Equal(t, "2023-07-01", first["date"])
	assert.InDelta(t, 50.0, first["forecast"], 1e-6)

	assert.Len(t, body["history"].([]any), 6)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Forecasts.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Fallbacks))
}

func TestPredict_DefaultMonths(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	w := postJSON(t, router, "/predict", `{"item_code": "flat"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["predictions"].([]any), 3)
}

func TestPredict_NotEnoughData(t *testing.T) {
	router, m := setupRouter(defaultHistory(), &fakeHealth{})

	w := postJSON(t, router, "/predict", `{"item_code": "short"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not enough data for short. Need at least 6 months, found 3", decode(t, w)["detail"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Forecasts.WithLabelValues("insufficient_data")))

	w = postJSON(t, router, "/predict", `{"item_code": "missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not enough data for missing. Need at least 6 months, found 0", decode(t, w)["detail"])
}

func TestPredict_BadRequests(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	tests := []struct {
		name string
		body string
	}{
		{"missing item", `{"months": 3}`},
		{"malformed", `{"item_code":`},
		{"zero months", `{"item_code": "flat", "months": 0}`},
		{"too many months", `{"item_code": "flat", "months": 100}`},
		{"negative months", `{"item_code": "flat", "months": -2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/predict", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["detail"])
		})
	}
}

func TestPredict_HistoryError(t *testing.T) {
	router, _ := setupRouter(&fakeHistory{err: errors.New("db down")}, &fakeHealth{})

	w := postJSON(t, router, "/predict", `{"item_code": "flat"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "db down")
}

func TestHealth(t *testing.T) {
	sample := &database.SummaryRow{ItemCode: "A", Year: 2024, Month: 1, StockOnHand: 5}
	router, _ := setupRouter(defaultHistory(), &fakeHealth{sample: sample})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "A", body["sample_data"].(map[string]any)["itemcode"])

	router, _ = setupRouter(defaultHistory(), &fakeHealth{pingErr: errors.New("refused")})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body = decode(t, w)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "refused", body["error"])
}

func TestDebug(t *testing.T) {
	history := &fakeHistory{data: map[string][]timeseries.Observation{
		"item": months(10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120),
	}}
	router, _ := setupRouter(history, &fakeHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/ITEM", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ITEM", body["item_code_sent"])
	assert.Equal(t, float64(12), body["rows_found"])

	statistics := body["statistics"].(map[string]any)
	assert.Equal(t, 65.0, statistics["mean"])
	assert.Equal(t, 65.0, statistics["median"])
	assert.Equal(t, 10.0, statistics["min"])
	assert.Equal(t, 120.0, statistics["max"])
	assert.Equal(t, 34.52, statistics["std_dev"])

	patterns := body["detected_patterns"].(map[string]any)
	assert.Equal(t, true, patterns["has_trend"])
	assert.Equal(t, "increasing", patterns["trend_direction"])

	recent := body["recent_data"].([]any)
	require.Len(t, recent, 10)
	assert.Equal(t, 120.0, recent[9].(map[string]any)["stockonhand"])
}

func TestDebug_NoRows(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/nothing", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(0), body["rows_found"])
	assert.Nil(t, body["statistics"])
	assert.Nil(t, body["detected_patterns"])
	assert.Empty(t, body["recent_data"])
}

func TestCORS(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPassthrough(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(defaultHistory(), &fakeHealth{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockcast_http_request_duration_seconds")
}
