package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/pattern"
	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

const recentRows = 10

type handlers struct {
	deps Dependencies
	log  *logrus.Entry
}

// PredictRequest is the body of POST /predict. Months defaults to the
// forecaster's default horizon when omitted.
type PredictRequest struct {
	ItemCode string `json:"item_code" binding:"required"`
	Months   *int   `json:"months"`
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Stockcast forecasting API",
		"version": h.deps.Version,
	})
}

func (h *handlers) health(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.deps.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	sample, err := h.deps.Health.Sample(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"database":    "connected",
		"sample_data": sample,
	})
}

func (h *handlers) predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	horizon := 0
	if req.Months != nil {
		horizon = *req.Months
		if horizon == 0 {
			h.countForecast("invalid_horizon")
			c.JSON(http.StatusBadRequest, gin.H{"detail": "months must be at least 1"})
			return
		}
	}

	ctx := c.Request.Context()
	obs, err := h.deps.History.MonthlyHistory(ctx, req.ItemCode)
	if err != nil {
		h.countForecast("error")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Failed to load history: %v", err)})
		return
	}

	res, err := h.deps.Forecaster.Forecast(ctx, req.ItemCode, obs, horizon)
	var insufficient *forecast.InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		h.countForecast("insufficient_data")
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf(
			"Not enough data for %s. Need at least %d months, found %d",
			req.ItemCode, insufficient.Required, insufficient.Count)})
		return
	case errors.Is(err, forecast.ErrInvalidHorizon):
		h.countForecast("invalid_horizon")
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	case err != nil:
		h.countForecast("error")
		h.log.WithError(err).WithField("item_code", req.ItemCode).Error("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Prediction failed: %v", err)})
		return
	}

	h.countForecast("ok")
	h.log.WithFields(logrus.Fields{
		"item_code":   req.ItemCode,
		"model_order": res.ModelOrder,
		"state":       res.State.String(),
	}).Info("forecast served")
	c.JSON(http.StatusOK, res.Map())
}

func (h *handlers) countForecast(outcome string) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.Forecasts.WithLabelValues(outcome).Inc()
	}
}

func (h *handlers) debug(c *gin.Context) {
	itemCode := c.Param("item_code")
	obs, err := h.deps.History.MonthlyHistory(c.Request.Context(), itemCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Failed to load history: %v", err)})
		return
	}

	recent := make([]any, 0, recentRows)
	for _, o := range obs[max(0, len(obs)-recentRows):] {
		recent = append(recent, map[string]any{
			"year":        o.Date.Year(),
			"month":       int(o.Date.Month()),
			"stockonhand": o.Value,
		})
	}

	resp := map[string]any{
		"item_code_sent":    itemCode,
		"rows_found":        len(obs),
		"statistics":        nil,
		"detected_patterns": nil,
		"recent_data":       recent,
	}
	if len(obs) > 0 {
		raw := timeseries.FromObservations(obs)
		resp["statistics"] = map[string]any{
			"mean":                     round2(raw.Mean()),
			"median":                   round2(raw.Median()),
			"std_dev":                  round2(raw.PopStd()),
			"min":                      raw.Min(),
			"max":                      raw.Max(),
			"coefficient_of_variation": round2(stats.CoefficientOfVariation(raw.Values)),
		}
		resp["detected_patterns"] = pattern.Detect(raw)
	}
	c.JSON(http.StatusOK, forecast.Sanitize(resp))
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
