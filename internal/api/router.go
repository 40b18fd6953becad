// Package api exposes the forecaster over HTTP.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/internal/database"
	"github.com/sartorproj/stockcast/internal/metrics"
)

// HealthChecker reports database reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Sample(ctx context.Context) (*database.SummaryRow, error)
}

// Dependencies are the collaborators the handlers use. Metrics and Logger
// are optional.
type Dependencies struct {
	Forecaster     *forecast.Forecaster
	History        database.HistorySource
	Health         HealthChecker
	Metrics        *metrics.Metrics
	Logger         *logrus.Logger
	AllowedOrigins []string
	Version        string
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	h := &handlers{deps: deps, log: deps.Logger.WithField("component", "api")}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(h.log))
	if deps.Metrics != nil {
		router.Use(RequestMetrics(deps.Metrics))
	}
	router.Use(CORS(deps.AllowedOrigins))

	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.POST("/predict", h.predict)
	router.GET("/debug/:item_code", h.debug)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	return router
}
