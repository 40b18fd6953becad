// Package logging builds the service logger and adapts ensemble events to
// structured log entries.
package logging

import (
	"io"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sartorproj/stockcast/ensemble"
)

// New returns a logger writing to stdout. Development uses the text
// formatter; every other environment logs JSON. An unknown level falls back
// to info.
func New(level, environment string) *logrus.Logger {
	return NewWithWriter(os.Stdout, level, environment)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, level, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if strings.EqualFold(environment, "development") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// EventLogger returns an observer that logs ensemble events on entry.
// Configuration failures log at debug, rejected candidates and the fallback
// at warn, and selections at info.
func EventLogger(entry *logrus.Entry) ensemble.Observer {
	return func(e ensemble.Event) {
		fields := logrus.Fields{
			"event":  e.Kind.String(),
			"fitter": string(e.Family),
		}
		if e.Order != "" {
			fields["order"] = e.Order
		}
		if e.Kind == ensemble.EventScored || e.Kind == ensemble.EventRejected || e.Kind == ensemble.EventSelected {
			if !math.IsInf(e.AIC, 0) && !math.IsNaN(e.AIC) {
				fields["aic"] = e.AIC
			}
		}
		if e.Elapsed > 0 {
			fields["elapsed_ms"] = e.Elapsed.Milliseconds()
		}

		log := entry.WithFields(fields)
		if e.Err != nil {
			log = log.WithError(e.Err)
		}

		switch e.Kind {
		case ensemble.EventConfigFailed, ensemble.EventAttempted:
			log.Debug("model fit")
		case ensemble.EventFitterFailed:
			log.Info("model family produced no candidate")
		case ensemble.EventScored:
			log.Debug("model family scored")
		case ensemble.EventRejected:
			log.Warn("implausible forecast rejected")
		case ensemble.EventFallback:
			log.Warn("all model families failed, using naive forecast")
		case ensemble.EventSelected:
			log.Info("model selected")
		}
	}
}
