// Package stats provides the statistical building blocks used by the
// forecasting pipeline: autocorrelation with Yule-Walker initialization,
// classical additive decomposition and descriptive statistics.
package stats
