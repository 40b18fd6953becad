// Package preprocess turns raw monthly stock readings into a clean,
// gap-free series.
package preprocess

import (
	"math"
	"sort"
	"time"

	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

const (
	// Floor is the smallest value a cleaned series may contain.
	Floor = 1.0
	// OutlierIQR is the number of interquartile ranges beyond Q1 and Q3
	// that a value may reach before it is clipped.
	OutlierIQR = 4.0
	// SmoothingSpan is the span of the exponentially weighted average
	// applied to highly volatile series.
	SmoothingSpan = 2.0
	// HighVolatilityCV is the coefficient of variation above which
	// smoothing is applied.
	HighVolatilityCV = 0.5
)

// Clean deduplicates, sorts, floors, clips and reindexes obs to a complete
// monthly grid. When smooth is set and the reindexed series is highly
// volatile it is also smoothed. Non-finite readings are treated as missing
// months. Clean never fails; empty input gives an empty series.
func Clean(obs []timeseries.Observation, smooth bool) *timeseries.Series {
	months := dedupe(obs)
	if len(months) == 0 {
		return &timeseries.Series{Values: []float64{}, Timestamps: []time.Time{}}
	}

	values := make([]float64, len(months))
	for i, o := range months {
		values[i] = math.Max(o.Value, Floor)
	}
	clipOutliers(values)

	series := reindex(months, values)
	if smooth && stats.CoefficientOfVariation(series.Values) > HighVolatilityCV {
		series.Values = ewm(series.Values, SmoothingSpan)
	}
	return series
}

// dedupe keeps the last finite observation for each calendar month and
// returns them in chronological order.
func dedupe(obs []timeseries.Observation) []timeseries.Observation {
	byMonth := make(map[time.Time]float64, len(obs))
	for _, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			continue
		}
		byMonth[timeseries.MonthStart(o.Date)] = o.Value
	}

	out := make([]timeseries.Observation, 0, len(byMonth))
	for month, v := range byMonth {
		out = append(out, timeseries.Observation{Date: month, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// clipOutliers bounds values to [max(1, Q1-4*IQR), Q3+4*IQR] in place when
// the interquartile range is positive.
func clipOutliers(values []float64) {
	q1 := stats.Quantile(values, 0.25)
	q3 := stats.Quantile(values, 0.75)
	iqr := q3 - q1
	if !(iqr > 0) {
		return
	}
	lower := math.Max(Floor, q1-OutlierIQR*iqr)
	upper := q3 + OutlierIQR*iqr
	for i, v := range values {
		values[i] = math.Min(math.Max(v, lower), upper)
	}
}

// reindex places values on a monthly grid from the first to the last month,
// filling missing months by linear interpolation.
func reindex(months []timeseries.Observation, values []float64) *timeseries.Series {
	first := months[0].Date
	n := timeseries.MonthsBetween(first, months[len(months)-1].Date) + 1

	grid := make([]float64, n)
	for i := range grid {
		grid[i] = math.NaN()
	}
	for i, o := range months {
		grid[timeseries.MonthsBetween(first, o.Date)] = values[i]
	}

	prev := 0
	for i := 1; i < n; i++ {
		if math.IsNaN(grid[i]) {
			continue
		}
		for j := prev + 1; j < i; j++ {
			frac := float64(j-prev) / float64(i-prev)
			grid[j] = grid[prev] + frac*(grid[i]-grid[prev])
		}
		prev = i
	}

	return timeseries.NewMonthly(first, grid)
}

// ewm is an exponentially weighted mean with alpha = 2/(span+1), without
// adjustment: s0 = x0, s_t = alpha*x_t + (1-alpha)*s_(t-1).
func ewm(x []float64, span float64) []float64 {
	alpha := 2 / (span + 1)
	out := make([]float64, len(x))
	for i, v := range x {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}
