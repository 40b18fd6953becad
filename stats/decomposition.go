package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DecompositionResult holds an additive decomposition Y = T + S + R.
type DecompositionResult struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Period   int
}

// Decompose performs classical additive decomposition with a centered
// moving-average trend. The trend is linearly extrapolated over the edges
// the moving average leaves undefined, fitting period-1 points at each end,
// so every component is defined at every index.
func Decompose(x []float64, period int) (*DecompositionResult, error) {
	n := len(x)
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if n < 2*period {
		return nil, fmt.Errorf("need two complete cycles (%d observations), got %d", 2*period, n)
	}

	trend := centeredMovingAverage(x, period)
	extrapolateTrend(trend, period-1)
	for _, v := range trend {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("trend undefined for period %d over %d observations", period, n)
		}
	}

	detrended := make([]float64, n)
	for i := range x {
		detrended[i] = x[i] - trend[i]
	}

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		pattern[i%period] += v
		counts[i%period]++
	}
	for i := range pattern {
		pattern[i] /= float64(counts[i])
	}
	centre := stat.Mean(pattern, nil)
	for i := range pattern {
		pattern[i] -= centre
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := range x {
		seasonal[i] = pattern[i%period]
		residual[i] = detrended[i] - seasonal[i]
	}

	return &DecompositionResult{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
		Period:   period,
	}, nil
}

// SeasonalStrength returns std(seasonal)/(std(x)+1e-10).
func (d *DecompositionResult) SeasonalStrength(x []float64) float64 {
	return PopStd(d.Seasonal) / (PopStd(x) + 1e-10)
}

// centeredMovingAverage returns the centered moving average of x, NaN where
// the window does not fit. Even periods use a 2xperiod MA with half weights
// at both ends.
func centeredMovingAverage(x []float64, period int) []float64 {
	n := len(x)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*x[i-half] + 0.5*x[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += x[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += x[j]
			}
		}
		trend[i] = sum / float64(period)
	}
	return trend
}

// extrapolateTrend fills the NaN edges of trend in place with least-squares
// lines fitted to npoints defined values next to each edge.
func extrapolateTrend(trend []float64, npoints int) {
	front, back := -1, -1
	for i, v := range trend {
		if !math.IsNaN(v) {
			if front == -1 {
				front = i
			}
			back = i
		}
	}
	if front == -1 {
		return
	}

	frontLast := min(front+npoints, back)
	if alpha, beta, ok := lineFit(trend, front, frontLast); ok {
		for i := 0; i < front; i++ {
			trend[i] = alpha + beta*float64(i)
		}
	}

	backFirst := max(front, back-npoints)
	if alpha, beta, ok := lineFit(trend, backFirst, back); ok {
		for i := back + 1; i < len(trend); i++ {
			trend[i] = alpha + beta*float64(i)
		}
	}
}

// lineFit regresses trend[lo:hi] on the absolute index.
func lineFit(trend []float64, lo, hi int) (alpha, beta float64, ok bool) {
	if hi-lo < 2 {
		return 0, 0, false
	}
	idx := make([]float64, hi-lo)
	for i := range idx {
		idx[i] = float64(lo + i)
	}
	alpha, beta = stat.LinearRegression(idx, trend[lo:hi], nil, false)
	return alpha, beta, true
}
