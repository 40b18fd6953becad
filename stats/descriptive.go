package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the p-quantile of x using linear interpolation between
// closest ranks, position p*(n-1). x need not be sorted.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Slope returns the least-squares slope of x against its index 0..n-1.
func Slope(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	idx := make([]float64, len(x))
	for i := range idx {
		idx[i] = float64(i)
	}
	_, beta := stat.LinearRegression(idx, x, nil, false)
	return beta
}

// CoefficientOfVariation returns the population standard deviation over
// the mean, with 1e-10 added to the mean to keep all-zero input finite.
func CoefficientOfVariation(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	return std / (mean + 1e-10)
}

// PopStd returns the population standard deviation, or 0 for empty input.
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopStdDev(x, nil)
}

// Mean returns the arithmetic mean, or 0 for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Tail returns the last n elements of x without copying.
func Tail(x []float64, n int) []float64 {
	if n >= len(x) {
		return x
	}
	return x[len(x)-n:]
}
