package ensemble

import (
	"math"

	"github.com/sartorproj/stockcast/stats"
)

const (
	naiveWindow  = 6
	recentWindow = 12
	naiveZ       = 1.96
	floorValue   = 1.0
)

// Naive extrapolates the slope of the last six points from the last value,
// floored at 1. Bands are +/-1.96 standard deviations of the last twelve
// points, the lower one floored at 1.
func Naive(y []float64, horizon int) *Candidate {
	last := stats.Tail(y, naiveWindow)
	trend := 0.0
	if len(last) > 0 {
		trend = (last[len(last)-1] - last[0]) / float64(len(last))
	}
	end := 0.0
	if len(y) > 0 {
		end = y[len(y)-1]
	}
	sd := stats.PopStd(stats.Tail(y, recentWindow))

	c := &Candidate{
		Family:   FamilyNaive,
		Order:    OrderNaive,
		Forecast: make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
		AIC:      math.Inf(1),
	}
	for i := range c.Forecast {
		f := math.Max(end+trend*float64(i+1), floorValue)
		c.Forecast[i] = f
		c.Lower[i] = math.Max(f-naiveZ*sd, floorValue)
		c.Upper[i] = f + naiveZ*sd
	}
	return c
}

// Plausible reports whether the mean forecast lies strictly between zero and
// three times the mean of the last twelve observations.
func Plausible(c *Candidate, y []float64) bool {
	if len(c.Forecast) == 0 {
		return false
	}
	m := stats.Mean(c.Forecast)
	recent := stats.Mean(stats.Tail(y, recentWindow))
	return m > 0 && m < 3*recent
}
