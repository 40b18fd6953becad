package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/stockcast/stats"
)

const accuracyWindow = 12

// MAPE returns the mean absolute percentage error, in percent, over the last
// window aligned pairs of actual and fitted. It fails when the inputs differ
// in length, or when any pair in the window has a zero actual or a
// non-finite value.
func MAPE(actual, fitted []float64, window int) (float64, error) {
	if len(actual) != len(fitted) {
		return 0, fmt.Errorf("length mismatch: %d actual, %d fitted", len(actual), len(fitted))
	}
	a := stats.Tail(actual, window)
	f := stats.Tail(fitted, window)
	if len(a) == 0 {
		return 0, errors.New("no points to score")
	}

	sum := 0.0
	for i := range a {
		if a[i] == 0 {
			return 0, fmt.Errorf("zero actual at offset %d", i)
		}
		ape := math.Abs((a[i] - f[i]) / a[i])
		if math.IsNaN(ape) || math.IsInf(ape, 0) {
			return 0, fmt.Errorf("non-finite error at offset %d", i)
		}
		sum += ape
	}
	return sum / float64(len(a)) * 100, nil
}
