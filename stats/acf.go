package stats

import (
	"gonum.org/v1/gonum/stat"
)

// ACF calculates the sample autocorrelation function of x.
// Returns ACF values for lags 0 to maxLag, or nil for a constant series.
func ACF(x []float64, maxLag int) []float64 {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(x, nil)
	variance := 0.0
	for _, v := range x {
		diff := v - mean
		variance += diff * diff
	}

	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (x[i] - mean) * (x[i-k] - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// YuleWalker estimates AR(p) coefficients from autocorrelations with the
// Levinson-Durbin recursion. acf must hold lags 0..p.
func YuleWalker(acf []float64, p int) []float64 {
	if p == 0 || len(acf) <= p {
		return make([]float64, p)
	}

	phi := make([]float64, p)
	prev := make([]float64, p)
	v := acf[0]

	for k := 0; k < p; k++ {
		num := acf[k+1]
		for j := 0; j < k; j++ {
			num -= prev[j] * acf[k-j]
		}
		if v == 0 {
			break
		}
		kk := num / v
		phi[k] = kk
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - kk*prev[k-1-j]
		}
		v *= 1 - kk*kk
		copy(prev, phi)
	}

	return phi
}
