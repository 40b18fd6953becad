// Package sarima implements Seasonal ARIMA (SARIMA) models for monthly
// series with a yearly cycle.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model is an arima.Model with a seasonal order:
//
//	// SARIMA(1,1,1)(1,1,1)[12]
//	model := sarima.New(1, 1, 1, 1, 1, 1, 12)
//	if err := model.Fit(ctx, values); err != nil {
//	    return err
//	}
//	point, lower, upper, _ := model.PredictWithInterval(3, 0.95)
//
// Seasonal models need at least D*m + d + p + k + 1 observations, where k
// counts the estimated coefficients, so every order fits two years of data.
package sarima
