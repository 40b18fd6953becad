// Package arima implements AutoRegressive Integrated Moving Average (ARIMA)
// models, optionally with a multiplicative seasonal part.
//
// An ARIMA(p,d,q)(P,D,Q)[m] model combines:
//   - AR(p) and seasonal AR(P) terms at lags 1..p and m..P*m
//   - d regular and D seasonal differences
//   - MA(q) and seasonal MA(Q) terms
//
// Coefficients are estimated by conditional sum of squares with Nelder-Mead.
// Stationarity and invertibility are not enforced, so near-unit-root stock
// series still fit. The mean is estimated only when no differencing is
// applied. The log-likelihood behind AIC is scaled to the full series length,
// so scores compare across differencing orders and model families.
//
// # Basic Usage
//
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(ctx, values); err != nil {
//	    return err
//	}
//	fc, _ := model.Forecast(6, 0.95)
//	fmt.Printf("AIC: %.2f next: %.2f [%.2f, %.2f]\n",
//	    model.AIC, fc.Point[0], fc.Lower[0], fc.Upper[0])
//
// The context passed to Fit bounds the optimizer; a cancelled or expired
// context aborts the fit with the context's error.
//
// # Fitted Values
//
// FittedValues returns one-step predictions on the original scale. The
// first d + D*m entries are NaN because differencing consumes them, and so
// are the p + P*m values the recursion conditions on (only p when the
// series is too short to condition on the seasonal lags).
package arima
