// Package stockcast forecasts monthly stock-on-hand for inventory items.
//
// A forecast runs in four stages. Raw readings are collapsed to one value per
// calendar month, clipped to their interquartile fences and reindexed onto a
// gap-free monthly grid (package preprocess). The cleaned series is profiled
// for trend, volatility and seasonality (package pattern). Competing model
// families are then fitted concurrently (package ensemble): SARIMA when a
// yearly cycle is present, a grid of ARIMA orders, and additive Holt-Winters.
// The candidate with the lowest AIC whose forecast is plausible next to
// recent history wins; when no family produces a candidate, a naive
// trend-continuation forecast is returned instead.
//
// # Quick Start
//
//	obs, _ := timeseries.LoadCSV("history.csv", timeseries.DefaultCSVOptions())
//	f := forecast.New(forecast.DefaultOptions())
//	res, err := f.Forecast(ctx, "PARACETAMOL", obs, 6)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range res.Predictions {
//	    fmt.Println(p.Date.Format("2006-01"), p.Forecast, p.Lower, p.Upper)
//	}
//
// # Packages
//
//   - timeseries: monthly series, observations and CSV loading
//   - stats: ACF, decomposition and descriptive statistics
//   - preprocess: monthly collapse, outlier clipping and gap filling
//   - pattern: trend, volatility and seasonality detection
//   - arima, sarima, ets: the model families
//   - ensemble: concurrent fitting, ranking and fallback
//   - forecast: the pipeline entry point and result assembly
//
// The HTTP service and CLI live under cmd/stockcast and internal/.
package stockcast
