// Package timeseries provides the monthly series type shared by every stage
// of the forecasting pipeline.
//
// Timestamps are always first-of-month dates in UTC; MonthStart, AddMonths
// and MonthsBetween do the calendar arithmetic.
//
// # Loading from CSV
//
// LoadCSV reads either year,month,stockonhand rows (the monthly-summary
// export) or date,value rows:
//
//	opts := timeseries.DefaultCSVOptions()
//	opts.ItemFilter = "PARACETAMOL"
//	obs, err := timeseries.LoadCSV("history.csv", opts)
//
// Observations keep their input order and may repeat a month; use package
// preprocess to turn them into a clean Series.
package timeseries
