package timeseries

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/stats"
)

// Observation is a single raw stock reading. Date may fall anywhere within
// its month; only the calendar month is significant.
type Observation struct {
	Date  time.Time
	Value float64
}

// Series represents a monthly time series with timestamps and values.
// Timestamps are first-of-month dates in UTC.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month start n months after t.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// MonthsBetween returns the number of whole calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// New creates a monthly series from values starting at January 2000.
func New(values []float64) *Series {
	return NewMonthly(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), values)
}

// NewMonthly creates a series with consecutive monthly timestamps starting at
// the month containing start.
func NewMonthly(start time.Time, values []float64) *Series {
	base := MonthStart(start)
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = base.AddDate(0, i, 0)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// FromObservations builds a series in input order, without any cleaning.
func FromObservations(obs []Observation) *Series {
	s := &Series{
		Timestamps: make([]time.Time, len(obs)),
		Values:     make([]float64, len(obs)),
	}
	for i, o := range obs {
		s.Timestamps[i] = MonthStart(o.Date)
		s.Values[i] = o.Value
	}
	return s
}

// Observations returns the series as a slice of observations.
func (s *Series) Observations() []Observation {
	out := make([]Observation, len(s.Values))
	for i, v := range s.Values {
		out[i] = Observation{Value: v}
		if i < len(s.Timestamps) {
			out[i].Date = s.Timestamps[i]
		}
	}
	return out
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// PopStd calculates the population standard deviation (divisor n).
func (s *Series) PopStd() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.PopStdDev(s.Values, nil)
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Median returns the median value of the series, averaging the two middle
// values when the length is even.
func (s *Series) Median() float64 {
	return stats.Quantile(s.Values, 0.5)
}

// LastTimestamp returns the final timestamp, or the zero time.
func (s *Series) LastTimestamp() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// IsContiguous reports whether consecutive timestamps are exactly one month
// apart.
func (s *Series) IsContiguous() bool {
	for i := 1; i < len(s.Timestamps); i++ {
		if MonthsBetween(s.Timestamps[i-1], s.Timestamps[i]) != 1 {
			return false
		}
	}
	return true
}

// FutureMonths returns the h month starts following the last timestamp.
func (s *Series) FutureMonths(h int) []time.Time {
	if h <= 0 || len(s.Timestamps) == 0 {
		return nil
	}
	last := s.LastTimestamp()
	out := make([]time.Time, h)
	for i := range out {
		out[i] = AddMonths(last, i+1)
	}
	return out
}
