// Package pattern classifies a cleaned series by trend, volatility and
// seasonality.
package pattern

import (
	"math"

	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

// Direction is the sign of a detected trend.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// Volatility buckets the coefficient of variation.
type Volatility string

const (
	Low    Volatility = "low"
	Medium Volatility = "medium"
	High   Volatility = "high"
)

const (
	minPoints         = 4
	minSeasonalPoints = 12
	trendThreshold    = 0.05
	highCV            = 0.5
	mediumCV          = 0.2
	seasonalThreshold = 0.1
	maxSeasonalPeriod = 12
)

// Profile describes a series. It is computed once and never modified.
type Profile struct {
	HasTrend       bool       `json:"has_trend"`
	TrendDirection Direction  `json:"trend_direction"`
	Volatility     Volatility `json:"volatility"`
	HasSeasonality bool       `json:"has_seasonality"`
}

// Default is the profile reported for series too short to classify.
func Default() Profile {
	return Profile{TrendDirection: Stable, Volatility: Low}
}

// Detect classifies s. Series shorter than four points get Default.
//
// A trend is present when the least-squares slope exceeds 5% of the mean in
// magnitude. Volatility is high above a coefficient of variation of 0.5 and
// medium above 0.2. Seasonality needs twelve points and is present when the
// seasonal component of an additive decomposition with period
// min(12, n/2) has more than a tenth of the series' spread. A failed
// decomposition counts as no seasonality.
func Detect(s *timeseries.Series) Profile {
	p := Default()
	y := s.Values
	n := len(y)
	if n < minPoints {
		return p
	}

	mean := stats.Mean(y)
	slope := stats.Slope(y)
	if math.Abs(slope) > trendThreshold*mean {
		p.HasTrend = true
		if slope > 0 {
			p.TrendDirection = Increasing
		} else {
			p.TrendDirection = Decreasing
		}
	}

	switch cv := stats.CoefficientOfVariation(y); {
	case cv > highCV:
		p.Volatility = High
	case cv > mediumCV:
		p.Volatility = Medium
	}

	if n >= minSeasonalPoints {
		period := min(maxSeasonalPeriod, n/2)
		if d, err := stats.Decompose(y, period); err == nil {
			p.HasSeasonality = d.SeasonalStrength(y) > seasonalThreshold
		}
	}

	return p
}
