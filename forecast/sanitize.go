package forecast

import (
	"math"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Map renders the result with the field names of the prediction API.
// Forecast and history values are rounded to two decimals. The output is
// sanitized.
func (r *Result) Map() map[string]any {
	history := make([]any, len(r.History))
	for i, h := range r.History {
		history[i] = map[string]any{
			"date":        h.Date.Format(dateLayout),
			"stockonhand": round2(h.Value),
		}
	}

	predictions := make([]any, len(r.Predictions))
	for i, p := range r.Predictions {
		predictions[i] = map[string]any{
			"date":     p.Date.Format(dateLayout),
			"forecast": round2(p.Forecast),
			"lower_ci": round2(p.Lower),
			"upper_ci": round2(p.Upper),
		}
	}

	candidates := make([]any, len(r.Candidates))
	for i, c := range r.Candidates {
		candidates[i] = map[string]any{
			"family":    c.Family,
			"order":     c.Order,
			"aic":       c.AIC,
			"plausible": c.Plausible,
		}
	}

	out := map[string]any{
		"item_code":       r.ItemCode,
		"rows_used":       r.RowsUsed,
		"model_order":     r.ModelOrder,
		"model_family":    r.Family,
		"selection_state": r.State.String(),
		"accuracy_mape":   r.AccuracyMAPE,
		"history":         history,
		"predictions":     predictions,
		"patterns": map[string]any{
			"has_trend":       r.Profile.HasTrend,
			"trend_direction": string(r.Profile.TrendDirection),
			"volatility":      string(r.Profile.Volatility),
			"has_seasonality": r.Profile.HasSeasonality,
		},
		"candidates": candidates,
	}
	return Sanitize(out).(map[string]any)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sanitize returns a copy of v in which every NaN or infinite float is
// replaced by nil, descending through maps, slices and pointers to floats.
// Other values are returned unchanged.
func Sanitize(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return t
	case *float64:
		if t == nil {
			return nil
		}
		return Sanitize(*t)
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = Sanitize(f)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Sanitize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Sanitize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Sanitize(e)
		}
		return out
	default:
		return v
	}
}
