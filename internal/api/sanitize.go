package api

import (
	"math"

	"github.com/modelhub/mmm-engine/internal/sanitize"
)

// coefficientField applies spec §6's coefficients/std_errors/t_stats/p_values
// specific rule (NaN -> 0, +Inf -> 1, -Inf -> -1), distinct from the general
// sanitization contract (NaN -> 0, +Inf/-Inf -> max/min finite) that applies
// to every other numeric field in the response.
func coefficientField(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return 1
	case math.IsInf(v, -1):
		return -1
	default:
		return v
	}
}

func coefficientMap(names []string, values []float64) map[string]any {
	out := make(map[string]any, len(names))
	for i, name := range names {
		out[name] = coefficientField(values[i])
	}
	return out
}

func sanitizedScalar(v float64) any { return sanitize.Float(v) }

func sanitizedSeries(xs []float64) []any {
	out := make([]any, len(xs))
	for i, v := range xs {
		out[i] = sanitize.Float(v)
	}
	return out
}

func sanitizedSeriesMap(m map[string][]float64) map[string][]any {
	out := make(map[string][]any, len(m))
	for k, v := range m {
		out[k] = sanitizedSeries(v)
	}
	return out
}

func sanitizedScalarMap(m map[string]float64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = sanitize.Float(v)
	}
	return out
}
