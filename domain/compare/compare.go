package compare

import (
	"fmt"
	"math"
)

// DefaultTolerance is the relative error accepted when checking actual draws
// against a reference.
const DefaultTolerance = 0.15

// DefaultMetrics are the summary statistics compared by default.
var DefaultMetrics = []string{"mean", "std"}

// ParamResult is the comparison outcome for one parameter/metric pair.
type ParamResult struct {
	Ref      float64 `json:"ref"`
	Actual   float64 `json:"actual"`
	RelError float64 `json:"rel_error"`
	Passed   bool    `json:"passed"`
}

// Result aggregates all parameter/metric comparisons.
type Result struct {
	Passed   bool                              `json:"passed"`
	Details  map[string]map[string]ParamResult `json:"details"`
	Failures []string                          `json:"failures"`
}

// Stats compares reference summary statistics against statistics computed
// from actual draws. A metric passes when its relative error (denominator
// floored at 1e-12) is within tolerance; parameters missing from actual are
// failures.
func Stats(refStats, actualStats map[string]map[string]float64, tolerance float64, metrics []string) Result {
	details := make(map[string]map[string]ParamResult)
	var failures []string

	for param, ref := range refStats {
		actual, ok := actualStats[param]
		if !ok {
			failures = append(failures, fmt.Sprintf("missing param: %s", param))
			continue
		}
		paramDetails := make(map[string]ParamResult)
		for _, metric := range metrics {
			refVal := metricOrNaN(ref, metric)
			actualVal := metricOrNaN(actual, metric)
			denom := math.Max(math.Abs(refVal), 1e-12)
			relError := math.Abs(actualVal-refVal) / denom
			passed := relError <= tolerance
			if !passed {
				failures = append(failures, fmt.Sprintf("%s.%s rel_error=%.3g > %v", param, metric, relError, tolerance))
			}
			paramDetails[metric] = ParamResult{
				Ref:      refVal,
				Actual:   actualVal,
				RelError: relError,
				Passed:   passed,
			}
		}
		details[param] = paramDetails
	}

	return Result{
		Passed:   len(failures) == 0,
		Details:  details,
		Failures: failures,
	}
}

// BasicStats computes mean and population standard deviation for one
// parameter's pooled draws.
func BasicStats(values []float64) map[string]float64 {
	n := len(values)
	if n == 0 {
		return map[string]float64{"mean": math.NaN(), "std": math.NaN()}
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	return map[string]float64{"mean": mean, "std": math.Sqrt(variance)}
}

// StatsFromDraws computes BasicStats per parameter.
func StatsFromDraws(actual map[string][]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(actual))
	for param, values := range actual {
		out[param] = BasicStats(values)
	}
	return out
}

func metricOrNaN(stats map[string]float64, metric string) float64 {
	if v, ok := stats[metric]; ok {
		return v
	}
	return math.NaN()
}
