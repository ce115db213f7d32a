package backend

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"mcmcref/domain/draws"
)

// MontanaBackend computes summary statistics with montanaflynn/stats.
type MontanaBackend struct{}

// NewMontanaBackend creates the montanaflynn-based stats backend.
func NewMontanaBackend() *MontanaBackend {
	return &MontanaBackend{}
}

// Name returns the backend name.
func (b *MontanaBackend) Name() string {
	return "montana"
}

// Stats computes mean, population std and the requested quantiles per
// parameter.
func (b *MontanaBackend) Stats(table *draws.Table, params []string, quantiles []float64) (map[string]map[string]float64, error) {
	results := make(map[string]map[string]float64, len(params))
	for _, param := range params {
		col, ok := table.Values[param]
		if !ok {
			return nil, fmt.Errorf("unknown parameter: %s", param)
		}

		mean, err := stats.Mean(col)
		if err != nil {
			return nil, fmt.Errorf("mean for %s: %w", param, err)
		}
		std, err := stats.StandardDeviation(col)
		if err != nil {
			return nil, fmt.Errorf("std for %s: %w", param, err)
		}

		entry := map[string]float64{"mean": mean, "std": std}
		for _, q := range quantiles {
			v, err := stats.Percentile(col, q*100)
			if err != nil {
				return nil, fmt.Errorf("quantile %v for %s: %w", q, param, err)
			}
			entry[quantileKey(q)] = v
		}
		results[param] = entry
	}
	return results, nil
}
