package backend

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"mcmcref/domain/draws"
)

// GonumBackend computes summary statistics with gonum/stat.
type GonumBackend struct{}

// NewGonumBackend creates the gonum-based stats backend.
func NewGonumBackend() *GonumBackend {
	return &GonumBackend{}
}

// Name returns the backend name.
func (b *GonumBackend) Name() string {
	return "gonum"
}

// Stats computes mean, population std and the requested quantiles per
// parameter.
func (b *GonumBackend) Stats(table *draws.Table, params []string, quantiles []float64) (map[string]map[string]float64, error) {
	results := make(map[string]map[string]float64, len(params))
	for _, param := range params {
		col, ok := table.Values[param]
		if !ok {
			return nil, fmt.Errorf("unknown parameter: %s", param)
		}
		if len(col) == 0 {
			return nil, fmt.Errorf("no draws for parameter: %s", param)
		}

		entry := map[string]float64{
			"mean": stat.Mean(col, nil),
			"std":  stat.PopStdDev(col, nil),
		}

		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		for _, q := range quantiles {
			entry[quantileKey(q)] = stat.Quantile(q, stat.LinInterp, sorted, nil)
		}
		results[param] = entry
	}
	return results, nil
}
