package ports

import (
	"mcmcref/domain/draws"
)

// StatsBackend computes per-parameter summary statistics from a draws table.
// Backends are pluggable so hosts can trade implementation for accuracy or
// speed without touching callers.
type StatsBackend interface {
	Name() string
	Stats(table *draws.Table, params []string, quantiles []float64) (map[string]map[string]float64, error)
}
