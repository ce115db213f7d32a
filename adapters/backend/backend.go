package backend

import (
	"fmt"

	"mcmcref/domain/core"
	"mcmcref/ports"
)

// DefaultQuantiles are the quantiles reported by the stats surface.
var DefaultQuantiles = []float64{0.05, 0.5, 0.95}

// Get resolves a stats backend by name.
func Get(name string) (ports.StatsBackend, error) {
	switch name {
	case "gonum":
		return NewGonumBackend(), nil
	case "montana":
		return NewMontanaBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownBackend, name)
	}
}

// Names lists the registered backend names.
func Names() []string {
	return []string{"gonum", "montana"}
}

// quantileKey maps a quantile to its stats-record key, e.g. 0.05 -> "q5".
func quantileKey(q float64) string {
	return fmt.Sprintf("q%d", int(q*100))
}
