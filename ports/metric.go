package ports

import (
	"encoding/json"
	"fmt"
	"math"
)

// Metric is a float64 that survives JSON round-trips for non-finite values.
// Forced conversions legitimately persist NaN (single-chain diagnostics) and
// +Inf (zero within-chain variance) metrics, which encoding/json rejects as
// bare numbers; they are encoded as the strings "NaN", "Infinity" and
// "-Infinity".
type Metric float64

func (m Metric) MarshalJSON() ([]byte, error) {
	v := float64(m)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "NaN":
			*m = Metric(math.NaN())
		case "Infinity":
			*m = Metric(math.Inf(1))
		case "-Infinity":
			*m = Metric(math.Inf(-1))
		default:
			return fmt.Errorf("invalid metric value: %q", s)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metric(v)
	return nil
}

// ToMetricMap converts nested float64 stats maps for JSON encoding.
func ToMetricMap(stats map[string]map[string]float64) map[string]map[string]Metric {
	out := make(map[string]map[string]Metric, len(stats))
	for param, metrics := range stats {
		entry := make(map[string]Metric, len(metrics))
		for name, v := range metrics {
			entry[name] = Metric(v)
		}
		out[param] = entry
	}
	return out
}
