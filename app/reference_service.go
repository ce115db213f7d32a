package app

import (
	"fmt"

	"mcmcref/adapters/backend"
	"mcmcref/domain/compare"
	"mcmcref/domain/core"
	"mcmcref/domain/diagnostics"
	"mcmcref/domain/draws"
	"mcmcref/domain/pairs"
	"mcmcref/ports"
)

// ReferenceService is the read-side API over the corpus store: model listing,
// summary statistics, diagnostics, draw export and reference comparison.
type ReferenceService struct {
	store ports.Store
}

// NewReferenceService creates a reference service over a corpus store.
func NewReferenceService(store ports.Store) *ReferenceService {
	return &ReferenceService{store: store}
}

// ListModels lists all models in the corpus.
func (s *ReferenceService) ListModels() ([]string, error) {
	return s.store.ListModels()
}

// Stats computes per-parameter summary statistics using the named backend.
// includeDiagnostics merges rhat/ess metrics into each parameter's entry.
func (s *ReferenceService) Stats(model string, params []string, backendName string, includeDiagnostics bool) (map[string]map[string]float64, error) {
	be, err := backend.Get(backendName)
	if err != nil {
		return nil, err
	}

	table, err := s.store.OpenDraws(model, ports.DrawQuery{Params: params})
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = table.Params
	}

	stats, err := be.Stats(table, params, backend.DefaultQuantiles)
	if err != nil {
		return nil, fmt.Errorf("stats for %s: %w", model, err)
	}

	if includeDiagnostics {
		diag, err := s.DiagnosticsFor(model, params)
		if err != nil {
			return nil, err
		}
		for param, record := range diag {
			entry, ok := stats[param]
			if !ok {
				entry = make(map[string]float64)
				stats[param] = entry
			}
			entry["rhat"] = float64(record.Rhat)
			entry["ess_bulk"] = float64(record.ESSBulk)
			entry["ess_tail"] = float64(record.ESSTail)
		}
	}
	return stats, nil
}

// DiagnosticsFor returns per-parameter convergence diagnostics, preferring
// the metrics persisted at conversion time and recomputing from draws only
// when no metadata exists or it carries no diagnostics. Unreadable metadata
// is an error, not a recompute trigger.
func (s *ReferenceService) DiagnosticsFor(model string, params []string) (map[string]ports.DiagRecord, error) {
	meta, err := s.store.ReadMeta(model)
	if err != nil && !core.IsNotFoundError(err) {
		return nil, err
	}
	if err == nil && len(meta.Diagnostics) > 0 {
		if params == nil {
			return meta.Diagnostics, nil
		}
		selected := make(map[string]ports.DiagRecord, len(params))
		for _, p := range params {
			if record, ok := meta.Diagnostics[p]; ok {
				selected[p] = record
			}
		}
		return selected, nil
	}

	table, err := s.store.OpenDraws(model, ports.DrawQuery{Params: params})
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = table.Params
	}

	result := make(map[string]ports.DiagRecord, len(params))
	for _, param := range params {
		chains, err := table.ChainsFor(param)
		if err != nil {
			return nil, err
		}
		diag, err := diagnostics.Compute(chains, diagnostics.DefaultMinChains)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param, err)
		}
		result[param] = ports.DiagRecord{
			Rhat:    ports.Metric(diag.Rhat),
			ESSBulk: ports.Metric(diag.ESSBulk),
			ESSTail: ports.Metric(diag.ESSTail),
		}
	}
	return result, nil
}

// Draws loads a model's draws with optional parameter and chain selection.
func (s *ReferenceService) Draws(model string, params []string, chains []int) (*draws.Draws, error) {
	table, err := s.store.OpenDraws(model, ports.DrawQuery{Params: params, Chains: chains})
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = table.Params
	}
	return &draws.Draws{Table: table, Params: params, Chains: chains}, nil
}

// Meta returns a model's persisted metadata record.
func (s *ReferenceService) Meta(model string) (*ports.Metadata, error) {
	return s.store.ReadMeta(model)
}

// Compare checks actual draws against the reference's summary statistics.
func (s *ReferenceService) Compare(model string, actual map[string][]float64, tolerance float64, metrics []string) (compare.Result, error) {
	params := make([]string, 0, len(actual))
	for p := range actual {
		params = append(params, p)
	}
	refStats, err := s.Stats(model, params, "gonum", false)
	if err != nil {
		return compare.Result{}, err
	}
	actualStats := compare.StatsFromDraws(actual)
	return compare.Stats(refStats, actualStats, tolerance, metrics), nil
}

// StanData returns the Stan data bundled with a reference model.
func (s *ReferenceService) StanData(model string) (map[string]any, error) {
	return s.store.ReadStanData(model)
}

// ModelCode returns the Stan program for a reference model.
func (s *ReferenceService) ModelCode(model string) (string, error) {
	return s.store.ReadStanCode(model)
}

// ListPairs lists the reparametrization pairs available in the corpus.
func (s *ReferenceService) ListPairs() ([]string, error) {
	return pairs.List(s.store.PairRoots())
}

// Pair loads a reparametrization pair bundle by name.
func (s *ReferenceService) Pair(name string) (*pairs.Pair, error) {
	return pairs.Load(name, s.store.PairRoots())
}
