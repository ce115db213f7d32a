package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mcmcref/adapters/archive"
	"mcmcref/domain/core"
	"mcmcref/domain/diagnostics"
	"mcmcref/domain/draws"
	"mcmcref/domain/quality"
	"mcmcref/internal/logger"
	"mcmcref/ports"
)

// ConvertResult reports where a conversion landed and the metadata written.
type ConvertResult struct {
	DrawsPath string
	MetaPath  string
	Meta      *ports.Metadata
}

// ConvertService converts raw MCMC archives into quality-gated corpus
// entries: read, diagnose every parameter, gate, persist.
type ConvertService struct {
	store    ports.Store
	registry ports.ConversionRegistry
	policy   quality.Policy
	log      *logger.Logger
}

// NewConvertService creates a convert service. registry may be nil when no
// conversion database is configured.
func NewConvertService(store ports.Store, registry ports.ConversionRegistry, policy quality.Policy, log *logger.Logger) *ConvertService {
	if log == nil {
		log = logger.Default
	}
	return &ConvertService{store: store, registry: registry, policy: policy, log: log}
}

// ConvertFile runs the full conversion pipeline for one input archive.
// force lowers the diagnostics chain requirement to 1 and downgrades quality
// violations from fatal to annotated metadata; it exists for intentionally
// pathological reference fixtures, not for weakening production defaults.
func (s *ConvertService) ConvertFile(ctx context.Context, inputPath, name string, force bool) (*ConvertResult, error) {
	reader, err := archive.NewDataReader(inputPath)
	if err != nil {
		return nil, err
	}
	table, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	nChains, nDraws := table.CountChainsDraws()
	s.log.Info("converting %s: %d chains x %d draws, %d parameters", name, nChains, nDraws, len(table.Params))

	minChains := s.policy.MinChains
	if force {
		minChains = 1
	}

	diag, err := s.computeDiagnostics(ctx, table, minChains)
	if err != nil {
		return nil, fmt.Errorf("diagnostics for %s: %w", name, err)
	}

	checks := quality.ComputeChecks(nChains, nDraws, diag, s.policy)
	if !force {
		if err := quality.Enforce(checks); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	} else if failed := checks.Failing(); len(failed) > 0 {
		s.log.Warn("model %s converted with failing checks: %v", name, failed)
	}

	conversionID := core.ConversionID(core.NewID())
	meta := &ports.Metadata{
		Model:          name,
		Parameters:     table.Params,
		NChains:        nChains,
		NDrawsPerChain: nDraws,
		Diagnostics:    toDiagRecords(diag),
		Checks:         checks,
		GeneratedDate:  time.Now().Format("2006-01-02"),
		Source:         "converted",
		ConversionID:   conversionID.String(),
	}

	drawsPath, err := s.store.WriteDraws(name, table)
	if err != nil {
		return nil, fmt.Errorf("failed to persist draws for %s: %w", name, err)
	}
	metaPath, err := s.store.WriteMeta(name, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to persist metadata for %s: %w", name, err)
	}

	if s.registry != nil {
		record := &ports.ConversionRecord{
			ID:             conversionID,
			Model:          name,
			NChains:        nChains,
			NDrawsPerChain: nDraws,
			Diagnostics:    meta.Diagnostics,
			Checks:         checks,
			Forced:         force,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.registry.Create(ctx, record); err != nil {
			// The filesystem metadata is the source of truth; a registry
			// outage must not fail the conversion.
			s.log.Warn("failed to record conversion for %s: %v", name, err)
		}
	}

	return &ConvertResult{DrawsPath: drawsPath, MetaPath: metaPath, Meta: meta}, nil
}

// computeDiagnostics fans out one task per parameter. Each parameter's
// computation is independent, so bounded parallelism needs no ordering.
func (s *ConvertService) computeDiagnostics(ctx context.Context, table *draws.Table, minChains int) (map[string]diagnostics.Result, error) {
	params := table.Params

	var mu sync.Mutex
	results := make(map[string]diagnostics.Result, len(params))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, param := range params {
		param := param
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chains, err := table.ChainsFor(param)
			if err != nil {
				return err
			}
			result, err := diagnostics.Compute(chains, minChains)
			if err != nil {
				return fmt.Errorf("parameter %s: %w", param, err)
			}
			mu.Lock()
			results[param] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func toDiagRecords(diag map[string]diagnostics.Result) map[string]ports.DiagRecord {
	out := make(map[string]ports.DiagRecord, len(diag))
	for param, result := range diag {
		out[param] = ports.DiagRecord{
			Rhat:    ports.Metric(result.Rhat),
			ESSBulk: ports.Metric(result.ESSBulk),
			ESSTail: ports.Metric(result.ESSTail),
		}
	}
	return out
}
