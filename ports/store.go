package ports

import (
	"mcmcref/domain/draws"
)

// Metadata is the provenance record persisted alongside converted draws.
type Metadata struct {
	Model          string                `json:"model"`
	Parameters     []string              `json:"parameters"`
	NChains        int                   `json:"n_chains"`
	NDrawsPerChain int                   `json:"n_draws_per_chain"`
	Diagnostics    map[string]DiagRecord `json:"diagnostics"`
	Checks         map[string]bool       `json:"checks"`
	GeneratedDate  string                `json:"generated_date"`
	Source         string                `json:"source"`
	ConversionID   string                `json:"conversion_id,omitempty"`
}

// DiagRecord mirrors diagnostics.Result for serialization without importing
// the engine into every adapter.
type DiagRecord struct {
	Rhat    Metric `json:"rhat"`
	ESSBulk Metric `json:"ess_bulk"`
	ESSTail Metric `json:"ess_tail"`
}

// DrawQuery selects a subset of a model's draws. Nil slices mean "all".
type DrawQuery struct {
	Params []string
	Chains []int
}

// Store defines the corpus storage interface for reference draws and their
// metadata.
type Store interface {
	ListModels() ([]string, error)
	OpenDraws(model string, query DrawQuery) (*draws.Table, error)
	ReadMeta(model string) (*Metadata, error)
	WriteDraws(model string, table *draws.Table) (string, error)
	WriteMeta(model string, meta *Metadata) (string, error)

	// Stan assets bundled with some reference models
	ReadStanData(model string) (map[string]any, error)
	ReadStanCode(model string) (string, error)

	// Reparametrization pair bundles
	PairRoots() []string
}
