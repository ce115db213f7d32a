package ports

import (
	"context"
	"time"

	"mcmcref/domain/core"
)

// ConversionRecord is one conversion job's provenance row.
type ConversionRecord struct {
	ID             core.ConversionID
	Model          string
	NChains        int
	NDrawsPerChain int
	Diagnostics    map[string]DiagRecord
	Checks         map[string]bool
	Forced         bool
	CreatedAt      time.Time
}

// ConversionRegistry defines the interface for conversion provenance storage.
// The filesystem metadata remains the source of truth; the registry exists
// for corpus-wide querying.
type ConversionRegistry interface {
	Create(ctx context.Context, record *ConversionRecord) error
	GetByModel(ctx context.Context, model string) (*ConversionRecord, error)
	List(ctx context.Context, limit, offset int) ([]*ConversionRecord, error)
}
