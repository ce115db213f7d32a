package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mcmcref/domain/core"
	"mcmcref/ports"
)

// conversionRepository implements the ConversionRegistry interface
type conversionRepository struct {
	db *sqlx.DB
}

// NewConversionRepository creates a new conversion registry backed by Postgres
func NewConversionRepository(db *sqlx.DB) ports.ConversionRegistry {
	return &conversionRepository{db: db}
}

// Migrate creates the conversions table if it does not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS conversions (
		id UUID PRIMARY KEY,
		model TEXT NOT NULL,
		n_chains INT NOT NULL,
		n_draws_per_chain INT NOT NULL,
		diagnostics JSONB NOT NULL,
		checks JSONB NOT NULL,
		forced BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate conversions table: %w", err)
	}
	return nil
}

// Create inserts a new conversion record
func (r *conversionRepository) Create(ctx context.Context, record *ports.ConversionRecord) error {
	diagJSON, err := json.Marshal(record.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	checksJSON, err := json.Marshal(record.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}

	query := `INSERT INTO conversions (
		id, model, n_chains, n_draws_per_chain, diagnostics, checks, forced, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID.String(), record.Model, record.NChains, record.NDrawsPerChain,
		diagJSON, checksJSON, record.Forced, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversion record: %w", err)
	}
	return nil
}

// GetByModel retrieves the most recent conversion record for a model
func (r *conversionRepository) GetByModel(ctx context.Context, model string) (*ports.ConversionRecord, error) {
	query := `SELECT id, model, n_chains, n_draws_per_chain, diagnostics, checks, forced, created_at
		FROM conversions WHERE model = $1 ORDER BY created_at DESC LIMIT 1`

	record, err := scanRecord(r.db.QueryRowxContext(ctx, query, model))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrModelNotFound, model)
		}
		return nil, fmt.Errorf("failed to get conversion record: %w", err)
	}
	return record, nil
}

// List retrieves conversion records ordered by recency
func (r *conversionRepository) List(ctx context.Context, limit, offset int) ([]*ports.ConversionRecord, error) {
	query := `SELECT id, model, n_chains, n_draws_per_chain, diagnostics, checks, forced, created_at
		FROM conversions ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion records: %w", err)
	}
	defer rows.Close()

	var records []*ports.ConversionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*ports.ConversionRecord, error) {
	var record ports.ConversionRecord
	var id string
	var diagJSON, checksJSON []byte

	err := row.Scan(&id, &record.Model, &record.NChains, &record.NDrawsPerChain,
		&diagJSON, &checksJSON, &record.Forced, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.ID = core.ConversionID(id)

	if err := json.Unmarshal(diagJSON, &record.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	if err := json.Unmarshal(checksJSON, &record.Checks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
	}
	return &record, nil
}
