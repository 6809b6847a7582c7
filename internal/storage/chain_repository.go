package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/models"
)

// ChainRepository stores the chain reference table
type ChainRepository struct {
	db *PostgresDB
}

// NewChainRepository creates a new chain repository
func NewChainRepository(db *PostgresDB) *ChainRepository {
	return &ChainRepository{db: db}
}

// List returns every chain ordered by numeric id, non-numeric ids last
func (r *ChainRepository) List(ctx context.Context) ([]models.Chain, error) {
	query := `
		SELECT id, caip2, name, short_name, updated_at
		FROM chains
		ORDER BY (id ~ '^[0-9]+$') DESC,
		         CASE WHEN id ~ '^[0-9]+$' THEN id::numeric END,
		         id
	`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}

	list, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[models.Chain])
	if err != nil {
		return nil, fmt.Errorf("failed to scan chains: %w", err)
	}
	return list, nil
}

// Upsert inserts a chain or updates it when the id already exists
func (r *ChainRepository) Upsert(ctx context.Context, chain *models.Chain) error {
	if strings.TrimSpace(chain.ID) == "" || strings.TrimSpace(chain.CAIP2) == "" {
		return fmt.Errorf("chain id and caip2 are required")
	}

	query := `
		INSERT INTO chains (id, caip2, name, short_name, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			caip2 = EXCLUDED.caip2,
			name = EXCLUDED.name,
			short_name = EXCLUDED.short_name,
			updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.pool.QueryRow(ctx, query,
		chain.ID,
		strings.ToLower(strings.TrimSpace(chain.CAIP2)),
		chain.Name,
		chain.ShortName,
	).Scan(&chain.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chain %s: %w", chain.ID, err)
	}
	return nil
}

// SeedDefaults upserts descriptors in one batch and returns how many were written
func (r *ChainRepository) SeedDefaults(ctx context.Context, descriptors []chains.Descriptor) (int, error) {
	batch := &pgx.Batch{}
	for _, d := range descriptors {
		batch.Queue(`
			INSERT INTO chains (id, caip2, name, short_name, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE SET
				caip2 = EXCLUDED.caip2,
				name = EXCLUDED.name,
				short_name = EXCLUDED.short_name,
				updated_at = NOW()
		`, d.ID, strings.ToLower(d.CAIP2), d.Name, d.ShortName)
	}

	results := r.db.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range descriptors {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to seed chain %s: %w", descriptors[i].ID, err)
		}
	}
	return len(descriptors), nil
}

// LoadRegistry builds a chain registry from the table. An empty table
// yields an error so the caller can fall back to the built-in list.
func (r *ChainRepository) LoadRegistry(ctx context.Context) (*chains.Registry, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chains table is empty")
	}
	return chains.NewRegistry(ChainsToDescriptors(rows))
}

// ChainsToDescriptors converts stored rows to registry descriptors
func ChainsToDescriptors(rows []models.Chain) []chains.Descriptor {
	out := make([]chains.Descriptor, len(rows))
	for i, row := range rows {
		out[i] = chains.Descriptor{
			ID:        row.ID,
			CAIP2:     row.CAIP2,
			Name:      row.Name,
			ShortName: row.ShortName,
		}
	}
	return out
}
