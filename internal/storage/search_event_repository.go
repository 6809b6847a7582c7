package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aghostraa/oli-frontend/internal/models"
)

// SearchEventRepository stores executed searches in ClickHouse
type SearchEventRepository struct {
	db *ClickHouseDB
}

// NewSearchEventRepository creates a new search event repository
func NewSearchEventRepository(db *ClickHouseDB) *SearchEventRepository {
	return &SearchEventRepository{db: db}
}

// Record inserts one search event, filling ID and CreatedAt when unset
func (r *SearchEventRepository) Record(ctx context.Context, event *models.SearchEvent) error {
	return r.RecordBatch(ctx, []*models.SearchEvent{event})
}

// RecordBatch inserts events in a single ClickHouse batch. IDs and
// timestamps are filled in place when unset.
func (r *SearchEventRepository) RecordBatch(ctx context.Context, events []*models.SearchEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.db.conn.PrepareBatch(ctx, `
		INSERT INTO search_events (
			id, kind, tag_id, tag_value, chain_id, address,
			result_count, group_count, duration_ms, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare search event batch: %w", err)
	}

	now := time.Now().UTC()
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}

		id, err := uuid.Parse(event.ID)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("invalid search event id %q: %w", event.ID, err)
		}

		if err := batch.Append(
			id,
			string(event.Kind),
			event.TagID,
			event.TagValue,
			event.ChainID,
			event.Address,
			event.ResultCount,
			event.GroupCount,
			event.DurationMs,
			event.CreatedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append search event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert %d search events: %w", len(events), err)
	}
	return nil
}

// TopTags returns the most searched tags since the given time
func (r *SearchEventRepository) TopTags(ctx context.Context, since time.Time, limit int) ([]models.TagSearchCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT tag_id, count() AS searches
		FROM search_events
		WHERE kind = 'tag' AND tag_id != '' AND created_at >= ?
		GROUP BY tag_id
		ORDER BY searches DESC, tag_id ASC
		LIMIT ?
	`

	var out []models.TagSearchCount
	if err := r.db.conn.Select(ctx, &out, query, since.UTC(), uint64(limit)); err != nil {
		return nil, fmt.Errorf("failed to query top tags: %w", err)
	}
	if out == nil {
		out = []models.TagSearchCount{}
	}
	return out, nil
}

// CountSince returns how many searches of kind ran since the given time
func (r *SearchEventRepository) CountSince(ctx context.Context, kind string, since time.Time) (uint64, error) {
	var count uint64
	row := r.db.conn.QueryRow(ctx,
		`SELECT count() FROM search_events WHERE kind = ? AND created_at >= ?`,
		kind, since.UTC(),
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count search events: %w", err)
	}
	return count, nil
}
