package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/rs/zerolog/log"
)

// StockRepository reads the latest stock snapshot of a store.
type StockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) GetStockSnapshot(ctx context.Context, storeID string) ([]domain.StockSnapshotRow, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT
			product_id, name, current_stock, min_required, lead_time_days, price,
			COALESCE(category, '') AS category,
			COALESCE(supplier, '') AS supplier
		FROM stock_snapshots
		WHERE store_id = $1
		  AND snapshot_date = (SELECT MAX(snapshot_date) FROM stock_snapshots WHERE store_id = $1)
		ORDER BY product_id`

	var rows []domain.StockSnapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, storeID); err != nil {
		return nil, fmt.Errorf("error getting stock snapshot: %w", err)
	}

	snapshot := rows[:0]
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			log.Warn().Err(err).Str("store_id", storeID).Msg("skipping stock row")
			continue
		}
		snapshot = append(snapshot, row)
	}

	return snapshot, nil
}
