package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// SalesRepository reads sale events from the sale_events table.
type SalesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// salesFilter renders the shared WHERE clause. Product ids are sent as one
// array parameter so a filter of any size costs a single round trip.
func salesFilter(storeID string, start, end time.Time, productIDs []string) (string, []interface{}) {
	where := "store_id = $1 AND sale_date BETWEEN $2::date AND $3::date"
	args := []interface{}{storeID, domain.FormatDate(start), domain.FormatDate(end)}

	if len(productIDs) > 0 {
		where += " AND product_id = ANY($4::text[])"
		args = append(args, pq.Array(productIDs))
	}
	return where, args
}

func (r *SalesRepository) GetSalesRecords(ctx context.Context, storeID string, start, end time.Time, productIDs []string) ([]domain.SaleEvent, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	where, args := salesFilter(storeID, start, end, productIDs)
	query := `
		SELECT
			store_id, sale_date, product_id,
			COALESCE(product_name, '') AS product_name,
			COALESCE(category, '') AS category,
			quantity, unit_price, discount, revenue
		FROM sale_events
		WHERE ` + where + `
		ORDER BY sale_date, product_id`

	var rows []domain.SaleEvent
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting sale events: %w", err)
	}

	events := rows[:0]
	for _, e := range rows {
		e.Date = domain.DateOf(e.Date)
		if err := e.Validate(); err != nil {
			log.Warn().Err(err).Str("store_id", storeID).Msg("skipping sale event")
			continue
		}
		events = append(events, e)
	}

	return events, nil
}

// LatestSaleDate returns the most recent sale date within [start, end].
func (r *SalesRepository) LatestSaleDate(ctx context.Context, storeID string, start, end time.Time, productIDs []string) (time.Time, bool, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer release()

	where, args := salesFilter(storeID, start, end, productIDs)
	query := `SELECT MAX(sale_date) FROM sale_events WHERE ` + where

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("error getting latest sale date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return domain.DateOf(latest.Time), true, nil
}
