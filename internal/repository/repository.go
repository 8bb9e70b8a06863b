package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SalesHistorySource supplies sale events. Implementations return only events
// dated within [start, end]; an empty productIDs means every product.
type SalesHistorySource interface {
	GetSalesRecords(ctx context.Context, storeID string, start, end time.Time, productIDs []string) ([]domain.SaleEvent, error)
}

// StockSnapshotSource supplies the current stock position of a store. An empty
// result is valid.
type StockSnapshotSource interface {
	GetStockSnapshot(ctx context.Context, storeID string) ([]domain.StockSnapshotRow, error)
}

// LatestSaleDateFinder is an optional capability of a SalesHistorySource that
// can locate the most recent sale date without returning the events.
type LatestSaleDateFinder interface {
	LatestSaleDate(ctx context.Context, storeID string, start, end time.Time, productIDs []string) (time.Time, bool, error)
}
