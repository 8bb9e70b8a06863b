package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	today = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	clock = func() time.Time { return today.Add(9 * time.Hour) }
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = clock
	return opts
}

// countingSource records every fetch made through it.
type countingSource struct {
	inner *memory.SalesStore
	err   error
	calls [][]string
}

func (c *countingSource) GetSalesRecords(ctx context.Context, storeID string, start, end time.Time, productIDs []string) ([]domain.SaleEvent, error) {
	c.calls = append(c.calls, productIDs)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.GetSalesRecords(ctx, storeID, start, end, productIDs)
}

// dailySales builds one event per day for the last days days ending today.
func dailySales(storeID, productID string, days, qty int, price float64) []domain.SaleEvent {
	events := make([]domain.SaleEvent, 0, days)
	for i := 0; i < days; i++ {
		events = append(events, domain.SaleEvent{
			StoreID:   storeID,
			Date:      today.AddDate(0, 0, -i),
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	return events
}

func salesSource(t *testing.T, events ...[]domain.SaleEvent) *countingSource {
	t.Helper()
	var all []domain.SaleEvent
	for _, e := range events {
		all = append(all, e...)
	}
	store, err := memory.NewSalesStore(all)
	require.NoError(t, err)
	return &countingSource{inner: store}
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetSales(ctx context.Context, key cache.Key) (*domain.SalesAnalysisResult, bool, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*domain.SalesAnalysisResult)
	return res, args.Bool(1), args.Error(2)
}

func (m *mockCache) SetSales(ctx context.Context, key cache.Key, result *domain.SalesAnalysisResult) error {
	return m.Called(ctx, key, result).Error(0)
}

func (m *mockCache) GetStock(ctx context.Context, key cache.Key) (*domain.StockAnalysisResult, bool, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*domain.StockAnalysisResult)
	return res, args.Bool(1), args.Error(2)
}

func (m *mockCache) SetStock(ctx context.Context, key cache.Key, result *domain.StockAnalysisResult) error {
	return m.Called(ctx, key, result).Error(0)
}

func (m *mockCache) Close() error {
	return nil
}

func (m *mockCache) InvalidateStore(ctx context.Context, storeID string) error {
	return m.Called(ctx, storeID).Error(0)
}

var errBoom = errors.New("boom")
