// Package memory serves sales history and stock snapshots from JSON files
// loaded into memory. It backs DATA_SOURCE=file and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SalesStore holds sale events per store.
type SalesStore struct {
	mu     sync.RWMutex
	events map[string][]domain.SaleEvent
}

// NewSalesStore validates events and indexes them by store.
func NewSalesStore(events []domain.SaleEvent) (*SalesStore, error) {
	s := &SalesStore{events: make(map[string][]domain.SaleEvent)}
	if err := s.Add(events...); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSalesFile reads a JSON array of sale events.
func LoadSalesFile(path string) (*SalesStore, error) {
	var events []domain.SaleEvent
	if err := readJSON(path, &events); err != nil {
		return nil, err
	}
	return NewSalesStore(events)
}

// Add appends events. Dates are truncated to the day and a missing revenue is
// derived from quantity, price and discount. The batch is all or nothing: an
// invalid event leaves the store unchanged.
func (s *SalesStore) Add(events ...domain.SaleEvent) error {
	batch := make([]domain.SaleEvent, 0, len(events))
	for _, e := range events {
		e.Date = domain.DateOf(e.Date)
		if e.Revenue == 0 {
			e.Revenue = domain.Round2(float64(e.Quantity) * e.UnitPrice * (1 - e.Discount))
		}
		if err := e.Validate(); err != nil {
			return err
		}
		batch = append(batch, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	for _, e := range batch {
		s.events[e.StoreID] = append(s.events[e.StoreID], e)
		touched[e.StoreID] = true
	}
	for store := range touched {
		list := s.events[store]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}
	return nil
}

func (s *SalesStore) GetSalesRecords(ctx context.Context, storeID string, start, end time.Time, productIDs []string) ([]domain.SaleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w := domain.AnalysisWindow{Start: domain.DateOf(start), End: domain.DateOf(end)}
	wanted := idSet(productIDs)

	var out []domain.SaleEvent
	for _, e := range s.events[storeID] {
		if !w.Contains(e.Date) {
			continue
		}
		if wanted != nil && !wanted[e.ProductID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LatestSaleDate returns the most recent sale date within [start, end].
func (s *SalesStore) LatestSaleDate(ctx context.Context, storeID string, start, end time.Time, productIDs []string) (time.Time, bool, error) {
	events, err := s.GetSalesRecords(ctx, storeID, start, end, productIDs)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(events) == 0 {
		return time.Time{}, false, nil
	}
	// events are kept in date order
	return events[len(events)-1].Date, true, nil
}

// StockRecord is one line of the stock file.
type StockRecord struct {
	StoreID string `json:"store_id"`
	domain.StockSnapshotRow
}

// StockStore holds the current stock rows per store.
type StockStore struct {
	mu   sync.RWMutex
	rows map[string][]domain.StockSnapshotRow
}

// NewStockStore validates records and indexes them by store. A later record
// for the same store and product replaces an earlier one.
func NewStockStore(records []StockRecord) (*StockStore, error) {
	s := &StockStore{rows: make(map[string][]domain.StockSnapshotRow)}
	if err := s.Put(records...); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadStockFile reads a JSON array of stock records.
func LoadStockFile(path string) (*StockStore, error) {
	var records []StockRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	return NewStockStore(records)
}

// Put inserts or replaces stock rows. An invalid record leaves the store unchanged.
func (s *StockStore) Put(records ...StockRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		rows := s.rows[r.StoreID]
		replaced := false
		for i := range rows {
			if rows[i].ProductID == r.ProductID {
				rows[i] = r.StockSnapshotRow
				replaced = true
				break
			}
		}
		if !replaced {
			rows = append(rows, r.StockSnapshotRow)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
		s.rows[r.StoreID] = rows
	}
	return nil
}

func (s *StockStore) GetStockSnapshot(ctx context.Context, storeID string) ([]domain.StockSnapshotRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rows[storeID]
	out := make([]domain.StockSnapshotRow, len(rows))
	copy(out, rows)
	return out, nil
}

func idSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
