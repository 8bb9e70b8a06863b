package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

const insertSaleQuery = `
	INSERT INTO sale_events (
		store_id, sale_date, product_id, product_name, category,
		quantity, unit_price, discount, revenue
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const upsertStockQuery = `
	INSERT INTO stock_snapshots (
		store_id, snapshot_date, product_id, name, category, supplier,
		current_stock, min_required, lead_time_days, price
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (store_id, snapshot_date, product_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		supplier = EXCLUDED.supplier,
		current_stock = EXCLUDED.current_stock,
		min_required = EXCLUDED.min_required,
		lead_time_days = EXCLUDED.lead_time_days,
		price = EXCLUDED.price`

// csvRows reads a header row and yields each following record keyed by column name.
type csvRows struct {
	reader *csv.Reader
	index  map[string]int
	line   int
}

func newCSVRows(r io.Reader) (*csvRows, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &csvRows{reader: reader, index: index, line: 1}, nil
}

func (r *csvRows) next() ([]string, error) {
	r.line++
	return r.reader.Read()
}

func (r *csvRows) get(record []string, col string) string {
	idx, ok := r.index[col]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (r *csvRows) require(cols ...string) error {
	for _, col := range cols {
		if _, ok := r.index[col]; !ok {
			return fmt.Errorf("CSV is missing column %q", col)
		}
	}
	return nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// nullIfEmpty returns NULL if the string is empty, otherwise returns the string
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseSaleRecord builds a validated sale event from one CSV record. Revenue
// is derived when the column is absent or empty.
func parseSaleRecord(rows *csvRows, record []string) (domain.SaleEvent, error) {
	if rows.get(record, "store_id") == "" {
		return domain.SaleEvent{}, fmt.Errorf("%w: sale without store_id", domain.ErrInvalidRecord)
	}
	date, err := domain.ParseDate(rows.get(record, "date"))
	if err != nil {
		return domain.SaleEvent{}, fmt.Errorf("invalid date: %w", err)
	}
	quantity, err := parseInt(rows.get(record, "quantity"))
	if err != nil {
		return domain.SaleEvent{}, fmt.Errorf("invalid quantity: %w", err)
	}
	unitPrice, err := parseFloat(rows.get(record, "unit_price"))
	if err != nil {
		return domain.SaleEvent{}, fmt.Errorf("invalid unit_price: %w", err)
	}
	discount, err := parseFloat(rows.get(record, "discount"))
	if err != nil {
		return domain.SaleEvent{}, fmt.Errorf("invalid discount: %w", err)
	}

	event, err := domain.NewSaleEvent(rows.get(record, "store_id"), date, rows.get(record, "product_id"), quantity, unitPrice, discount)
	if err != nil {
		return domain.SaleEvent{}, err
	}
	if raw := rows.get(record, "revenue"); raw != "" {
		if event.Revenue, err = strconv.ParseFloat(raw, 64); err != nil {
			return domain.SaleEvent{}, fmt.Errorf("invalid revenue: %w", err)
		}
	}
	event.ProductName = rows.get(record, "product_name")
	event.Category = rows.get(record, "category")
	return event, nil
}

type stockLine struct {
	storeID string
	date    time.Time
	row     domain.StockSnapshotRow
}

func parseStockRecord(rows *csvRows, record []string) (stockLine, error) {
	if rows.get(record, "store_id") == "" {
		return stockLine{}, fmt.Errorf("%w: stock row without store_id", domain.ErrInvalidRecord)
	}
	date, err := domain.ParseDate(rows.get(record, "snapshot_date"))
	if err != nil {
		return stockLine{}, fmt.Errorf("invalid snapshot_date: %w", err)
	}

	ints := map[string]int{}
	for _, col := range []string{"current_stock", "min_required", "lead_time_days"} {
		v, err := parseInt(rows.get(record, col))
		if err != nil {
			return stockLine{}, fmt.Errorf("invalid %s: %w", col, err)
		}
		ints[col] = v
	}
	price, err := parseFloat(rows.get(record, "price"))
	if err != nil {
		return stockLine{}, fmt.Errorf("invalid price: %w", err)
	}

	row, err := domain.NewStockSnapshotRow(rows.get(record, "product_id"), rows.get(record, "name"),
		ints["current_stock"], ints["min_required"], ints["lead_time_days"], price)
	if err != nil {
		return stockLine{}, err
	}
	row.Category = rows.get(record, "category")
	row.Supplier = rows.get(record, "supplier")

	return stockLine{storeID: rows.get(record, "store_id"), date: date, row: row}, nil
}

func seedSalesFile(ctx context.Context, tx *sql.Tx, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := seedSales(ctx, tx, file)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	log.Printf("Seeded %d sale events from %s\n", n, filePath)
	return nil
}

func seedSales(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	rows, err := newCSVRows(r)
	if err != nil {
		return 0, err
	}
	if err := rows.require("store_id", "date", "product_id", "quantity", "unit_price"); err != nil {
		return 0, err
	}

	count := 0
	for {
		record, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("line %d: %w", rows.line, err)
		}

		e, err := parseSaleRecord(rows, record)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", rows.line, err)
		}

		if _, err := tx.ExecContext(ctx, insertSaleQuery,
			e.StoreID, e.Date, e.ProductID, nullIfEmpty(e.ProductName), nullIfEmpty(e.Category),
			e.Quantity, e.UnitPrice, e.Discount, e.Revenue,
		); err != nil {
			return count, fmt.Errorf("line %d: failed to insert sale: %w", rows.line, err)
		}
		count++
	}
	return count, nil
}

func seedStockFile(ctx context.Context, tx *sql.Tx, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := seedStock(ctx, tx, file)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	log.Printf("Seeded %d stock rows from %s\n", n, filePath)
	return nil
}

func seedStock(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	rows, err := newCSVRows(r)
	if err != nil {
		return 0, err
	}
	if err := rows.require("store_id", "snapshot_date", "product_id", "current_stock"); err != nil {
		return 0, err
	}

	count := 0
	for {
		record, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("line %d: %w", rows.line, err)
		}

		line, err := parseStockRecord(rows, record)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", rows.line, err)
		}

		if _, err := tx.ExecContext(ctx, upsertStockQuery,
			line.storeID, line.date, line.row.ProductID, line.row.Name,
			nullIfEmpty(line.row.Category), nullIfEmpty(line.row.Supplier),
			line.row.CurrentStock, line.row.MinRequired, line.row.LeadTimeDays, line.row.Price,
		); err != nil {
			return count, fmt.Errorf("line %d: failed to upsert stock row: %w", rows.line, err)
		}
		count++
	}
	return count, nil
}
