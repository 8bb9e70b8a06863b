package main

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSales(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	input := `store_id,date,product_id,product_name,quantity,unit_price,discount
s1,2024-03-01,A,Tea,4,2.50,0.2
s1,2024-03-02,B,,1,10,
`
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sale_events")).
		WithArgs("s1", day, "A", "Tea", nil, 4, 2.5, 0.2, 8.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sale_events")).
		WithArgs("s1", day.AddDate(0, 0, 1), "B", nil, nil, 1, 10.0, 0.0, 10.0).
		WillReturnResult(sqlmock.NewResult(2, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	n, err := seedSales(context.Background(), tx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedSales_RejectsInvalidRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	input := "store_id,date,product_id,quantity,unit_price\ns1,2024-03-01,A,-2,1\n"
	_, err = seedSales(context.Background(), tx, strings.NewReader(input))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRecord))
	assert.Contains(t, err.Error(), "line 2")
}

func TestSeedSales_MissingColumn(t *testing.T) {
	_, err := seedSales(context.Background(), nil, strings.NewReader("store_id,date\n"))
	assert.ErrorContains(t, err, `"product_id"`)
}

func TestSeedStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	input := `store_id,snapshot_date,product_id,name,supplier,current_stock,min_required,lead_time_days,price
s1,2024-03-31,A,Tea,Acme,12,5,4,2.5
`
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_snapshots")).
		WithArgs("s1", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), "A", "Tea", nil, "Acme", 12, 5, 4, 2.5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	n, err := seedStock(context.Background(), tx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseStockRecord_BadNumber(t *testing.T) {
	rows, err := newCSVRows(strings.NewReader("store_id,snapshot_date,product_id,current_stock\n"))
	require.NoError(t, err)

	_, err = parseStockRecord(rows, []string{"s1", "2024-03-31", "A", "many"})
	assert.ErrorContains(t, err, "current_stock")
}
