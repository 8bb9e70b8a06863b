package main

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSales struct{}

func (stubSales) Analyze(_ context.Context, req service.SalesRequest) (*domain.SalesAnalysisResult, error) {
	return &domain.SalesAnalysisResult{AnalysisID: "sales-1", StoreID: req.StoreID, Status: domain.StatusSuccess}, nil
}

type stubStock struct{}

func (stubStock) Analyze(_ context.Context, req service.StockRequest) (*domain.StockAnalysisResult, error) {
	return &domain.StockAnalysisResult{AnalysisID: "stock-1", StoreID: req.StoreID}, nil
}

type recordingExporter struct {
	sales []string
	stock []string
	err   error
}

func (r *recordingExporter) ExportSales(_ context.Context, result *domain.SalesAnalysisResult) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sales = append(r.sales, result.AnalysisID)
	return "reports/" + result.StoreID + "/sales/" + result.AnalysisID + ".json", nil
}

func (r *recordingExporter) ExportStock(_ context.Context, result *domain.StockAnalysisResult) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.stock = append(r.stock, result.AnalysisID)
	return "reports/" + result.StoreID + "/stock/" + result.AnalysisID + ".json", nil
}

func TestAnalyzeSales_Exports(t *testing.T) {
	exp := &recordingExporter{}

	res, err := analyzeSales(context.Background(), stubSales{}, exp, service.SalesRequest{StoreID: "s1"})

	require.NoError(t, err)
	assert.Equal(t, "s1", res.StoreID)
	assert.Equal(t, []string{"sales-1"}, exp.sales)
	assert.Empty(t, exp.stock)
}

func TestAnalyzeSales_WithoutExporter(t *testing.T) {
	res, err := analyzeSales(context.Background(), stubSales{}, nil, service.SalesRequest{StoreID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "sales-1", res.AnalysisID)
}

func TestAnalyzeStock_Exports(t *testing.T) {
	exp := &recordingExporter{}

	_, err := analyzeStock(context.Background(), stubStock{}, exp, service.StockRequest{StoreID: "s1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"stock-1"}, exp.stock)
}

func TestAnalyze_ExportFailure(t *testing.T) {
	exp := &recordingExporter{err: errors.New("bucket unavailable")}

	_, err := analyzeSales(context.Background(), stubSales{}, exp, service.SalesRequest{StoreID: "s1"})
	assert.ErrorContains(t, err, "bucket unavailable")

	_, err = analyzeStock(context.Background(), stubStock{}, exp, service.StockRequest{StoreID: "s1"})
	assert.ErrorContains(t, err, "bucket unavailable")
}
