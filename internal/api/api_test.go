package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSales struct {
	last service.SalesRequest
	err  error
}

func (s *stubSales) Analyze(_ context.Context, req service.SalesRequest) (*domain.SalesAnalysisResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SalesAnalysisResult{StoreID: req.StoreID, Status: domain.StatusSuccess}, nil
}

type stubStock struct {
	last service.StockRequest
	err  error
}

func (s *stubStock) Analyze(_ context.Context, req service.StockRequest) (*domain.StockAnalysisResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	critical := domain.ReplenishmentPolicy{StockSnapshotRow: domain.StockSnapshotRow{ProductID: "A"}, IsCritical: true}
	return &domain.StockAnalysisResult{
		StoreID:          req.StoreID,
		AnalysisID:       "run-1",
		Products:         []domain.ReplenishmentPolicy{critical, {StockSnapshotRow: domain.StockSnapshotRow{ProductID: "B"}}},
		CriticalProducts: []domain.ReplenishmentPolicy{critical},
	}, nil
}

func (s *stubStock) AnalyzeProduct(_ context.Context, req service.StockRequest, productID string) (*domain.ReplenishmentPolicy, error) {
	s.last = req
	if productID != "A" {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return &domain.ReplenishmentPolicy{StockSnapshotRow: domain.StockSnapshotRow{ProductID: "A"}, ReorderQuantity: 12}, nil
}

type stubReports struct{}

func (stubReports) ListReports(_ context.Context, storeID, kind string) ([]storage.ObjectInfo, error) {
	return []storage.ObjectInfo{{Key: storage.ReportKey(storeID, kind, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "run-1")}}, nil
}

func newTestRouter(sales *stubSales, stock *stubStock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&Services{Sales: sales, Stock: stock, Reports: stubReports{}}, nil)
}

func doGet(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := doGet(t, newTestRouter(&stubSales{}, &stubStock{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSalesAnalysis_PassesQuery(t *testing.T) {
	sales := &stubSales{}
	r := newTestRouter(sales, &stubStock{})

	rec, body := doGet(t, r, "/api/v1/stores/s1/sales/analysis?end_date=2024-03-31&product_ids=A,%20B&product_id=C")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", body["store_id"])
	assert.Equal(t, "s1", sales.last.StoreID)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), sales.last.EndDate)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, sales.last.ProductIDs)
}

func TestSalesAnalysis_BadDate(t *testing.T) {
	rec, body := doGet(t, newTestRouter(&stubSales{}, &stubStock{}), "/api/v1/stores/s1/sales/analysis?end_date=31-03-2024")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request", body["error"])
	assert.Contains(t, body["details"], "end_date")
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid request", fmt.Errorf("%w: store id is required", domain.ErrInvalidRequest), http.StatusBadRequest},
		{"invalid record", domain.ErrInvalidRecord, http.StatusBadRequest},
		{"upstream", domain.Upstream("get sales records", errors.New("connection refused")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubSales{}, &stubStock{err: tc.err})
			rec, body := doGet(t, r, "/api/v1/stores/s1/stock/analysis")
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}
}

func TestCriticalProducts(t *testing.T) {
	rec, body := doGet(t, newTestRouter(&stubSales{}, &stubStock{}), "/api/v1/stores/s1/stock/critical")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestProductPolicy(t *testing.T) {
	r := newTestRouter(&stubSales{}, &stubStock{})

	rec, body := doGet(t, r, "/api/v1/stores/s1/stock/products/A")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A", body["product_id"])

	rec, body = doGet(t, r, "/api/v1/stores/s1/stock/products/Z")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", body["error"])
}

func TestListReports(t *testing.T) {
	rec, body := doGet(t, newTestRouter(&stubSales{}, &stubStock{}), "/api/v1/stores/s1/reports?kind=stock")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestListReports_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(&Services{Sales: &stubSales{}, Stock: &stubStock{}}, nil)

	rec, _ := doGet(t, r, "/api/v1/stores/s1/reports")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
