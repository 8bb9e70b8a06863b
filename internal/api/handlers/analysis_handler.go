package handlers

import (
	"context"
	"net/http"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/gin-gonic/gin"
)

type SalesAnalyzer interface {
	Analyze(ctx context.Context, req service.SalesRequest) (*domain.SalesAnalysisResult, error)
}

type StockAnalyzer interface {
	Analyze(ctx context.Context, req service.StockRequest) (*domain.StockAnalysisResult, error)
	AnalyzeProduct(ctx context.Context, req service.StockRequest, productID string) (*domain.ReplenishmentPolicy, error)
}

type ReportLister interface {
	ListReports(ctx context.Context, storeID, kind string) ([]storage.ObjectInfo, error)
}

type AnalysisHandler struct {
	sales   SalesAnalyzer
	stock   StockAnalyzer
	reports ReportLister
}

// NewAnalysisHandler builds the handler. reports may be nil when export is disabled.
func NewAnalysisHandler(sales SalesAnalyzer, stock StockAnalyzer, reports ReportLister) *AnalysisHandler {
	return &AnalysisHandler{sales: sales, stock: stock, reports: reports}
}

// GetSalesAnalysis handles GET /stores/:store/sales/analysis.
func (h *AnalysisHandler) GetSalesAnalysis(c *gin.Context) {
	end, err := endDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.sales.Analyze(c.Request.Context(), service.SalesRequest{
		StoreID:    c.Param("store"),
		EndDate:    end,
		ProductIDs: productIDs(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStockAnalysis handles GET /stores/:store/stock/analysis.
func (h *AnalysisHandler) GetStockAnalysis(c *gin.Context) {
	end, err := endDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.stock.Analyze(c.Request.Context(), service.StockRequest{StoreID: c.Param("store"), EndDate: end})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCriticalProducts handles GET /stores/:store/stock/critical.
func (h *AnalysisHandler) GetCriticalProducts(c *gin.Context) {
	end, err := endDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.stock.Analyze(c.Request.Context(), service.StockRequest{StoreID: c.Param("store"), EndDate: end})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id":          result.StoreID,
		"analysis_id":       result.AnalysisID,
		"critical_products": result.CriticalProducts,
		"count":             len(result.CriticalProducts),
	})
}

// GetProductPolicy handles GET /stores/:store/stock/products/:product.
func (h *AnalysisHandler) GetProductPolicy(c *gin.Context) {
	end, err := endDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	policy, err := h.stock.AnalyzeProduct(c.Request.Context(), service.StockRequest{StoreID: c.Param("store"), EndDate: end}, c.Param("product"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListReports handles GET /stores/:store/reports.
func (h *AnalysisHandler) ListReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report storage is disabled"})
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), c.Param("store"), c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}
