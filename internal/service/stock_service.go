package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/policy"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StockRequest selects the store and the last day of the sales window backing
// the forecasts.
type StockRequest struct {
	StoreID string
	EndDate time.Time
}

type StockAnalysisService struct {
	stock      repository.StockSnapshotSource
	controller *window.Controller
	forecaster *forecast.Forecaster
	policy     *policy.Engine
	cache      cache.AnalysisCache
	now        func() time.Time
	log        zerolog.Logger
}

func NewStockAnalysisService(sales repository.SalesHistorySource, stock repository.StockSnapshotSource, opts Options) (*StockAnalysisService, error) {
	if stock == nil {
		return nil, domain.MissingCollaborator("stock snapshot source")
	}
	opts = opts.withFallbacks()

	controller, forecaster, err := buildController(sales, opts)
	if err != nil {
		return nil, err
	}
	engine, err := policy.NewEngine(opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	return &StockAnalysisService{
		stock:      stock,
		controller: controller,
		forecaster: forecaster,
		policy:     engine,
		cache:      opts.Cache,
		now:        opts.Now,
		log:        opts.Logger.With().Str("component", "stock_analysis").Logger(),
	}, nil
}

// Analyze evaluates the replenishment policy of every product in the store's
// stock snapshot. Demand for all products is fetched in one batch.
func (s *StockAnalysisService) Analyze(ctx context.Context, req StockRequest) (*domain.StockAnalysisResult, error) {
	storeID, err := requireStore(req.StoreID)
	if err != nil {
		return nil, err
	}
	end := resolveEnd(req.EndDate, s.now)
	key := cache.Key{Kind: cache.KindStock, StoreID: storeID, End: end}

	if cached, ok, err := s.cache.GetStock(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("cache get stock analysis failed")
	}

	rows, err := s.stock.GetStockSnapshot(ctx, storeID)
	if err != nil {
		return nil, domain.Upstream("get stock snapshot", err)
	}

	result := &domain.StockAnalysisResult{
		AnalysisID:       uuid.NewString(),
		StoreID:          storeID,
		AnalysisDate:     s.now().UTC(),
		SalesWindow:      domain.NewAnalysisWindow(end, s.controller.Config().DefaultDays),
		SalesStatus:      domain.StatusNoData,
		Products:         make([]domain.ReplenishmentPolicy, 0, len(rows)),
		CriticalProducts: []domain.ReplenishmentPolicy{},
	}

	if len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ProductID
		}

		outcome, err := s.controller.Run(ctx, window.Request{StoreID: storeID, End: end, ProductIDs: ids})
		if err != nil {
			return nil, err
		}
		result.SalesWindow = outcome.Analysis.Window
		result.SalesStatus = outcome.Status

		var value float64
		for _, row := range rows {
			p := s.evaluate(row, outcome.Analysis)
			result.Products = append(result.Products, p)
			if p.IsCritical {
				result.CriticalProducts = append(result.CriticalProducts, p)
			}
			value += float64(row.CurrentStock) * row.Price
		}
		result.TotalValue = domain.Round2(value)
	}

	if result.SalesStatus == domain.StatusSuccess {
		if err := s.cache.SetStock(ctx, key, result); err != nil {
			s.log.Warn().Err(err).Msg("cache set stock analysis failed")
		}
	}

	s.log.Info().
		Str("store_id", storeID).
		Int("products", len(result.Products)).
		Int("critical", len(result.CriticalProducts)).
		Msg("stock analysis complete")

	return result, nil
}

// AnalyzeProduct evaluates the policy of a single stocked product.
func (s *StockAnalysisService) AnalyzeProduct(ctx context.Context, req StockRequest, productID string) (*domain.ReplenishmentPolicy, error) {
	storeID, err := requireStore(req.StoreID)
	if err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	end := resolveEnd(req.EndDate, s.now)

	rows, err := s.stock.GetStockSnapshot(ctx, storeID)
	if err != nil {
		return nil, domain.Upstream("get stock snapshot", err)
	}

	for _, row := range rows {
		if row.ProductID != productID {
			continue
		}
		outcome, err := s.controller.Run(ctx, window.Request{StoreID: storeID, End: end, ProductIDs: []string{productID}})
		if err != nil {
			return nil, err
		}
		p := s.evaluate(row, outcome.Analysis)
		return &p, nil
	}

	return nil, fmt.Errorf("%w: %s in store %s", domain.ErrProductNotFound, productID, storeID)
}

// evaluate applies the policy to one row. Products without sales in the
// analyzed window get the empty-series forecast.
func (s *StockAnalysisService) evaluate(row domain.StockSnapshotRow, analysis forecast.Analysis) domain.ReplenishmentPolicy {
	fc := s.forecaster.Forecast(domain.ProductDailySeries{ProductID: row.ProductID}, analysis.Window.End)
	if p, ok := analysis.Product(row.ProductID); ok {
		fc = p.Forecast
	}
	return s.policy.Evaluate(row, fc)
}
