package service

import (
	"context"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sellerListSize = 5

// SalesRequest selects the store, the last day of the analysis window and an
// optional product filter.
type SalesRequest struct {
	StoreID    string
	EndDate    time.Time
	ProductIDs []string
}

type SalesAnalysisService struct {
	controller *window.Controller
	forecaster *forecast.Forecaster
	cache      cache.AnalysisCache
	now        func() time.Time
	log        zerolog.Logger
}

func NewSalesAnalysisService(sales repository.SalesHistorySource, opts Options) (*SalesAnalysisService, error) {
	opts = opts.withFallbacks()
	controller, forecaster, err := buildController(sales, opts)
	if err != nil {
		return nil, err
	}

	return &SalesAnalysisService{
		controller: controller,
		forecaster: forecaster,
		cache:      opts.Cache,
		now:        opts.Now,
		log:        opts.Logger.With().Str("component", "sales_analysis").Logger(),
	}, nil
}

// Analyze runs the sales pipeline. An empty window after widening is reported
// with status no_data, not as an error.
func (s *SalesAnalysisService) Analyze(ctx context.Context, req SalesRequest) (*domain.SalesAnalysisResult, error) {
	storeID, err := requireStore(req.StoreID)
	if err != nil {
		return nil, err
	}
	end := resolveEnd(req.EndDate, s.now)
	productIDs := cleanIDs(req.ProductIDs)
	key := cache.Key{Kind: cache.KindSales, StoreID: storeID, End: end, ProductIDs: productIDs}

	if cached, ok, err := s.cache.GetSales(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("cache get sales analysis failed")
	}

	outcome, err := s.controller.Run(ctx, window.Request{StoreID: storeID, End: end, ProductIDs: productIDs})
	if err != nil {
		return nil, err
	}

	result := s.buildResult(storeID, outcome)

	// no_data is not cached so data loaded later shows up on the next request
	if result.Status == domain.StatusSuccess {
		if err := s.cache.SetSales(ctx, key, result); err != nil {
			s.log.Warn().Err(err).Msg("cache set sales analysis failed")
		}
	}

	s.log.Info().
		Str("store_id", storeID).
		Str("status", string(result.Status)).
		Int("window_days", result.EffectiveWindow.Days).
		Int("products", len(result.Products)).
		Msg("sales analysis complete")

	return result, nil
}

func (s *SalesAnalysisService) buildResult(storeID string, outcome window.Outcome) *domain.SalesAnalysisResult {
	result := &domain.SalesAnalysisResult{
		AnalysisID:      uuid.NewString(),
		Status:          outcome.Status,
		StoreID:         storeID,
		RequestedWindow: outcome.Requested,
		EffectiveWindow: outcome.Analysis.Window,
		Products:        make([]domain.ProductSalesAnalysis, 0, len(outcome.Analysis.Products)),
		TopSellers:      []domain.ProductPerformer{},
		LowSellers:      []domain.ProductPerformer{},
		GeneratedAt:     s.now().UTC(),
	}
	if outcome.Status != domain.StatusSuccess {
		return result
	}

	var revenue float64
	for _, p := range outcome.Analysis.Products {
		result.Products = append(result.Products, domain.ProductSalesAnalysis{
			ProductID:    p.ProductID,
			ProductName:  p.ProductName,
			Category:     p.Category,
			TotalSold:    p.TotalQuantity,
			TotalRevenue: p.TotalRevenue,
			Forecast:     p.Forecast,
		})
		revenue += p.TotalRevenue
		result.TotalUnits += p.TotalQuantity
	}
	result.TotalRevenue = domain.Round2(revenue)

	rankPerformers(result)

	events := outcome.Analysis.Events
	result.TrendAnalysis = &domain.TrendAnalysis{
		WeeklyPattern:   forecast.WeeklyPattern(events),
		CategoryTrends:  s.forecaster.CategoryTrends(outcome.Analysis.Products),
		PromotionImpact: forecast.PromotionEffect(events),
		SeasonalImpact:  s.forecaster.SeasonalImpact(outcome.Analysis.Window),
	}
	return result
}

// rankPerformers fills the single-product pointers and the top/low seller
// lists. Ties keep product id order.
func rankPerformers(result *domain.SalesAnalysisResult) {
	if len(result.Products) == 0 {
		return
	}

	performers := make([]domain.ProductPerformer, len(result.Products))
	for i, p := range result.Products {
		performers[i] = domain.ProductPerformer{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Units:       p.TotalSold,
			Revenue:     p.TotalRevenue,
		}
	}

	byRevenue := append([]domain.ProductPerformer(nil), performers...)
	sort.SliceStable(byRevenue, func(i, j int) bool { return byRevenue[i].Revenue > byRevenue[j].Revenue })
	byUnits := append([]domain.ProductPerformer(nil), performers...)
	sort.SliceStable(byUnits, func(i, j int) bool { return byUnits[i].Units > byUnits[j].Units })

	last := len(performers) - 1
	result.TopByRevenue = &byRevenue[0]
	result.BottomByRevenue = &byRevenue[last]
	result.TopByUnits = &byUnits[0]
	result.BottomByUnits = &byUnits[last]

	n := min(sellerListSize, len(byRevenue))
	result.TopSellers = append(result.TopSellers, byRevenue[:n]...)
	for i := last; i > last-n; i-- {
		result.LowSellers = append(result.LowSellers, byRevenue[i])
	}
}
