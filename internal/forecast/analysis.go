package forecast

import (
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ProductAnalysis is one product's rollup together with its forecast.
type ProductAnalysis struct {
	ProductSales
	Forecast domain.DemandForecast
}

// Analysis is the outcome of forecasting every product of one window.
type Analysis struct {
	Window   domain.AnalysisWindow
	Events   []domain.SaleEvent
	Products []ProductAnalysis
}

// Empty reports whether the window held no sale events.
func (a Analysis) Empty() bool {
	return len(a.Events) == 0
}

// MaxAbsTrend returns the largest absolute weekly trend across products.
func (a Analysis) MaxAbsTrend() float64 {
	peak := 0.0
	for _, p := range a.Products {
		peak = math.Max(peak, math.Abs(p.Forecast.WeeklyTrend))
	}
	return peak
}

// Product looks up the analysis of one product.
func (a Analysis) Product(productID string) (ProductAnalysis, bool) {
	for _, p := range a.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return ProductAnalysis{}, false
}

// Analyze aggregates the events of window w and forecasts each product.
// Events outside the window are ignored.
func (f *Forecaster) Analyze(events []domain.SaleEvent, w domain.AnalysisWindow) Analysis {
	inWindow := make([]domain.SaleEvent, 0, len(events))
	for _, e := range events {
		if w.Contains(e.Date) {
			inWindow = append(inWindow, e)
		}
	}

	grouped := Aggregate(inWindow)
	products := make([]ProductAnalysis, 0, len(grouped))
	for _, g := range grouped {
		products = append(products, ProductAnalysis{
			ProductSales: g,
			Forecast:     f.Forecast(g.Series, w.End),
		})
	}

	return Analysis{
		Window:   w,
		Events:   inWindow,
		Products: products,
	}
}
