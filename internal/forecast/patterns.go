package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// WeeklyPattern sums units sold per weekday, keyed Mon..Sun.
func WeeklyPattern(events []domain.SaleEvent) map[string]int {
	pattern := make(map[string]int, 7)
	for _, name := range domain.WeekdayNames {
		pattern[name] = 0
	}
	for _, e := range events {
		pattern[domain.WeekdayNames[domain.WeekdayIndex(e.Date)]] += e.Quantity
	}
	return pattern
}

// PromotionEffect compares the mean quantity of discounted events with that
// of regular events.
func PromotionEffect(events []domain.SaleEvent) domain.PromotionImpact {
	var promo, normal []float64
	for _, e := range events {
		if e.Discount > 0 {
			promo = append(promo, float64(e.Quantity))
			continue
		}
		normal = append(normal, float64(e.Quantity))
	}
	if len(promo) == 0 {
		return domain.PromotionImpact{}
	}

	promoAvg := stat.Mean(promo, nil)
	impact := domain.PromotionImpact{
		AvgBoost:    domain.Round2(promoAvg),
		PromoEvents: len(promo),
	}
	if len(normal) > 0 {
		if normalAvg := stat.Mean(normal, nil); normalAvg != 0 {
			impact.Effectiveness = domain.Round2((promoAvg - normalAvg) / normalAvg)
		}
	}
	return impact
}

// SeasonalImpact reports the seasonal configuration for the forecast quarter.
func (f *Forecaster) SeasonalImpact(w domain.AnalysisWindow) domain.SeasonalImpact {
	quarter := QuarterOf(w.End.AddDate(0, 0, 1))
	return domain.SeasonalImpact{
		Quarter:       quarter,
		QuarterFactor: f.params.SeasonalFactor(quarter),
		WeekendBoost:  f.params.WeekendBoost,
	}
}

// CategoryTrends rolls products up by category. The top product sells the most
// units, ties going to the lower id. Growth is the last-7 vs previous-7 change
// of the category's merged daily series, computed like a product trend.
func (f *Forecaster) CategoryTrends(products []ProductAnalysis) []domain.CategoryTrend {
	type group struct {
		trend    domain.CategoryTrend
		topUnits int
		byDay    map[time.Time]int
	}

	groups := make(map[string]*group)
	for _, p := range products {
		name := p.Category
		if name == "" {
			name = domain.UncategorizedCategory
		}
		g, ok := groups[name]
		if !ok {
			g = &group{trend: domain.CategoryTrend{Category: name}, topUnits: -1, byDay: make(map[time.Time]int)}
			groups[name] = g
		}

		g.trend.Products++
		g.trend.TotalUnits += p.TotalQuantity
		g.trend.TotalRevenue += p.TotalRevenue
		if p.TotalQuantity > g.topUnits || (p.TotalQuantity == g.topUnits && p.ProductID < g.trend.TopProduct) {
			g.topUnits = p.TotalQuantity
			g.trend.TopProduct = p.ProductID
		}
		for _, d := range p.Series.Days {
			g.byDay[d.Date] += d.Quantity
		}
	}

	out := make([]domain.CategoryTrend, 0, len(groups))
	for _, g := range groups {
		days := make([]time.Time, 0, len(g.byDay))
		for d := range g.byDay {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		qty := make([]float64, len(days))
		for i, d := range days {
			qty[i] = float64(g.byDay[d])
		}

		growth := WeeklyTrend(qty, f.params.TrendMinDays)
		g.trend.Growth = domain.Round2(growth)
		g.trend.Trend = f.Label(growth)
		g.trend.TotalRevenue = domain.Round2(g.trend.TotalRevenue)
		out = append(out, g.trend)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
