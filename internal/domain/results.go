package domain

import "time"

// AnalysisStatus is the outcome of a sales analysis.
type AnalysisStatus string

const (
	StatusSuccess AnalysisStatus = "success"
	StatusNoData  AnalysisStatus = "no_data"
)

// AnalysisWindow is an inclusive [Start, End] range of calendar days.
type AnalysisWindow struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Days  int       `json:"days"`
}

// NewAnalysisWindow builds the window of days calendar days ending at end.
func NewAnalysisWindow(end time.Time, days int) AnalysisWindow {
	end = DateOf(end)
	if days < 1 {
		days = 1
	}
	return AnalysisWindow{
		Start: end.AddDate(0, 0, -(days - 1)),
		End:   end,
		Days:  days,
	}
}

// Contains reports whether t falls inside the window.
func (w AnalysisWindow) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// ProductSalesAnalysis is the per-product entry of a sales analysis.
type ProductSalesAnalysis struct {
	ProductID    string         `json:"product_id"`
	ProductName  string         `json:"product_name,omitempty"`
	Category     string         `json:"category,omitempty"`
	TotalSold    int            `json:"total_sold"`
	TotalRevenue float64        `json:"total_revenue"`
	Forecast     DemandForecast `json:"sales_forecast"`
}

// ProductPerformer is a short reference to a product in a ranking.
type ProductPerformer struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Units       int     `json:"units"`
	Revenue     float64 `json:"revenue"`
}

// PromotionImpact compares discounted and regular sale events.
type PromotionImpact struct {
	Effectiveness float64 `json:"effectiveness"`
	AvgBoost      float64 `json:"avg_boost"`
	PromoEvents   int     `json:"promo_events"`
}

// SeasonalImpact reports the seasonal configuration applied to the forecast.
type SeasonalImpact struct {
	Quarter       string  `json:"quarter"`
	QuarterFactor float64 `json:"quarter_factor"`
	WeekendBoost  float64 `json:"weekend_boost"`
}

// UncategorizedCategory groups products sold without a category.
const UncategorizedCategory = "uncategorized"

// CategoryTrend summarizes one product category over the effective window.
type CategoryTrend struct {
	Category     string     `json:"category"`
	Products     int        `json:"products"`
	TotalUnits   int        `json:"total_units"`
	TotalRevenue float64    `json:"total_revenue"`
	TopProduct   string     `json:"top_product"`
	Growth       float64    `json:"growth"`
	Trend        TrendLabel `json:"trend"`
}

// TrendAnalysis groups the store-wide pattern analyses.
type TrendAnalysis struct {
	WeeklyPattern   map[string]int  `json:"weekly_pattern"`
	CategoryTrends  []CategoryTrend `json:"category_trends"`
	PromotionImpact PromotionImpact `json:"promotion_impact"`
	SeasonalImpact  SeasonalImpact  `json:"seasonal_impact"`
}

// SalesAnalysisResult is the output of the sales analysis pipeline.
type SalesAnalysisResult struct {
	AnalysisID      string                 `json:"analysis_id"`
	Status          AnalysisStatus         `json:"status"`
	StoreID         string                 `json:"store_id"`
	RequestedWindow AnalysisWindow         `json:"requested_window"`
	EffectiveWindow AnalysisWindow         `json:"effective_window"`
	Products        []ProductSalesAnalysis `json:"products"`
	TotalRevenue    float64                `json:"total_revenue"`
	TotalUnits      int                    `json:"total_sales"`

	TopByRevenue    *ProductPerformer `json:"top_by_revenue,omitempty"`
	BottomByRevenue *ProductPerformer `json:"bottom_by_revenue,omitempty"`
	TopByUnits      *ProductPerformer `json:"top_by_units,omitempty"`
	BottomByUnits   *ProductPerformer `json:"bottom_by_units,omitempty"`

	TopSellers []ProductPerformer `json:"top_sellers"`
	LowSellers []ProductPerformer `json:"low_sellers"`

	TrendAnalysis *TrendAnalysis `json:"trend_analysis,omitempty"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// StockAnalysisResult is the output of the stock analysis pipeline.
type StockAnalysisResult struct {
	AnalysisID       string                `json:"analysis_id"`
	StoreID          string                `json:"store_id"`
	AnalysisDate     time.Time             `json:"analysis_date"`
	SalesWindow      AnalysisWindow        `json:"sales_window"`
	SalesStatus      AnalysisStatus        `json:"sales_status"`
	Products         []ReplenishmentPolicy `json:"products"`
	CriticalProducts []ReplenishmentPolicy `json:"critical_products"`
	TotalValue       float64               `json:"total_value"`
}
