package domain

// TrendLabel classifies the weekly trend.
type TrendLabel string

const (
	TrendIncreasing TrendLabel = "increasing"
	TrendDecreasing TrendLabel = "decreasing"
	TrendStable     TrendLabel = "stable"
)

// ForecastInterval brackets the 7-period forecast.
type ForecastInterval struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// DemandForecast is the per-product output of the demand forecaster.
type DemandForecast struct {
	AvgDailySales float64    `json:"avg_daily_sales"`
	Consistency   float64    `json:"sales_consistency"`
	WeeklyTrend   float64    `json:"weekly_trend"`
	TrendLabel    TrendLabel `json:"trend_label"`

	// WeekdayFactors is indexed Mon=0 ... Sun=6.
	WeekdayFactors [7]float64 `json:"weekday_factors"`

	Next7Days      int              `json:"next_7days"`
	Confidence     float64          `json:"confidence"`
	Interval       ForecastInterval `json:"interval"`
	HasInterval    bool             `json:"has_interval"`
	SeasonalFactor float64          `json:"seasonal_factor"`
	Quarter        string           `json:"quarter"`
	ObservedDays   int              `json:"observed_days"`
}

// NeutralWeekdayFactors returns seven factors of 1.0.
func NeutralWeekdayFactors() [7]float64 {
	return [7]float64{1, 1, 1, 1, 1, 1, 1}
}
