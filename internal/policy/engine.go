package policy

import (
	"fmt"
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
)

// Params holds the replenishment policy configuration.
type Params struct {
	// Tier boundaries on average daily sales, ascending: low < MediumSales <= medium < HighSales <= high.
	HighSales   float64
	MediumSales float64

	// Minimum stock per tier below which a product is critical.
	HighMinStock   int
	MediumMinStock int
	LowMinStock    int

	BaseBufferDays       int
	IncreasingBufferBump int
	ServiceLevel         float64

	// Fallback daily band as multiples of the average when the forecast has no interval.
	BandLowFactor  float64
	BandHighFactor float64
	BandEpsilon    float64
	// BandZ is the z value the daily band is assumed to span (a ~95% interval).
	BandZ float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		HighSales:            15,
		MediumSales:          5,
		HighMinStock:         20,
		MediumMinStock:       10,
		LowMinStock:          3,
		BaseBufferDays:       3,
		IncreasingBufferBump: 2,
		ServiceLevel:         0.95,
		BandLowFactor:        0.8,
		BandHighFactor:       1.2,
		BandEpsilon:          0.01,
		BandZ:                1.96,
	}
}

// Validate rejects inconsistent thresholds.
func (p Params) Validate() error {
	if p.MediumSales < 0 || p.HighSales < p.MediumSales {
		return fmt.Errorf("tier thresholds must ascend: medium %.2f, high %.2f", p.MediumSales, p.HighSales)
	}
	if p.HighMinStock < 0 || p.MediumMinStock < 0 || p.LowMinStock < 0 {
		return fmt.Errorf("tier minimum stock must be non-negative")
	}
	if p.BaseBufferDays < 0 || p.IncreasingBufferBump < 0 {
		return fmt.Errorf("buffer days must be non-negative")
	}
	if p.ServiceLevel <= 0 || p.ServiceLevel >= 1 {
		return fmt.Errorf("service level must be in (0,1), got %.3f", p.ServiceLevel)
	}
	if p.BandEpsilon <= 0 || p.BandZ <= 0 || p.BandLowFactor > p.BandHighFactor {
		return fmt.Errorf("daily band parameters are invalid")
	}
	return nil
}

// Engine evaluates the replenishment policy of stocked products.
type Engine struct {
	params Params
	zScore float64
}

// NewEngine validates params and builds an Engine.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("policy params: %w", err)
	}
	return &Engine{params: params, zScore: ZScore(params.ServiceLevel)}, nil
}

// ZScore maps the supported service levels to their z value; anything else is 1.0.
func ZScore(serviceLevel float64) float64 {
	const tol = 1e-9
	switch {
	case math.Abs(serviceLevel-0.975) < tol:
		return 1.96
	case math.Abs(serviceLevel-0.95) < tol:
		return 1.64
	case math.Abs(serviceLevel-0.90) < tol:
		return 1.28
	}
	return 1.0
}

// Tier classifies average daily sales.
func (e *Engine) Tier(avg float64) domain.TrafficTier {
	switch {
	case avg >= e.params.HighSales:
		return domain.TierHigh
	case avg >= e.params.MediumSales:
		return domain.TierMedium
	}
	return domain.TierLow
}

// TierMinStock returns the critical stock threshold of a tier.
func (e *Engine) TierMinStock(tier domain.TrafficTier) int {
	switch tier {
	case domain.TierHigh:
		return e.params.HighMinStock
	case domain.TierMedium:
		return e.params.MediumMinStock
	}
	return e.params.LowMinStock
}

// BufferDays is the base buffer, bumped when demand is rising.
func (e *Engine) BufferDays(trend domain.TrendLabel) int {
	if trend == domain.TrendIncreasing {
		return e.params.BaseBufferDays + e.params.IncreasingBufferBump
	}
	return e.params.BaseBufferDays
}

// DailyBand derives the per-day demand band from the forecast interval, or
// from the average when the forecast carries none.
func (e *Engine) DailyBand(fc domain.DemandForecast) (float64, float64) {
	if fc.HasInterval {
		low := math.Max(e.params.BandEpsilon, float64(fc.Interval.Low)/forecast.Horizon)
		high := math.Max(e.params.BandEpsilon, float64(fc.Interval.High)/forecast.Horizon)
		return low, high
	}
	avg := math.Max(0, fc.AvgDailySales)
	return e.params.BandLowFactor * avg, e.params.BandHighFactor * avg
}

// Evaluate computes the replenishment policy of one stock row.
func (e *Engine) Evaluate(row domain.StockSnapshotRow, fc domain.DemandForecast) domain.ReplenishmentPolicy {
	avg := math.Max(0, fc.AvgDailySales)
	stock := float64(row.CurrentStock)
	tier := e.Tier(avg)
	buffer := e.BufferDays(fc.TrendLabel)
	dailyLow, dailyHigh := e.DailyBand(fc)

	cover := domain.DaysOfCover{Unbounded: true}
	if avg > 0 {
		point := stock / avg
		cover = domain.DaysOfCover{
			Point: ptr(round1(point)),
			Low:   ptr(round1(safeDiv(stock, dailyHigh))),
			High:  ptr(round1(safeDiv(stock, dailyLow))),
		}
	}

	sigma := math.Max(0, (dailyHigh-dailyLow)/(2*e.params.BandZ))
	horizon := math.Max(1, float64(row.LeadTimeDays+buffer))
	safetyStock := e.zScore * sigma * math.Sqrt(horizon)
	leadTimeDemand := avg * float64(row.LeadTimeDays)
	target := leadTimeDemand + safetyStock + float64(buffer)*avg
	targetLevel := int(math.Round(target))

	critical := row.CurrentStock < e.TierMinStock(tier) ||
		(avg > 0 && stock/avg < float64(row.LeadTimeDays+buffer)) ||
		row.CurrentStock < row.MinRequired

	return domain.ReplenishmentPolicy{
		StockSnapshotRow: row,
		AvgDailySales:    domain.Round2(avg),
		SalesTrend:       fc.TrendLabel,
		TrafficLevel:     tier,
		DaysOfCover:      cover,
		IsCritical:       critical,
		StockValue:       domain.Round2(stock * row.Price),
		SafetyStock:      int(math.Round(safetyStock)),
		LeadTimeDemand:   int(math.Round(leadTimeDemand)),
		TargetStockLevel: targetLevel,
		ReorderQuantity:  max(0, targetLevel-row.CurrentStock),
		Parameters: domain.PolicyParameters{
			BufferDays:   buffer,
			ServiceLevel: e.params.ServiceLevel,
			ZScore:       e.zScore,
		},
		Forecast: fc,
	}
}

func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func ptr(v float64) *float64 {
	return &v
}
