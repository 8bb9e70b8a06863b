package policy

import (
	"math/rand"
	"testing"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultParams())
	require.NoError(t, err)
	return e
}

func stable(avg float64) domain.DemandForecast {
	return domain.DemandForecast{AvgDailySales: avg, TrendLabel: domain.TrendStable}
}

func TestEvaluate_HardFloorMarksCritical(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 2, MinRequired: 10, LeadTimeDays: 7, Price: 1}

	p := e.Evaluate(row, stable(0.5))

	assert.True(t, p.IsCritical)
	assert.Equal(t, domain.TierLow, p.TrafficLevel)
}

func TestEvaluate_CoverAboveLeadTimePlusBuffer(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 25, LeadTimeDays: 5, Price: 4}

	p := e.Evaluate(row, stable(2))

	require.NotNil(t, p.DaysOfCover.Point)
	assert.Equal(t, 12.5, *p.DaysOfCover.Point)
	assert.Equal(t, 3, p.Parameters.BufferDays)
	assert.False(t, p.IsCritical)
	assert.Equal(t, 100.0, p.StockValue)
}

func TestEvaluate_ShortCoverIsCritical(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 12, LeadTimeDays: 5}

	p := e.Evaluate(row, stable(2))

	// 6 days of cover < 5 + 3
	assert.True(t, p.IsCritical)
}

func TestEvaluate_TierMinimumIsCritical(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 19, LeadTimeDays: 0}

	p := e.Evaluate(row, stable(0.1))
	assert.False(t, p.IsCritical)

	p = e.Evaluate(row, stable(16))
	assert.Equal(t, domain.TierHigh, p.TrafficLevel)
	assert.True(t, p.IsCritical)
}

func TestEvaluate_ZeroDemandIsUnbounded(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 50, LeadTimeDays: 3, Price: 2.5}

	p := e.Evaluate(row, stable(0))

	assert.True(t, p.DaysOfCover.Unbounded)
	assert.Nil(t, p.DaysOfCover.Point)
	assert.Nil(t, p.DaysOfCover.Low)
	assert.Nil(t, p.DaysOfCover.High)
	assert.False(t, p.IsCritical)
	assert.Zero(t, p.SafetyStock)
	assert.Zero(t, p.TargetStockLevel)
	assert.Zero(t, p.ReorderQuantity)
}

func TestEvaluate_SafetyStockFromInterval(t *testing.T) {
	e := newEngine(t)
	fc := stable(2)
	fc.HasInterval = true
	fc.Interval = domain.ForecastInterval{Low: 7, High: 21}

	p := e.Evaluate(domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 5, LeadTimeDays: 5}, fc)

	// sigma = (3-1)/3.92, z = 1.64, horizon = 8
	assert.Equal(t, 2, p.SafetyStock)
	assert.Equal(t, 10, p.LeadTimeDemand)
	assert.Equal(t, 18, p.TargetStockLevel)
	assert.Equal(t, 13, p.ReorderQuantity)
	assert.Equal(t, 1.64, p.Parameters.ZScore)
	require.NotNil(t, p.DaysOfCover.Low)
	assert.InDelta(t, 1.7, *p.DaysOfCover.Low, 1e-9)
	assert.InDelta(t, 5.0, *p.DaysOfCover.High, 1e-9)
}

func TestEvaluate_IncreasingTrendBumpsBuffer(t *testing.T) {
	e := newEngine(t)
	fc := stable(2)
	fc.TrendLabel = domain.TrendIncreasing

	p := e.Evaluate(domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 15, LeadTimeDays: 3}, fc)

	assert.Equal(t, 5, p.Parameters.BufferDays)
	// 7.5 days of cover < 3 + 5
	assert.True(t, p.IsCritical)
}

func TestDailyBand(t *testing.T) {
	e := newEngine(t)

	low, high := e.DailyBand(stable(10))
	assert.InDelta(t, 8, low, 1e-9)
	assert.InDelta(t, 12, high, 1e-9)

	fc := stable(0)
	fc.HasInterval = true
	low, high = e.DailyBand(fc)
	assert.Equal(t, 0.01, low)
	assert.Equal(t, 0.01, high)
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 1.64, ZScore(0.95))
	assert.Equal(t, 1.96, ZScore(0.975))
	assert.Equal(t, 1.28, ZScore(0.90))
	assert.Equal(t, 1.0, ZScore(0.8))
}

func TestNewEngine_RejectsInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.MediumSales = 20

	_, err := NewEngine(params)
	assert.Error(t, err)

	params = DefaultParams()
	params.ServiceLevel = 1
	_, err = NewEngine(params)
	assert.Error(t, err)
}

func TestEvaluate_Properties(t *testing.T) {
	e := newEngine(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		row := domain.StockSnapshotRow{
			ProductID:    "P",
			CurrentStock: rng.Intn(200),
			MinRequired:  rng.Intn(40),
			LeadTimeDays: rng.Intn(21),
			Price:        float64(rng.Intn(1000)) / 10,
		}
		fc := stable(rng.Float64() * 30)
		if rng.Intn(2) == 0 {
			low := rng.Intn(100)
			fc.HasInterval = true
			fc.Interval = domain.ForecastInterval{Low: low, High: low + rng.Intn(100)}
		}

		p := e.Evaluate(row, fc)

		assert.GreaterOrEqual(t, p.ReorderQuantity, 0)
		if row.CurrentStock >= p.TargetStockLevel {
			assert.Zero(t, p.ReorderQuantity)
		}
		if row.CurrentStock < row.MinRequired {
			assert.True(t, p.IsCritical)
		}
		if !p.DaysOfCover.Unbounded {
			assert.LessOrEqual(t, *p.DaysOfCover.Low, *p.DaysOfCover.High)
		}
	}
}

func TestEvaluate_HigherDemandShrinksCover(t *testing.T) {
	e := newEngine(t)
	row := domain.StockSnapshotRow{ProductID: "P1", CurrentStock: 100, LeadTimeDays: 2}

	slow := stable(5)
	slow.HasInterval = true
	slow.Interval = domain.ForecastInterval{Low: 14, High: 35}
	fast := slow
	fast.Interval.High = 70

	pSlow := e.Evaluate(row, slow)
	pFast := e.Evaluate(row, fast)

	assert.Less(t, *pFast.DaysOfCover.Low, *pSlow.DaysOfCover.Low)
	assert.Equal(t, *pSlow.DaysOfCover.High, *pFast.DaysOfCover.High)
}
