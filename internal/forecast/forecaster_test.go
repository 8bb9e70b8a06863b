package forecast

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesFrom(start time.Time, qty ...int) domain.ProductDailySeries {
	s := domain.ProductDailySeries{ProductID: "SKU-1"}
	for i, q := range qty {
		s.Days = append(s.Days, domain.DailyQuantity{Date: start.AddDate(0, 0, i), Quantity: q})
	}
	return s
}

func newForecaster(t *testing.T) *Forecaster {
	t.Helper()
	f, err := NewForecaster(DefaultParams())
	require.NoError(t, err)
	return f
}

func TestForecast_DoublingWeekClampsTrend(t *testing.T) {
	f := newForecaster(t)
	series := seriesFrom(monday, 2, 2, 2, 2, 2, 2, 2, 4, 4, 4, 4, 4, 4, 4)

	fc := f.Forecast(series, monday.AddDate(0, 0, 13))

	assert.InDelta(t, 1.0, fc.WeeklyTrend, 1e-9)
	assert.Equal(t, domain.TrendIncreasing, fc.TrendLabel)
	assert.InDelta(t, 3.0, fc.AvgDailySales, 1e-9)
	assert.InDelta(t, 2.0/3.0, fc.Consistency, 1e-9)
	// base = 3 * (1 + 0.5), flat weekday profile over 7 days
	assert.Equal(t, 32, fc.Next7Days)
	assert.Equal(t, domain.NeutralWeekdayFactors(), fc.WeekdayFactors)
	assert.Equal(t, "Q1", fc.Quarter)
	assert.InDelta(t, (0.4+0.4*14.0/30.0)*(0.7+0.3*2.0/3.0), fc.Confidence, 1e-9)
	assert.True(t, fc.HasInterval)
	assert.LessOrEqual(t, fc.Interval.Low, fc.Next7Days)
	assert.GreaterOrEqual(t, fc.Interval.High, fc.Next7Days)
}

func TestForecast_EmptySeries(t *testing.T) {
	f := newForecaster(t)

	fc := f.Forecast(domain.ProductDailySeries{ProductID: "SKU-1"}, monday)

	assert.Equal(t, 0, fc.Next7Days)
	assert.Equal(t, 0.3, fc.Confidence)
	assert.Equal(t, domain.ForecastInterval{}, fc.Interval)
	assert.False(t, fc.HasInterval)
	assert.Zero(t, fc.Consistency)
	assert.Zero(t, fc.WeeklyTrend)
	assert.Equal(t, domain.TrendStable, fc.TrendLabel)
}

func TestForecast_ZeroSalesKeepsIntervalAtZero(t *testing.T) {
	f := newForecaster(t)

	fc := f.Forecast(seriesFrom(monday, 0, 0, 0), monday.AddDate(0, 0, 2))

	assert.Equal(t, 0, fc.Next7Days)
	assert.Equal(t, 0, fc.Interval.Low)
	assert.Equal(t, 0, fc.Interval.High)
	assert.Equal(t, domain.NeutralWeekdayFactors(), fc.WeekdayFactors)
}

func TestForecast_SeasonalFactorScalesForecast(t *testing.T) {
	params := DefaultParams()
	params.Seasonal = [4]float64{1, 1, 1, 2}
	f, err := NewForecaster(params)
	require.NoError(t, err)

	start := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(start, 5, 5, 5, 5, 5, 5, 5)

	fc := f.Forecast(series, start.AddDate(0, 0, 6))

	assert.Equal(t, "Q4", fc.Quarter)
	assert.Equal(t, 2.0, fc.SeasonalFactor)
	assert.Equal(t, 70, fc.Next7Days)
}

func TestForecast_QuarterFollowsFirstForecastDay(t *testing.T) {
	f := newForecaster(t)

	fc := f.Forecast(seriesFrom(time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), 1, 1, 1, 1, 1, 1, 1), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "Q2", fc.Quarter)
}

func TestForecast_WeekdayProfileStartsAfterReference(t *testing.T) {
	f := newForecaster(t)
	// Two weeks selling 10 on Saturdays only, 0 otherwise.
	qty := make([]int, 14)
	qty[5], qty[12] = 10, 10
	series := seriesFrom(monday, qty...)

	fc := f.Forecast(series, monday.AddDate(0, 0, 13))

	// Saturday mean 10 over a weekday-mean average of 10/7; silent weekdays stay neutral.
	assert.InDelta(t, 7.0, fc.WeekdayFactors[5], 1e-9)
	for i, factor := range fc.WeekdayFactors {
		if i != 5 {
			assert.Equal(t, 1.0, factor, "weekday %d", i)
		}
	}
	// Mon..Sun after a Sunday reference: six neutral days plus Saturday.
	assert.Equal(t, 19, fc.Next7Days)
}

func TestWeeklyTrend(t *testing.T) {
	tests := []struct {
		name string
		qty  []float64
		want float64
	}{
		{"short series", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, 0},
		{"flat", []float64{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3}, 0},
		{"halving", []float64{4, 4, 4, 4, 4, 4, 4, 2, 2, 2, 2, 2, 2, 2}, -0.5},
		{"previous week empty", []float64{0, 0, 0, 0, 0, 0, 0, 2, 2, 2, 2, 2, 2, 2}, 0},
		{"uses last fourteen", []float64{100, 1, 1, 1, 1, 1, 1, 1, 3, 3, 3, 3, 3, 3, 3}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WeeklyTrend(tt.qty, 14), 1e-9)
		})
	}
}

func TestMeanAndConsistency(t *testing.T) {
	mean, consistency := MeanAndConsistency(nil)
	assert.Zero(t, mean)
	assert.Zero(t, consistency)

	mean, consistency = MeanAndConsistency([]float64{0, 0, 0})
	assert.Zero(t, mean)
	assert.Zero(t, consistency)

	mean, consistency = MeanAndConsistency([]float64{5, 5, 5})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 1.0, consistency)

	// std exceeds mean, consistency floors at 0
	_, consistency = MeanAndConsistency([]float64{0, 0, 0, 0, 20})
	assert.Zero(t, consistency)
}

func TestWeekdayFactors_NoSignal(t *testing.T) {
	factors, ok := WeekdayFactors(domain.ProductDailySeries{})
	assert.False(t, ok)
	assert.Equal(t, domain.NeutralWeekdayFactors(), factors)
}

func TestCountInterval(t *testing.T) {
	low, high := CountInterval(100, 1.96, 1e-6)
	assert.InDelta(t, 80.4, low, 1e-9)
	assert.InDelta(t, 119.6, high, 1e-9)

	low, high = CountInterval(1, 1.96, 1e-6)
	assert.Zero(t, low)
	assert.InDelta(t, 2.96, high, 1e-9)
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, "Q1", QuarterOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Q2", QuarterOf(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Q3", QuarterOf(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Q4", QuarterOf(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNewForecaster_RejectsInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.TrendClamp = -1

	_, err := NewForecaster(params)
	assert.Error(t, err)
}

func TestForecast_Properties(t *testing.T) {
	f := newForecaster(t)
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		n := rng.Intn(60)
		qty := make([]int, n)
		for i := range qty {
			qty[i] = rng.Intn(40)
		}
		series := seriesFrom(monday, qty...)
		fc := f.Forecast(series, monday.AddDate(0, 0, n))

		assert.InDelta(t, float64(series.Total()), math.Round(fc.AvgDailySales*float64(n)), 1e-6)
		assert.GreaterOrEqual(t, fc.Consistency, 0.0)
		assert.LessOrEqual(t, fc.Consistency, 1.0)
		assert.GreaterOrEqual(t, fc.Interval.Low, 0)
		assert.LessOrEqual(t, fc.Interval.Low, fc.Next7Days)
		assert.LessOrEqual(t, fc.Next7Days, fc.Interval.High)
		if n < 14 {
			assert.Zero(t, fc.WeeklyTrend)
		}

		factors, ok := WeekdayFactors(series)
		if !ok {
			assert.Equal(t, domain.NeutralWeekdayFactors(), factors)
			continue
		}
		if allWeekdaysSell(series) {
			var sum float64
			for _, factor := range factors {
				sum += factor
			}
			assert.InDelta(t, 1.0, sum/7, 1e-9)
		}
	}
}

func allWeekdaysSell(series domain.ProductDailySeries) bool {
	var sold [7]bool
	for _, d := range series.Days {
		if d.Quantity > 0 {
			sold[domain.WeekdayIndex(d.Date)] = true
		}
	}
	for _, s := range sold {
		if !s {
			return false
		}
	}
	return true
}
