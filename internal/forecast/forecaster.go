package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Forecaster turns a product's daily series into a DemandForecast.
type Forecaster struct {
	params Params
}

// NewForecaster validates params and builds a Forecaster.
func NewForecaster(params Params) (*Forecaster, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("forecast params: %w", err)
	}
	return &Forecaster{params: params}, nil
}

// Params returns the parameters the forecaster was built with.
func (f *Forecaster) Params() Params {
	return f.params
}

// Forecast computes the 7-day demand forecast for series. ref is the last day
// of the analysis window: the forecast covers the seven days after it.
func (f *Forecaster) Forecast(series domain.ProductDailySeries, ref time.Time) domain.DemandForecast {
	start := domain.DateOf(ref).AddDate(0, 0, 1)
	quarter := QuarterOf(start)
	seasonal := f.params.SeasonalFactor(quarter)

	out := domain.DemandForecast{
		TrendLabel:     domain.TrendStable,
		WeekdayFactors: domain.NeutralWeekdayFactors(),
		SeasonalFactor: seasonal,
		Quarter:        quarter,
		ObservedDays:   series.Len(),
	}

	n := series.Len()
	if n == 0 {
		out.Confidence = f.params.EmptyConfidence
		return out
	}

	qty := series.Quantities()
	avg, consistency := MeanAndConsistency(qty)
	trend := WeeklyTrend(qty, f.params.TrendMinDays)
	factors, _ := WeekdayFactors(series)

	base := math.Max(0, avg) * (1 + clamp(trend, -f.params.TrendClamp, f.params.TrendClamp))

	lambda := 0.0
	startIdx := domain.WeekdayIndex(start)
	for i := 0; i < Horizon; i++ {
		lambda += base * factors[(startIdx+i)%7]
	}

	low, high := CountInterval(lambda, f.params.IntervalZ, f.params.LambdaEpsilon)

	out.AvgDailySales = avg
	out.Consistency = consistency
	out.WeeklyTrend = trend
	out.TrendLabel = f.Label(trend)
	out.WeekdayFactors = factors
	out.Confidence = f.confidence(n, consistency)
	out.Next7Days = roundNonNegative(lambda * seasonal)
	out.Interval = domain.ForecastInterval{
		Low:  roundNonNegative(low * seasonal),
		High: roundNonNegative(high * seasonal),
	}
	out.HasInterval = true

	return out
}

// Label classifies a weekly trend.
func (f *Forecaster) Label(trend float64) domain.TrendLabel {
	switch {
	case trend > f.params.TrendLabelThreshold:
		return domain.TrendIncreasing
	case trend < -f.params.TrendLabelThreshold:
		return domain.TrendDecreasing
	}
	return domain.TrendStable
}

// confidence rewards longer history and lower variance. Seasonality is not
// part of it.
func (f *Forecaster) confidence(n int, consistency float64) float64 {
	p := f.params
	history := p.ConfidenceBase + p.ConfidenceHistoryWeight*math.Min(1, float64(n)/p.ConfidenceHistoryDays)
	return clamp(history*(p.ConsistencyBase+p.ConsistencyWeight*consistency), p.ConfidenceMin, p.ConfidenceMax)
}

// MeanAndConsistency returns the mean of qty and 1 - coefficient of variation
// (population std dev), clamped to [0,1]. Consistency is 0 for an empty
// series or a zero mean.
func MeanAndConsistency(qty []float64) (float64, float64) {
	if len(qty) == 0 {
		return 0, 0
	}

	mean, std := stat.PopMeanStdDev(qty, nil)
	if mean == 0 {
		return mean, 0
	}
	return mean, clamp(1-std/mean, 0, 1)
}

// WeeklyTrend compares the mean of the last 7 observations with the mean of
// the 7 before them. It is 0 with fewer than minDays observations or when the
// earlier week sold nothing.
func WeeklyTrend(qty []float64, minDays int) float64 {
	n := len(qty)
	if n < minDays || n < 2*Horizon {
		return 0
	}

	prev := stat.Mean(qty[n-2*Horizon:n-Horizon], nil)
	last := stat.Mean(qty[n-Horizon:], nil)
	if prev == 0 {
		return 0
	}
	return last/prev - 1
}

// WeekdayFactors learns Mon..Sun demand multipliers from the whole series:
// each weekday's mean quantity divided by the mean of the weekday means of
// observed weekdays. Weekdays with a zero mean get 1.0. When no weekday has a
// positive mean all factors are 1.0 and ok is false.
func WeekdayFactors(series domain.ProductDailySeries) (factors [7]float64, ok bool) {
	factors = domain.NeutralWeekdayFactors()

	var sums [7]float64
	var counts [7]int
	for _, d := range series.Days {
		idx := domain.WeekdayIndex(d.Date)
		sums[idx] += float64(d.Quantity)
		counts[idx]++
	}

	means := make([]float64, 0, 7)
	var weekdayMean [7]float64
	for i := 0; i < 7; i++ {
		if counts[i] == 0 {
			continue
		}
		weekdayMean[i] = sums[i] / float64(counts[i])
		means = append(means, weekdayMean[i])
	}
	if len(means) == 0 {
		return factors, false
	}

	global := stat.Mean(means, nil)
	if global <= 0 {
		return factors, false
	}

	for i := 0; i < 7; i++ {
		if weekdayMean[i] > 0 {
			factors[i] = weekdayMean[i] / global
		}
	}
	return factors, true
}

// CountInterval brackets an expected count lambda as
// [max(0, lambda - z*sqrt(lambda)), lambda + z*sqrt(lambda)], with lambda
// floored at eps.
func CountInterval(lambda, z, eps float64) (float64, float64) {
	lambda = math.Max(lambda, eps)
	half := z * math.Sqrt(lambda)
	return math.Max(0, lambda-half), lambda + half
}

// QuarterOf returns "Q1".."Q4" for t.
func QuarterOf(t time.Time) string {
	return fmt.Sprintf("Q%d", (int(t.Month())-1)/3+1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundNonNegative(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}
