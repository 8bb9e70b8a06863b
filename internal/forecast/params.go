package forecast

import (
	"fmt"
	"strings"
)

// Horizon is the number of days the forecast covers.
const Horizon = 7

// Params holds the forecaster tunables. The 14-day trend minimum and the
// confidence constants are policy defaults, not derived values.
type Params struct {
	// TrendMinDays is the number of observed days required before a weekly trend is computed.
	TrendMinDays int
	// TrendClamp bounds the trend used to extrapolate the base daily rate.
	TrendClamp float64
	// TrendLabelThreshold separates increasing/decreasing from stable.
	TrendLabelThreshold float64

	EmptyConfidence         float64
	ConfidenceBase          float64
	ConfidenceHistoryWeight float64
	ConfidenceHistoryDays   float64
	ConsistencyBase         float64
	ConsistencyWeight       float64
	ConfidenceMin           float64
	ConfidenceMax           float64

	// IntervalZ is the half-width multiplier of the count interval.
	IntervalZ float64
	// LambdaEpsilon floors the expected count so the interval never degenerates.
	LambdaEpsilon float64

	// Seasonal holds the Q1..Q4 multipliers.
	Seasonal     [4]float64
	WeekendBoost float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		TrendMinDays:            14,
		TrendClamp:              0.5,
		TrendLabelThreshold:     0.05,
		EmptyConfidence:         0.3,
		ConfidenceBase:          0.4,
		ConfidenceHistoryWeight: 0.4,
		ConfidenceHistoryDays:   30,
		ConsistencyBase:         0.7,
		ConsistencyWeight:       0.3,
		ConfidenceMin:           0.2,
		ConfidenceMax:           0.95,
		IntervalZ:               1.96,
		LambdaEpsilon:           1e-6,
		Seasonal:                [4]float64{1, 1, 1, 1},
		WeekendBoost:            1,
	}
}

// Validate rejects parameter sets the forecaster cannot honour.
func (p Params) Validate() error {
	if p.TrendMinDays < 2*Horizon {
		return fmt.Errorf("trend min days must be at least %d, got %d", 2*Horizon, p.TrendMinDays)
	}
	if p.TrendClamp < 0 {
		return fmt.Errorf("trend clamp must be non-negative")
	}
	if p.ConfidenceMin < 0 || p.ConfidenceMax > 1 || p.ConfidenceMin > p.ConfidenceMax {
		return fmt.Errorf("confidence bounds [%.2f, %.2f] are invalid", p.ConfidenceMin, p.ConfidenceMax)
	}
	if p.ConfidenceHistoryDays <= 0 {
		return fmt.Errorf("confidence history days must be positive")
	}
	if p.IntervalZ < 0 || p.LambdaEpsilon <= 0 {
		return fmt.Errorf("interval parameters are invalid")
	}
	for i, m := range p.Seasonal {
		if m < 0 {
			return fmt.Errorf("seasonal multiplier Q%d is negative", i+1)
		}
	}
	return nil
}

// SeasonalFactor returns the multiplier configured for a quarter label ("Q1".."Q4").
// Unknown labels get 1.0.
func (p Params) SeasonalFactor(quarter string) float64 {
	switch strings.ToUpper(strings.TrimSpace(quarter)) {
	case "Q1":
		return p.Seasonal[0]
	case "Q2":
		return p.Seasonal[1]
	case "Q3":
		return p.Seasonal[2]
	case "Q4":
		return p.Seasonal[3]
	}
	return 1
}
