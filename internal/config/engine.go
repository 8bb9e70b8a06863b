package config

import (
	"fmt"

	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/policy"
	"github.com/andresuchdata/replenish/internal/window"
	"github.com/spf13/viper"
)

// EngineConfig carries every tunable of the replenishment engine. The engine
// packages never read viper; they receive the values built by the methods below.
type EngineConfig struct {
	WindowDefaultDays        int
	WindowIncrementDays      int
	WindowMaxDays            int
	WindowTrendThreshold     float64
	WindowAnchorEnabled      bool
	WindowAnchorLookbackDays int

	TrendMinDays              int
	TrendClamp                float64
	TrendLabelThreshold       float64
	EmptyConfidence           float64
	ConfidenceBase            float64
	ConfidenceHistoryWeight   float64
	ConfidenceHistoryDays     float64
	ConfidenceConsistencyBase float64
	ConfidenceConsistencyWt   float64
	ConfidenceMin             float64
	ConfidenceMax             float64
	WeekendBoost              float64
	Seasonal                  [4]float64

	TierHighSales        float64
	TierMediumSales      float64
	TierHighMinStock     int
	TierMediumMinStock   int
	TierLowMinStock      int
	BaseBufferDays       int
	IncreasingBufferBump int
	ServiceLevel         float64
}

func readEngine(v *viper.Viper) EngineConfig {
	return EngineConfig{
		WindowDefaultDays:        v.GetInt("WINDOW_DEFAULT_DAYS"),
		WindowIncrementDays:      v.GetInt("WINDOW_INCREMENT_DAYS"),
		WindowMaxDays:            v.GetInt("WINDOW_MAX_DAYS"),
		WindowTrendThreshold:     v.GetFloat64("WINDOW_TREND_THRESHOLD"),
		WindowAnchorEnabled:      v.GetBool("WINDOW_ANCHOR_ENABLED"),
		WindowAnchorLookbackDays: v.GetInt("WINDOW_ANCHOR_LOOKBACK_DAYS"),

		TrendMinDays:              v.GetInt("FORECAST_TREND_MIN_DAYS"),
		TrendClamp:                v.GetFloat64("FORECAST_TREND_CLAMP"),
		TrendLabelThreshold:       v.GetFloat64("FORECAST_TREND_LABEL_THRESHOLD"),
		EmptyConfidence:           v.GetFloat64("FORECAST_EMPTY_CONFIDENCE"),
		ConfidenceBase:            v.GetFloat64("FORECAST_CONFIDENCE_BASE"),
		ConfidenceHistoryWeight:   v.GetFloat64("FORECAST_CONFIDENCE_HISTORY_WEIGHT"),
		ConfidenceHistoryDays:     v.GetFloat64("FORECAST_CONFIDENCE_HISTORY_DAYS"),
		ConfidenceConsistencyBase: v.GetFloat64("FORECAST_CONFIDENCE_CONSISTENCY_BASE"),
		ConfidenceConsistencyWt:   v.GetFloat64("FORECAST_CONFIDENCE_CONSISTENCY_WEIGHT"),
		ConfidenceMin:             v.GetFloat64("FORECAST_CONFIDENCE_MIN"),
		ConfidenceMax:             v.GetFloat64("FORECAST_CONFIDENCE_MAX"),
		WeekendBoost:              v.GetFloat64("FORECAST_WEEKEND_BOOST"),
		Seasonal: [4]float64{
			v.GetFloat64("SEASONAL_Q1"),
			v.GetFloat64("SEASONAL_Q2"),
			v.GetFloat64("SEASONAL_Q3"),
			v.GetFloat64("SEASONAL_Q4"),
		},

		TierHighSales:        v.GetFloat64("POLICY_TIER_HIGH_SALES"),
		TierMediumSales:      v.GetFloat64("POLICY_TIER_MEDIUM_SALES"),
		TierHighMinStock:     v.GetInt("POLICY_TIER_HIGH_MIN_STOCK"),
		TierMediumMinStock:   v.GetInt("POLICY_TIER_MEDIUM_MIN_STOCK"),
		TierLowMinStock:      v.GetInt("POLICY_TIER_LOW_MIN_STOCK"),
		BaseBufferDays:       v.GetInt("POLICY_BASE_BUFFER_DAYS"),
		IncreasingBufferBump: v.GetInt("POLICY_INCREASING_BUFFER_BUMP"),
		ServiceLevel:         v.GetFloat64("POLICY_SERVICE_LEVEL"),
	}
}

// WindowConfig returns the adaptive window sizing.
func (e EngineConfig) WindowConfig() window.Config {
	return window.Config{
		DefaultDays:        e.WindowDefaultDays,
		IncrementDays:      e.WindowIncrementDays,
		MaxDays:            e.WindowMaxDays,
		TrendThreshold:     e.WindowTrendThreshold,
		AnchorEnabled:      e.WindowAnchorEnabled,
		AnchorLookbackDays: e.WindowAnchorLookbackDays,
	}
}

// ForecastParams returns the forecaster tunables. Constants not exposed as
// configuration keep their defaults.
func (e EngineConfig) ForecastParams() forecast.Params {
	p := forecast.DefaultParams()
	p.TrendMinDays = e.TrendMinDays
	p.TrendClamp = e.TrendClamp
	p.TrendLabelThreshold = e.TrendLabelThreshold
	p.EmptyConfidence = e.EmptyConfidence
	p.ConfidenceBase = e.ConfidenceBase
	p.ConfidenceHistoryWeight = e.ConfidenceHistoryWeight
	p.ConfidenceHistoryDays = e.ConfidenceHistoryDays
	p.ConsistencyBase = e.ConfidenceConsistencyBase
	p.ConsistencyWeight = e.ConfidenceConsistencyWt
	p.ConfidenceMin = e.ConfidenceMin
	p.ConfidenceMax = e.ConfidenceMax
	p.WeekendBoost = e.WeekendBoost
	p.Seasonal = e.Seasonal
	return p
}

// PolicyParams returns the policy engine thresholds.
func (e EngineConfig) PolicyParams() policy.Params {
	p := policy.DefaultParams()
	p.HighSales = e.TierHighSales
	p.MediumSales = e.TierMediumSales
	p.HighMinStock = e.TierHighMinStock
	p.MediumMinStock = e.TierMediumMinStock
	p.LowMinStock = e.TierLowMinStock
	p.BaseBufferDays = e.BaseBufferDays
	p.IncreasingBufferBump = e.IncreasingBufferBump
	p.ServiceLevel = e.ServiceLevel
	return p
}

// Validate checks all three derived configurations.
func (e EngineConfig) Validate() error {
	if err := e.WindowConfig().Validate(); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if err := e.ForecastParams().Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if err := e.PolicyParams().Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
