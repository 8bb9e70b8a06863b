package window

import "fmt"

// Config sizes the adaptive window.
type Config struct {
	DefaultDays   int
	IncrementDays int
	MaxDays       int
	// TrendThreshold is the max absolute weekly trend tolerated before one corrective widening.
	TrendThreshold     float64
	AnchorEnabled      bool
	AnchorLookbackDays int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DefaultDays:        30,
		IncrementDays:      15,
		MaxDays:            60,
		TrendThreshold:     0.6,
		AnchorEnabled:      true,
		AnchorLookbackDays: 365,
	}
}

// Validate rejects configurations that could not terminate or make no sense.
func (c Config) Validate() error {
	switch {
	case c.DefaultDays < 1:
		return fmt.Errorf("default days must be positive, got %d", c.DefaultDays)
	case c.IncrementDays < 1:
		return fmt.Errorf("increment days must be positive, got %d", c.IncrementDays)
	case c.MaxDays < c.DefaultDays:
		return fmt.Errorf("max days %d below default days %d", c.MaxDays, c.DefaultDays)
	case c.TrendThreshold < 0:
		return fmt.Errorf("trend threshold must be non-negative")
	case c.AnchorEnabled && c.AnchorLookbackDays < c.MaxDays:
		return fmt.Errorf("anchor lookback %d shorter than max days %d", c.AnchorLookbackDays, c.MaxDays)
	}
	return nil
}

// MaxAttempts bounds the number of fetches a run may make: the initial
// attempt, every no-data widening up to the ceiling, one anchored attempt and
// one trend-triggered widening.
func (c Config) MaxAttempts() int {
	steps := (c.MaxDays - c.DefaultDays + c.IncrementDays - 1) / c.IncrementDays
	return 1 + steps + 1 + 1
}
