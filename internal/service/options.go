package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/policy"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/window"
	"github.com/rs/zerolog"
)

// Options configures the analysis pipelines. Zero-value fields other than the
// engine parameters fall back to a no-op cache, a silent logger and time.Now.
type Options struct {
	Window   window.Config
	Forecast forecast.Params
	Policy   policy.Params

	Cache  cache.AnalysisCache
	Logger zerolog.Logger
	Now    func() time.Time
}

// DefaultOptions returns the documented engine defaults without a cache.
func DefaultOptions() Options {
	return Options{
		Window:   window.DefaultConfig(),
		Forecast: forecast.DefaultParams(),
		Policy:   policy.DefaultParams(),
		Logger:   zerolog.Nop(),
	}
}

func (o Options) withFallbacks() Options {
	if o.Cache == nil {
		o.Cache = cache.NewNoopAnalysisCache()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// buildController wires the forecaster and window controller shared by both pipelines.
func buildController(sales repository.SalesHistorySource, opts Options) (*window.Controller, *forecast.Forecaster, error) {
	if sales == nil {
		return nil, nil, domain.MissingCollaborator("sales history source")
	}

	forecaster, err := forecast.NewForecaster(opts.Forecast)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	controller, err := window.NewController(opts.Window, sales, forecaster, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	return controller, forecaster, nil
}

// resolveEnd defaults a zero end date to today.
func resolveEnd(end time.Time, now func() time.Time) time.Time {
	if end.IsZero() {
		return domain.DateOf(now())
	}
	return domain.DateOf(end)
}

func requireStore(storeID string) (string, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return "", fmt.Errorf("%w: store id is required", domain.ErrInvalidRequest)
	}
	return storeID, nil
}

func cleanIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
