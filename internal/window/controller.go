package window

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/rs/zerolog"
)

// State is a step of the adaptive window state machine.
type State string

const (
	StateInitial   State = "initial"
	StateWidening  State = "widening"
	StateAnchoring State = "anchoring"
	StateDone      State = "done"
)

// Reasons recorded on attempts.
const (
	ReasonInitial      = "initial"
	ReasonNoData       = "no_data"
	ReasonTrendExtreme = "trend_too_extreme"
	ReasonAnchor       = "anchor"
)

// Request identifies the data one analysis runs over.
type Request struct {
	StoreID    string
	End        time.Time
	ProductIDs []string
}

// Attempt records one fetch-and-analyze pass.
type Attempt struct {
	State  State                 `json:"state"`
	Reason string                `json:"reason"`
	Window domain.AnalysisWindow `json:"window"`
	Events int                   `json:"events"`
}

// Outcome is the terminal result of a controller run.
type Outcome struct {
	Status    domain.AnalysisStatus
	Requested domain.AnalysisWindow
	// Analysis.Window is the effective window backing the numbers.
	Analysis forecast.Analysis
	Attempts []Attempt
}

// Controller drives fetch → analyze → maybe widen cycles for one request at a time.
// It holds no state between runs and is safe for concurrent use.
type Controller struct {
	cfg        Config
	source     repository.SalesHistorySource
	forecaster *forecast.Forecaster
	log        zerolog.Logger
}

// NewController builds a Controller. source and forecaster are required.
func NewController(cfg Config, source repository.SalesHistorySource, forecaster *forecast.Forecaster, log zerolog.Logger) (*Controller, error) {
	if source == nil {
		return nil, domain.MissingCollaborator("sales history source")
	}
	if forecaster == nil {
		return nil, domain.MissingCollaborator("forecaster")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: window config: %v", domain.ErrConfiguration, err)
	}

	return &Controller{
		cfg:        cfg,
		source:     source,
		forecaster: forecaster,
		log:        log.With().Str("component", "window_controller").Logger(),
	}, nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

type run struct {
	state        State
	reason       string
	window       domain.AnalysisWindow
	result       forecast.Analysis
	hasResult    bool
	anchored     bool
	trendWidened bool
}

// Run executes the state machine for req. Transport errors from the source are
// returned as domain.UpstreamError and never retried.
func (c *Controller) Run(ctx context.Context, req Request) (Outcome, error) {
	requested := domain.NewAnalysisWindow(req.End, c.cfg.DefaultDays)
	r := &run{state: StateInitial, reason: ReasonInitial, window: requested}
	out := Outcome{Requested: requested}

	maxAttempts := c.cfg.MaxAttempts()
	for attempt := 0; r.state != StateDone; attempt++ {
		if attempt >= maxAttempts {
			return Outcome{}, fmt.Errorf("window controller exceeded %d attempts for store %s", maxAttempts, req.StoreID)
		}

		if r.state == StateAnchoring {
			anchor, ok, err := c.findAnchor(ctx, req)
			if err != nil {
				return Outcome{}, err
			}
			r.anchored = true
			if !ok {
				c.log.Debug().Str("store_id", req.StoreID).Msg("no anchor date within lookback")
				r.state = StateDone
				break
			}
			r.window = domain.NewAnalysisWindow(anchor, requested.Days)
			c.log.Info().
				Str("store_id", req.StoreID).
				Str("anchor", domain.FormatDate(anchor)).
				Msg("anchoring window to latest sale date")
		}

		analysis, err := c.fetchAndAnalyze(ctx, req, r.window)
		if err != nil {
			return Outcome{}, err
		}
		out.Attempts = append(out.Attempts, Attempt{
			State:  r.state,
			Reason: r.reason,
			Window: r.window,
			Events: len(analysis.Events),
		})

		c.advance(r, analysis, req.StoreID)
	}

	out.Analysis = r.result
	out.Status = domain.StatusSuccess
	if !r.hasResult {
		out.Status = domain.StatusNoData
		out.Analysis = forecast.Analysis{Window: r.window}
	}
	return out, nil
}

// advance applies the transition that follows an analyzed window.
func (c *Controller) advance(r *run, analysis forecast.Analysis, storeID string) {
	if analysis.Empty() {
		switch {
		case r.hasResult || r.anchored:
			r.state = StateDone
		case r.window.Days < c.cfg.MaxDays:
			c.widen(r, ReasonNoData, storeID)
		case c.cfg.AnchorEnabled:
			r.state = StateAnchoring
			r.reason = ReasonAnchor
		default:
			r.state = StateDone
		}
		return
	}

	r.result = analysis
	r.hasResult = true

	trend := analysis.MaxAbsTrend()
	if !r.trendWidened && trend > c.cfg.TrendThreshold && r.window.Days < c.cfg.MaxDays {
		r.trendWidened = true
		c.log.Debug().Float64("max_abs_trend", trend).Msg("trend above threshold")
		c.widen(r, ReasonTrendExtreme, storeID)
		return
	}
	r.state = StateDone
}

func (c *Controller) widen(r *run, reason, storeID string) {
	days := min(r.window.Days+c.cfg.IncrementDays, c.cfg.MaxDays)
	next := domain.NewAnalysisWindow(r.window.End, days)

	c.log.Info().
		Str("store_id", storeID).
		Str("reason", reason).
		Int("from_days", r.window.Days).
		Int("to_days", days).
		Msg("widening analysis window")

	r.window = next
	r.state = StateWidening
	r.reason = reason
}

func (c *Controller) fetchAndAnalyze(ctx context.Context, req Request, w domain.AnalysisWindow) (forecast.Analysis, error) {
	events, err := c.source.GetSalesRecords(ctx, req.StoreID, w.Start, w.End, req.ProductIDs)
	if err != nil {
		return forecast.Analysis{}, domain.Upstream("get sales records", err)
	}
	return c.forecaster.Analyze(events, w), nil
}

// findAnchor returns the most recent date with any sale within the anchor
// lookback ending at the requested end date.
func (c *Controller) findAnchor(ctx context.Context, req Request) (time.Time, bool, error) {
	lookback := domain.NewAnalysisWindow(req.End, c.cfg.AnchorLookbackDays)

	if finder, ok := c.source.(repository.LatestSaleDateFinder); ok {
		latest, found, err := finder.LatestSaleDate(ctx, req.StoreID, lookback.Start, lookback.End, req.ProductIDs)
		if err != nil {
			return time.Time{}, false, domain.Upstream("latest sale date", err)
		}
		return domain.DateOf(latest), found, nil
	}

	events, err := c.source.GetSalesRecords(ctx, req.StoreID, lookback.Start, lookback.End, req.ProductIDs)
	if err != nil {
		return time.Time{}, false, domain.Upstream("get sales records", err)
	}

	var latest time.Time
	for _, e := range events {
		if d := domain.DateOf(e.Date); lookback.Contains(d) && d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero(), nil
}
