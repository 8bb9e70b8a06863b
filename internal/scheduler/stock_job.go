package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StockAnalyzer runs the stock pipeline for one store.
type StockAnalyzer interface {
	Analyze(ctx context.Context, req service.StockRequest) (*domain.StockAnalysisResult, error)
}

// StockReportExporter persists a stock analysis.
type StockReportExporter interface {
	ExportStock(ctx context.Context, result *domain.StockAnalysisResult) (string, error)
}

// StockAnalysisJob refreshes the stock analysis of a fixed list of stores:
// it drops their cached results, recomputes them and optionally exports reports.
type StockAnalysisJob struct {
	analyzer    StockAnalyzer
	cache       cache.AnalysisCache
	exporter    StockReportExporter
	stores      []string
	parallelism int
	timeout     time.Duration
	log         zerolog.Logger
}

// StockJobOption customizes a StockAnalysisJob.
type StockJobOption func(*StockAnalysisJob)

// WithExporter exports every fresh result.
func WithExporter(e StockReportExporter) StockJobOption {
	return func(j *StockAnalysisJob) { j.exporter = e }
}

// WithCache invalidates the cached analyses of each store before recomputing.
func WithCache(c cache.AnalysisCache) StockJobOption {
	return func(j *StockAnalysisJob) { j.cache = c }
}

// WithParallelism caps concurrently analyzed stores.
func WithParallelism(n int) StockJobOption {
	return func(j *StockAnalysisJob) {
		if n > 0 {
			j.parallelism = n
		}
	}
}

// WithTimeout bounds one run.
func WithTimeout(d time.Duration) StockJobOption {
	return func(j *StockAnalysisJob) { j.timeout = d }
}

func NewStockAnalysisJob(analyzer StockAnalyzer, stores []string, log zerolog.Logger, opts ...StockJobOption) (*StockAnalysisJob, error) {
	if analyzer == nil {
		return nil, domain.MissingCollaborator("stock analyzer")
	}
	j := &StockAnalysisJob{
		analyzer:    analyzer,
		cache:       cache.NewNoopAnalysisCache(),
		stores:      stores,
		parallelism: 4,
		timeout:     10 * time.Minute,
		log:         log.With().Str("job", "stock_analysis").Logger(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

func (j *StockAnalysisJob) Name() string {
	return "stock_analysis"
}

// Run analyzes every store. A failing store does not stop the others; all
// failures are returned joined.
func (j *StockAnalysisJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.RunContext(ctx)
}

func (j *StockAnalysisJob) RunContext(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(j.parallelism)

	for _, storeID := range j.stores {
		g.Go(func() error {
			if err := j.runStore(ctx, storeID); err != nil {
				j.log.Error().Err(err).Str("store_id", storeID).Msg("store analysis failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("store %s: %w", storeID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (j *StockAnalysisJob) runStore(ctx context.Context, storeID string) error {
	if err := j.cache.InvalidateStore(ctx, storeID); err != nil {
		j.log.Warn().Err(err).Str("store_id", storeID).Msg("cache invalidate failed")
	}

	result, err := j.analyzer.Analyze(ctx, service.StockRequest{StoreID: storeID})
	if err != nil {
		return err
	}

	if j.exporter != nil {
		key, err := j.exporter.ExportStock(ctx, result)
		if err != nil {
			return err
		}
		j.log.Debug().Str("store_id", storeID).Str("key", key).Msg("stock report exported")
	}

	j.log.Info().
		Str("store_id", storeID).
		Int("critical", len(result.CriticalProducts)).
		Msg("store analysis refreshed")
	return nil
}
