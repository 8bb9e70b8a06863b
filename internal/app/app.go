package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/rs/zerolog"
)

// App holds the wired services shared by the server and the CLI.
type App struct {
	Sales   *service.SalesAnalysisService
	Stock   *service.StockAnalysisService
	Cache   cache.AnalysisCache
	Reports *storage.ReportExporter // nil when storage is disabled

	closers []func() error
}

// Sources bundles the two repositories an App reads from.
type Sources struct {
	Sales repository.SalesHistorySource
	Stock repository.StockSnapshotSource
	close func() error
}

// OpenSources opens the configured data source.
func OpenSources(ctx context.Context, cfg *config.Config) (*Sources, error) {
	switch cfg.Data.Source {
	case config.SourceFile:
		sales, err := memory.LoadSalesFile(cfg.Data.SalesFile)
		if err != nil {
			return nil, err
		}
		stock, err := memory.LoadStockFile(cfg.Data.StockFile)
		if err != nil {
			return nil, err
		}
		return &Sources{Sales: sales, Stock: stock}, nil
	case config.SourcePostgres, "":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Sources{
			Sales: postgres.NewSalesRepository(db),
			Stock: postgres.NewStockRepository(db),
			close: db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown data source %q", domain.ErrConfiguration, cfg.Data.Source)
	}
}

// newAnalysisCache is swapped in tests.
var newAnalysisCache = cache.NewAnalysisCache

// New wires the analysis services on top of src. On success the App owns src
// and closes it with the cache; on failure src is left to the caller.
func New(ctx context.Context, cfg *config.Config, src *Sources, log zerolog.Logger) (_ *App, err error) {
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	analysisCache, err := newAnalysisCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = analysisCache.Close()
		}
	}()

	opts := service.Options{
		Window:   cfg.Engine.WindowConfig(),
		Forecast: cfg.Engine.ForecastParams(),
		Policy:   cfg.Engine.PolicyParams(),
		Cache:    analysisCache,
		Logger:   log,
	}

	sales, err := service.NewSalesAnalysisService(src.Sales, opts)
	if err != nil {
		return nil, err
	}
	stock, err := service.NewStockAnalysisService(src.Sales, src.Stock, opts)
	if err != nil {
		return nil, err
	}

	a := &App{Sales: sales, Stock: stock, Cache: analysisCache}

	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		if a.Reports, err = storage.NewReportExporter(client, log); err != nil {
			return nil, err
		}
	}

	a.closers = append(a.closers, analysisCache.Close)
	if src.close != nil {
		a.closers = append(a.closers, src.close)
	}
	return a, nil
}

// Open is OpenSources followed by New.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	src, err := OpenSources(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, src, log)
	if err != nil {
		if src.close != nil {
			src.close()
		}
		return nil, err
	}
	return a, nil
}

func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
