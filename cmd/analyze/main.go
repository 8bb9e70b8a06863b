package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/pkg/logger"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	cliApp := &cli.App{
		Name:  "analyze",
		Usage: "Run sales and stock analyses from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Data source: postgres or file (overrides DATA_SOURCE)",
				EnvVars: []string{"DATA_SOURCE"},
			},
			&cli.StringFlag{
				Name:  "end-date",
				Usage: "Last day of the analysis window (YYYY-MM-DD), defaults to today",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Maximum number of stores analyzed at once",
				Value: 4,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sales",
				Usage:     "Sales analysis for one or more stores",
				ArgsUsage: "<store> [store...]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "product", Usage: "Restrict to these product ids"},
					&cli.BoolFlag{Name: "export", Usage: "Upload each result to report storage"},
				},
				Action: runSales,
			},
			{
				Name:      "stock",
				Usage:     "Stock analysis and reorder policies for one or more stores",
				ArgsUsage: "<store> [store...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "critical", Usage: "Only print critical products"},
					&cli.BoolFlag{Name: "export", Usage: "Upload each result to report storage"},
				},
				Action: runStock,
			},
			{
				Name:      "product",
				Usage:     "Reorder policy of a single product",
				ArgsUsage: "<store> <product>",
				Action:    runProduct,
			},
			{
				Name:      "reports",
				Usage:     "List exported reports of a store",
				ArgsUsage: "<store>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "sales or stock"},
				},
				Action: runReports,
			},
			{
				Name:      "download",
				Usage:     "Download an exported report",
				ArgsUsage: "<key> <dest>",
				Action:    runDownload,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("analyze failed")
	}
}

func openApp(c *cli.Context) (*app.App, error) {
	cfg := config.Load()
	logger.Configure(cfg.Log.Format, cfg.Log.Level)
	if source := c.String("source"); source != "" {
		cfg.Data.Source = strings.ToLower(source)
	}
	return app.Open(c.Context, cfg, logger.Component("analyze"))
}

func endDate(c *cli.Context) (time.Time, error) {
	raw := c.String("end-date")
	if raw == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(raw)
}

func stores(c *cli.Context) ([]string, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("at least one store id is required")
	}
	return c.Args().Slice(), nil
}

// forEachStore runs fn for every store with bounded parallelism and prints
// the results in argument order.
func forEachStore(c *cli.Context, ids []string, fn func(ctx context.Context, storeID string) (interface{}, error)) error {
	results := make([]interface{}, len(ids))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(1, c.Int("parallel")))
	for i, id := range ids {
		g.Go(func() error {
			res, err := fn(ctx, id)
			if err != nil {
				return fmt.Errorf("store %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(results) == 1 {
		return printJSON(c.App.Writer, results[0])
	}
	return printJSON(c.App.Writer, results)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type salesAnalyzer interface {
	Analyze(ctx context.Context, req service.SalesRequest) (*domain.SalesAnalysisResult, error)
}

type stockAnalyzer interface {
	Analyze(ctx context.Context, req service.StockRequest) (*domain.StockAnalysisResult, error)
}

type reportExporter interface {
	ExportSales(ctx context.Context, result *domain.SalesAnalysisResult) (string, error)
	ExportStock(ctx context.Context, result *domain.StockAnalysisResult) (string, error)
}

// analyzeSales runs one sales analysis and uploads it when exporter is set.
func analyzeSales(ctx context.Context, svc salesAnalyzer, exporter reportExporter, req service.SalesRequest) (*domain.SalesAnalysisResult, error) {
	res, err := svc.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		key, err := exporter.ExportSales(ctx, res)
		if err != nil {
			return nil, err
		}
		logger.Log.Info().Str("store_id", req.StoreID).Str("key", key).Msg("report exported")
	}
	return res, nil
}

// analyzeStock runs one stock analysis and uploads it when exporter is set.
func analyzeStock(ctx context.Context, svc stockAnalyzer, exporter reportExporter, req service.StockRequest) (*domain.StockAnalysisResult, error) {
	res, err := svc.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		key, err := exporter.ExportStock(ctx, res)
		if err != nil {
			return nil, err
		}
		logger.Log.Info().Str("store_id", req.StoreID).Str("key", key).Msg("report exported")
	}
	return res, nil
}

// exporterFor returns the report exporter when --export is set.
func exporterFor(c *cli.Context, a *app.App) (reportExporter, error) {
	if !c.Bool("export") {
		return nil, nil
	}
	if a.Reports == nil {
		return nil, fmt.Errorf("--export needs STORAGE_ENABLED=true")
	}
	return a.Reports, nil
}

func runSales(c *cli.Context) error {
	ids, err := stores(c)
	if err != nil {
		return err
	}
	end, err := endDate(c)
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter, err := exporterFor(c, a)
	if err != nil {
		return err
	}

	return forEachStore(c, ids, func(ctx context.Context, storeID string) (interface{}, error) {
		return analyzeSales(ctx, a.Sales, exporter, service.SalesRequest{StoreID: storeID, EndDate: end, ProductIDs: c.StringSlice("product")})
	})
}

func runStock(c *cli.Context) error {
	ids, err := stores(c)
	if err != nil {
		return err
	}
	end, err := endDate(c)
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter, err := exporterFor(c, a)
	if err != nil {
		return err
	}

	return forEachStore(c, ids, func(ctx context.Context, storeID string) (interface{}, error) {
		res, err := analyzeStock(ctx, a.Stock, exporter, service.StockRequest{StoreID: storeID, EndDate: end})
		if err != nil {
			return nil, err
		}
		if c.Bool("critical") {
			return res.CriticalProducts, nil
		}
		return res, nil
	})
}

func runProduct(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: analyze product <store> <product>")
	}
	end, err := endDate(c)
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	policy, err := a.Stock.AnalyzeProduct(c.Context, service.StockRequest{StoreID: c.Args().Get(0), EndDate: end}, c.Args().Get(1))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, policy)
}

func runReports(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: analyze reports <store>")
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Reports == nil {
		return fmt.Errorf("report storage is disabled")
	}
	reports, err := a.Reports.ListReports(c.Context, c.Args().Get(0), c.String("kind"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, reports)
}

func runDownload(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: analyze download <key> <dest>")
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Reports == nil {
		return fmt.Errorf("report storage is disabled")
	}
	return a.Reports.Download(c.Context, c.Args().Get(0), c.Args().Get(1))
}
