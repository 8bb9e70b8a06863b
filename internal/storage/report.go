package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/rs/zerolog"
)

const reportRoot = "reports"

// Report kinds.
const (
	ReportSales = "sales"
	ReportStock = "stock"
)

// ReportKey builds reports/<store>/<kind>/<yyyy-mm-dd>/<analysis id>.json.
func ReportKey(storeID, kind string, date time.Time, analysisID string) string {
	return path.Join(reportRoot, storeID, kind, domain.FormatDate(date), analysisID+".json")
}

// ReportExporter writes analysis results as JSON documents to object storage.
type ReportExporter struct {
	store ObjectStorage
	log   zerolog.Logger
}

func NewReportExporter(store ObjectStorage, log zerolog.Logger) (*ReportExporter, error) {
	if store == nil {
		return nil, domain.MissingCollaborator("object storage")
	}
	return &ReportExporter{store: store, log: log.With().Str("component", "report_exporter").Logger()}, nil
}

// ExportSales uploads a sales analysis and returns its key.
func (e *ReportExporter) ExportSales(ctx context.Context, result *domain.SalesAnalysisResult) (string, error) {
	key := ReportKey(result.StoreID, ReportSales, result.GeneratedAt, result.AnalysisID)
	return key, e.upload(ctx, key, result)
}

// ExportStock uploads a stock analysis and returns its key.
func (e *ReportExporter) ExportStock(ctx context.Context, result *domain.StockAnalysisResult) (string, error) {
	key := ReportKey(result.StoreID, ReportStock, result.AnalysisDate, result.AnalysisID)
	return key, e.upload(ctx, key, result)
}

// ListReports returns the report keys of a store, newest date first. An empty
// kind lists every kind.
func (e *ReportExporter) ListReports(ctx context.Context, storeID, kind string) ([]ObjectInfo, error) {
	prefix := path.Join(reportRoot, storeID) + "/"
	if kind != "" {
		prefix = path.Join(reportRoot, storeID, kind) + "/"
	}

	objects, err := e.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := objects[:0]
	for _, o := range objects {
		if strings.HasSuffix(o.Key, ".json") {
			reports = append(reports, o)
		}
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Key > reports[j].Key })
	return reports, nil
}

// Download copies a report to destPath.
func (e *ReportExporter) Download(ctx context.Context, key, destPath string) error {
	if !strings.HasPrefix(key, reportRoot+"/") {
		return fmt.Errorf("%q is not a report key", key)
	}
	return e.store.DownloadObject(ctx, key, destPath)
}

func (e *ReportExporter) upload(ctx context.Context, key string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := e.store.UploadObject(ctx, key, payload); err != nil {
		return fmt.Errorf("upload report: %w", err)
	}

	e.log.Info().Str("key", key).Int("bytes", len(payload)).Msg("report exported")
	return nil
}
