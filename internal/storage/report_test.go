package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
	err     error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStorage) DownloadObject(_ context.Context, key, destPath string) error {
	data, ok := m.objects[key]
	if !ok {
		return errors.New("not found")
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[key] = data
	return nil
}

var day = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/s1/stock/2024-07-01/abc.json", ReportKey("s1", ReportStock, day, "abc"))
}

func TestReportExporter_ExportAndList(t *testing.T) {
	store := newMemoryStorage()
	exporter, err := NewReportExporter(store, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	stockKey, err := exporter.ExportStock(ctx, &domain.StockAnalysisResult{AnalysisID: "a1", StoreID: "s1", AnalysisDate: day, TotalValue: 12.5})
	require.NoError(t, err)
	salesKey, err := exporter.ExportSales(ctx, &domain.SalesAnalysisResult{AnalysisID: "a2", StoreID: "s1", Status: domain.StatusNoData, GeneratedAt: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	_, err = exporter.ExportStock(ctx, &domain.StockAnalysisResult{AnalysisID: "a3", StoreID: "s2", AnalysisDate: day})
	require.NoError(t, err)

	var decoded domain.StockAnalysisResult
	require.NoError(t, json.Unmarshal(store.objects[stockKey], &decoded))
	assert.Equal(t, 12.5, decoded.TotalValue)

	all, err := exporter.ListReports(ctx, "s1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	sales, err := exporter.ListReports(ctx, "s1", ReportSales)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, salesKey, sales[0].Key)
}

func TestReportExporter_Download(t *testing.T) {
	store := newMemoryStorage()
	exporter, err := NewReportExporter(store, zerolog.Nop())
	require.NoError(t, err)

	key, err := exporter.ExportStock(context.Background(), &domain.StockAnalysisResult{AnalysisID: "a1", StoreID: "s1", AnalysisDate: day})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, exporter.Download(context.Background(), key, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"analysis_id": "a1"`)

	assert.Error(t, exporter.Download(context.Background(), "secrets/x.json", dest))
}

func TestReportExporter_UploadError(t *testing.T) {
	store := newMemoryStorage()
	store.err = errors.New("bucket gone")
	exporter, err := NewReportExporter(store, zerolog.Nop())
	require.NoError(t, err)

	_, err = exporter.ExportStock(context.Background(), &domain.StockAnalysisResult{AnalysisID: "a1", StoreID: "s1", AnalysisDate: day})
	assert.ErrorIs(t, err, store.err)
}

func TestNewReportExporter_RequiresStorage(t *testing.T) {
	_, err := NewReportExporter(nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewMinioClient_Validates(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{})
	assert.Error(t, err)

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)

	c, err := NewMinioClient(config.StorageConfig{Endpoint: "https://s3.example.com", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", c.bucket)
}
