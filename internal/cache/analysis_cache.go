package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	analysisKeyPrefix = "analysis"
	scanBatchSize     = 100
)

// Analysis kinds, also used as report folder names.
const (
	KindSales = "sales"
	KindStock = "stock"
)

// Key identifies one cached analysis result.
type Key struct {
	Kind       string
	StoreID    string
	End        time.Time
	ProductIDs []string
}

// String renders the redis key. The store id stays readable so a store can be
// invalidated by prefix; the rest is hashed.
func (k Key) String() string {
	parts := []string{"end=" + domain.FormatDate(k.End)}
	if len(k.ProductIDs) > 0 {
		parts = append(parts, "products="+joinStrings(k.ProductIDs))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s:%s", storePrefix(k.StoreID), k.Kind, hex.EncodeToString(sum[:]))
}

func storePrefix(storeID string) string {
	return fmt.Sprintf("%s:%s", analysisKeyPrefix, strings.TrimSpace(storeID))
}

// AnalysisCache stores analysis results between identical requests.
type AnalysisCache interface {
	GetSales(ctx context.Context, key Key) (*domain.SalesAnalysisResult, bool, error)
	SetSales(ctx context.Context, key Key, result *domain.SalesAnalysisResult) error
	GetStock(ctx context.Context, key Key) (*domain.StockAnalysisResult, bool, error)
	SetStock(ctx context.Context, key Key, result *domain.StockAnalysisResult) error
	InvalidateStore(ctx context.Context, storeID string) error
	// Close releases the underlying connection.
	Close() error
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

// NewAnalysisCache returns a redis cache when enabled, a no-op cache otherwise.
func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisAnalysisCache(client, ttl), nil
}

// NewRedisAnalysisCache wraps an existing client.
func NewRedisAnalysisCache(client *redis.Client, ttl time.Duration) AnalysisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisAnalysisCache{client: client, ttl: ttl}
}

func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) GetSales(ctx context.Context, key Key) (*domain.SalesAnalysisResult, bool, error) {
	var result domain.SalesAnalysisResult
	ok, err := c.get(ctx, key, &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *redisAnalysisCache) SetSales(ctx context.Context, key Key, result *domain.SalesAnalysisResult) error {
	return c.set(ctx, key, result)
}

func (c *redisAnalysisCache) GetStock(ctx context.Context, key Key) (*domain.StockAnalysisResult, bool, error) {
	var result domain.StockAnalysisResult
	ok, err := c.get(ctx, key, &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *redisAnalysisCache) SetStock(ctx context.Context, key Key, result *domain.StockAnalysisResult) error {
	return c.set(ctx, key, result)
}

func (c *redisAnalysisCache) InvalidateStore(ctx context.Context, storeID string) error {
	return deleteKeysWithPrefix(ctx, c.client, storePrefix(storeID)+":", scanBatchSize)
}

func (c *redisAnalysisCache) Close() error {
	return c.client.Close()
}

func (c *redisAnalysisCache) get(ctx context.Context, key Key, dst interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s analysis cache: %w", key.Kind, err)
	}
	return true, nil
}

func (c *redisAnalysisCache) set(ctx context.Context, key Key, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s analysis cache: %w", key.Kind, err)
	}

	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopAnalysisCache) GetSales(ctx context.Context, key Key) (*domain.SalesAnalysisResult, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) SetSales(ctx context.Context, key Key, result *domain.SalesAnalysisResult) error {
	return nil
}

func (n *noopAnalysisCache) GetStock(ctx context.Context, key Key) (*domain.StockAnalysisResult, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) SetStock(ctx context.Context, key Key, result *domain.StockAnalysisResult) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateStore(ctx context.Context, storeID string) error {
	return nil
}

func (n *noopAnalysisCache) Close() error {
	return nil
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(c[i])
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
