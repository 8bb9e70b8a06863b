package config

import (
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/policy"
	"github.com/andresuchdata/replenish/internal/window"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Data      DataConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Engine    EngineConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxConcurrent   int64
}

// Data source kinds.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

type DataConfig struct {
	Source    string
	SalesFile string
	StockFile string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	AnalysisTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type SchedulerConfig struct {
	Enabled bool
	Spec    string
	Stores  []string
	// Parallelism caps how many stores one run analyzes at once.
	Parallelism int
	// RunOnStart triggers one run when the server boots.
	RunOnStart bool
}

type LogConfig struct {
	Format string
	Level  string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once and returns the process configuration.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = Read(viper.GetViper())
	})

	return instance
}

// Read builds a Config from v after registering defaults and binding the environment.
func Read(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: list(v, "SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			MaxConcurrent:   v.GetInt64("DB_MAX_CONCURRENT"),
		},
		Data: DataConfig{
			Source:    strings.ToLower(v.GetString("DATA_SOURCE")),
			SalesFile: v.GetString("DATA_SALES_FILE"),
			StockFile: v.GetString("DATA_STOCK_FILE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			AnalysisTTLSeconds: v.GetInt("CACHE_ANALYSIS_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Scheduler: SchedulerConfig{
			Enabled:     v.GetBool("SCHEDULER_ENABLED"),
			Spec:        v.GetString("SCHEDULER_SPEC"),
			Stores:      list(v, "SCHEDULER_STORES"),
			Parallelism: v.GetInt("SCHEDULER_PARALLELISM"),
			RunOnStart:  v.GetBool("SCHEDULER_RUN_ON_START"),
		},
		Engine: readEngine(v),
		Log: LogConfig{
			Format: v.GetString("LOG_FORMAT"),
			Level:  v.GetString("LOG_LEVEL"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("DB_MAX_CONCURRENT", 10)

	v.SetDefault("DATA_SOURCE", SourcePostgres)
	v.SetDefault("DATA_SALES_FILE", "./data/sales.json")
	v.SetDefault("DATA_STOCK_FILE", "./data/stock.json")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ANALYSIS_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_BUCKET", "replenish-reports")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", false)

	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("SCHEDULER_SPEC", "0 0 6 * * *")
	v.SetDefault("SCHEDULER_STORES", "")
	v.SetDefault("SCHEDULER_PARALLELISM", 4)
	v.SetDefault("SCHEDULER_RUN_ON_START", false)

	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_LEVEL", "info")

	w := window.DefaultConfig()
	v.SetDefault("WINDOW_DEFAULT_DAYS", w.DefaultDays)
	v.SetDefault("WINDOW_INCREMENT_DAYS", w.IncrementDays)
	v.SetDefault("WINDOW_MAX_DAYS", w.MaxDays)
	v.SetDefault("WINDOW_TREND_THRESHOLD", w.TrendThreshold)
	v.SetDefault("WINDOW_ANCHOR_ENABLED", w.AnchorEnabled)
	v.SetDefault("WINDOW_ANCHOR_LOOKBACK_DAYS", w.AnchorLookbackDays)

	f := forecast.DefaultParams()
	v.SetDefault("FORECAST_TREND_MIN_DAYS", f.TrendMinDays)
	v.SetDefault("FORECAST_TREND_CLAMP", f.TrendClamp)
	v.SetDefault("FORECAST_TREND_LABEL_THRESHOLD", f.TrendLabelThreshold)
	v.SetDefault("FORECAST_EMPTY_CONFIDENCE", f.EmptyConfidence)
	v.SetDefault("FORECAST_CONFIDENCE_BASE", f.ConfidenceBase)
	v.SetDefault("FORECAST_CONFIDENCE_HISTORY_WEIGHT", f.ConfidenceHistoryWeight)
	v.SetDefault("FORECAST_CONFIDENCE_HISTORY_DAYS", f.ConfidenceHistoryDays)
	v.SetDefault("FORECAST_CONFIDENCE_CONSISTENCY_BASE", f.ConsistencyBase)
	v.SetDefault("FORECAST_CONFIDENCE_CONSISTENCY_WEIGHT", f.ConsistencyWeight)
	v.SetDefault("FORECAST_CONFIDENCE_MIN", f.ConfidenceMin)
	v.SetDefault("FORECAST_CONFIDENCE_MAX", f.ConfidenceMax)
	v.SetDefault("FORECAST_WEEKEND_BOOST", f.WeekendBoost)
	for i, q := range []string{"SEASONAL_Q1", "SEASONAL_Q2", "SEASONAL_Q3", "SEASONAL_Q4"} {
		v.SetDefault(q, f.Seasonal[i])
	}

	p := policy.DefaultParams()
	v.SetDefault("POLICY_TIER_HIGH_SALES", p.HighSales)
	v.SetDefault("POLICY_TIER_MEDIUM_SALES", p.MediumSales)
	v.SetDefault("POLICY_TIER_HIGH_MIN_STOCK", p.HighMinStock)
	v.SetDefault("POLICY_TIER_MEDIUM_MIN_STOCK", p.MediumMinStock)
	v.SetDefault("POLICY_TIER_LOW_MIN_STOCK", p.LowMinStock)
	v.SetDefault("POLICY_BASE_BUFFER_DAYS", p.BaseBufferDays)
	v.SetDefault("POLICY_INCREASING_BUFFER_BUMP", p.IncreasingBufferBump)
	v.SetDefault("POLICY_SERVICE_LEVEL", p.ServiceLevel)
}

// list reads a comma separated value. Environment variables arrive as a single
// string, defaults may be either form.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, raw := range v.GetStringSlice(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
