package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 儲存後端名稱
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendRedis     = "redis"
	BackendSupabase  = "supabase"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendBadger    = "badger"
)

// Config 應用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	CatalogCache CatalogCacheConfig `mapstructure:"catalog_cache"`
	Search       SearchConfig       `mapstructure:"search"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	DedupWindow  time.Duration      `mapstructure:"dedup_window"`
	LogLevel     string             `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// StorageConfig 儲存層設定
// backend 為主要儲存；mirror_local 開啟時遠端後端會搭配本機檔案鏡像作為備援
type StorageConfig struct {
	Backend     string          `mapstructure:"backend"`
	DataDir     string          `mapstructure:"data_dir"`
	MirrorLocal bool            `mapstructure:"mirror_local"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Breaker     BreakerConfig   `mapstructure:"breaker"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Supabase    SupabaseConfig  `mapstructure:"supabase"`
	Firestore   FirestoreConfig `mapstructure:"firestore"`
	Postgres    PostgresConfig  `mapstructure:"postgres"`
	Badger      BadgerConfig    `mapstructure:"badger"`
}

// BreakerConfig 遠端儲存熔斷器設定
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SupabaseConfig Supabase Storage 設定
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Bucket  string `mapstructure:"bucket"`
	Retries int    `mapstructure:"retries"`
}

// FirestoreConfig Firestore 設定
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Collection      string `mapstructure:"collection"`
}

// PostgresConfig Postgres 設定
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// BadgerConfig 內嵌 KV 設定
type BadgerConfig struct {
	Dir string `mapstructure:"dir"`
}

// CatalogCacheConfig 目錄快取設定
type CatalogCacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SearchConfig 搜尋設定
type SearchConfig struct {
	SuggestionThreshold float64 `mapstructure:"suggestion_threshold"`
	MaxSuggestions      int     `mapstructure:"max_suggestions"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時僅使用環境變數與預設值
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment and defaults")
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	bindings := map[string]string{
		"storage.backend":                    "STORAGE_BACKEND",
		"storage.data_dir":                   "DATA_DIR",
		"storage.mirror_local":               "STORAGE_MIRROR_LOCAL",
		"storage.redis.addr":                 "REDIS_ADDR",
		"storage.redis.password":             "REDIS_PASSWORD",
		"storage.supabase.url":               "SUPABASE_URL",
		"storage.supabase.api_key":           "SUPABASE_ANON_KEY",
		"storage.supabase.bucket":            "SUPABASE_BUCKET",
		"storage.firestore.project_id":       "FIRESTORE_PROJECT_ID",
		"storage.firestore.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
		"storage.postgres.dsn":               "DATABASE_DSN",
		"storage.badger.dir":                 "BADGER_DIR",
		"catalog_cache.enabled":              "CACHE_ENABLED",
		"rate_limit.enabled":                 "RATE_LIMIT_ENABLED",
		"rate_limit.requests":                "RATE_LIMIT_REQUESTS",
		"rate_limit.window":                  "RATE_LIMIT_WINDOW",
		"dedup_window":                       "DEDUP_WINDOW",
		"log_level":                          "LOG_LEVEL",
		"server.port":                        "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 設定檔（可選）
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutritrack")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 儲存設定
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.mirror_local", true)
	v.SetDefault("storage.timeout", "10s")
	v.SetDefault("storage.breaker.max_failures", 5)
	v.SetDefault("storage.breaker.open_timeout", "30s")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "nutritrack:")
	v.SetDefault("storage.supabase.bucket", "data")
	v.SetDefault("storage.supabase.retries", 2)
	v.SetDefault("storage.firestore.collection", "storage")
	v.SetDefault("storage.postgres.table", "documents")
	v.SetDefault("storage.badger.dir", "data/badger")

	// 目錄快取設定
	v.SetDefault("catalog_cache.enabled", true)
	v.SetDefault("catalog_cache.max_size", 256)
	v.SetDefault("catalog_cache.ttl", "5m")
	v.SetDefault("catalog_cache.cleanup_interval", "1m")

	// 搜尋設定
	v.SetDefault("search.suggestion_threshold", 0.3)
	v.SetDefault("search.max_suggestions", 20)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證儲存設定
	s := config.Storage
	switch s.Backend {
	case BackendMemory:
	case BackendFile:
		if s.DataDir == "" {
			return fmt.Errorf("storage data_dir is required for file backend")
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
	case BackendSupabase:
		if s.Supabase.URL == "" || s.Supabase.APIKey == "" {
			return fmt.Errorf("supabase url and api key are required")
		}
	case BackendFirestore:
		if s.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore project id is required")
		}
	case BackendPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	case BackendBadger:
		if s.Badger.Dir == "" {
			return fmt.Errorf("badger dir is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
	if s.MirrorLocal && s.DataDir == "" {
		return fmt.Errorf("storage data_dir is required when mirror_local is enabled")
	}

	// 驗證快取設定
	if config.CatalogCache.Enabled {
		if config.CatalogCache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.CatalogCache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.CatalogCache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證搜尋設定
	if config.Search.SuggestionThreshold < 0 || config.Search.SuggestionThreshold > 1 {
		return fmt.Errorf("search suggestion threshold must be within [0, 1]")
	}
	if config.Search.MaxSuggestions <= 0 {
		return fmt.Errorf("invalid search max suggestions")
	}

	// 驗證限流設定
	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit")
		}
	}

	return nil
}
