package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Canvas client transport modes.
const (
	CanvasModeRelay  = "relay"
	CanvasModeDirect = "direct"
)

// Store persistence backends.
const (
	StoreBackendMemory   = "memory"
	StoreBackendFile     = "file"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	RelayPort int

	Database DatabaseConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Relay    RelayConfig
	Canvas   CanvasConfig
	Store    StoreConfig
	Refresh  RefreshConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the embedded database file.
type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RelayConfig tunes the credential-forwarding proxy.
type RelayConfig struct {
	Prefix          string
	UserAgent       string
	UpstreamTimeout time.Duration
}

// CanvasConfig configures how the triage server reaches the Canvas API.
type CanvasConfig struct {
	Mode         string
	RelayURL     string
	PerPage      int
	MaxPages     int
	HTTPTimeout  time.Duration
	FetchTimeout time.Duration
	BaseURL      string
	APIKey       string
}

// StoreConfig selects the persistence port behind the assignment store.
type StoreConfig struct {
	Backend   string
	FileDir   string
	KeyPrefix string
	Secret    string
}

// RefreshConfig toggles background refresh through the job queue.
type RefreshConfig struct {
	Async   bool
	Workers int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.RelayPort = v.GetInt("RELAY_PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Relay = RelayConfig{
		Prefix:          strings.TrimRight(v.GetString("RELAY_PREFIX"), "/"),
		UserAgent:       v.GetString("RELAY_USER_AGENT"),
		UpstreamTimeout: parseDuration(v.GetString("RELAY_UPSTREAM_TIMEOUT"), 30*time.Second),
	}

	mode := strings.ToLower(strings.TrimSpace(v.GetString("CANVAS_MODE")))
	if mode != CanvasModeDirect {
		mode = CanvasModeRelay
	}
	cfg.Canvas = CanvasConfig{
		Mode:         mode,
		RelayURL:     strings.TrimRight(v.GetString("CANVAS_RELAY_URL"), "/"),
		PerPage:      v.GetInt("CANVAS_PER_PAGE"),
		MaxPages:     v.GetInt("CANVAS_MAX_PAGES"),
		HTTPTimeout:  parseDuration(v.GetString("CANVAS_HTTP_TIMEOUT"), 30*time.Second),
		FetchTimeout: parseDuration(v.GetString("FETCH_TIMEOUT"), 2*time.Minute),
		BaseURL:      strings.TrimSpace(v.GetString("CANVAS_BASE_URL")),
		APIKey:       strings.TrimSpace(v.GetString("CANVAS_API_KEY")),
	}

	cfg.Store = StoreConfig{
		Backend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		FileDir:   v.GetString("STORE_FILE_DIR"),
		KeyPrefix: v.GetString("STORE_KEY_PREFIX"),
		Secret:    v.GetString("STORE_SECRET"),
	}

	workers := v.GetInt("REFRESH_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Refresh = RefreshConfig{
		Async:   v.GetBool("REFRESH_ASYNC"),
		Workers: workers,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("RELAY_PORT", 3003)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "canvas_assignments")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("SQLITE_PATH", "./data/canvas.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RELAY_PREFIX", "/api/canvas")
	v.SetDefault("RELAY_USER_AGENT", "Canvas-Assignment-Manager/1.0")
	v.SetDefault("RELAY_UPSTREAM_TIMEOUT", "30s")

	v.SetDefault("CANVAS_MODE", CanvasModeRelay)
	v.SetDefault("CANVAS_RELAY_URL", "http://localhost:3003")
	v.SetDefault("CANVAS_PER_PAGE", 100)
	v.SetDefault("CANVAS_MAX_PAGES", 50)
	v.SetDefault("CANVAS_HTTP_TIMEOUT", "30s")
	v.SetDefault("FETCH_TIMEOUT", "2m")
	v.SetDefault("CANVAS_BASE_URL", "")
	v.SetDefault("CANVAS_API_KEY", "")

	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("STORE_FILE_DIR", "./data/store")
	v.SetDefault("STORE_KEY_PREFIX", "")
	v.SetDefault("STORE_SECRET", "")

	v.SetDefault("REFRESH_ASYNC", false)
	v.SetDefault("REFRESH_WORKERS", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
