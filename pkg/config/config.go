package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
	Scheduler SchedulerConfig
	Exports   ExportsConfig
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

// TimetableConfig holds the upstream feed and cache policy constants.
type TimetableConfig struct {
	FeedURL      string
	FeedTimeout  time.Duration
	CacheTTL     time.Duration
	ChunkSize    int
	ChunkTimeout time.Duration
	Timezone     string

	QueryCacheEnabled bool
	QueryCacheTTL     time.Duration
}

// SchedulerConfig controls the cron-driven cache refresh.
type SchedulerConfig struct {
	Enabled          bool
	RefreshSpec      string
	RefreshRetries   int
	RetryDelay       time.Duration
	RefreshOnStartup bool
}

// ExportsConfig controls the weekly timetable export endpoint and the
// on-disk store behind it.
type ExportsConfig struct {
	Enabled       bool
	Dir           string
	SigningSecret string
	ResultTTL     time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	chunkSize := v.GetInt("TIMETABLE_CHUNK_SIZE")
	if chunkSize <= 0 {
		chunkSize = 500
	}
	cfg.Timetable = TimetableConfig{
		FeedURL:           v.GetString("TIMETABLE_FEED_URL"),
		FeedTimeout:       parseDuration(v.GetString("TIMETABLE_FEED_TIMEOUT"), 30*time.Second),
		CacheTTL:          parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 24*time.Hour),
		ChunkSize:         chunkSize,
		ChunkTimeout:      parseDuration(v.GetString("TIMETABLE_CHUNK_TIMEOUT"), 30*time.Second),
		Timezone:          v.GetString("TIMETABLE_TIMEZONE"),
		QueryCacheEnabled: v.GetBool("ENABLE_QUERY_CACHE"),
		QueryCacheTTL:     parseDuration(v.GetString("QUERY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:          v.GetBool("ENABLE_SCHEDULER"),
		RefreshSpec:      v.GetString("SCHEDULER_REFRESH_CRON"),
		RefreshRetries:   v.GetInt("SCHEDULER_REFRESH_RETRIES"),
		RetryDelay:       parseDuration(v.GetString("SCHEDULER_RETRY_DELAY"), time.Minute),
		RefreshOnStartup: v.GetBool("REFRESH_ON_STARTUP"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:       v.GetBool("ENABLE_EXPORTS"),
		Dir:           v.GetString("EXPORTS_DIR"),
		SigningSecret: v.GetString("EXPORTS_SIGNING_SECRET"),
		ResultTTL:     parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uni_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_FEED_URL", "https://s3-ap-southeast-1.amazonaws.com/open-ws/weektimetable")
	v.SetDefault("TIMETABLE_FEED_TIMEOUT", "30s")
	v.SetDefault("TIMETABLE_CACHE_TTL", "24h")
	v.SetDefault("TIMETABLE_CHUNK_SIZE", 500)
	v.SetDefault("TIMETABLE_CHUNK_TIMEOUT", "30s")
	v.SetDefault("TIMETABLE_TIMEZONE", "Asia/Kuala_Lumpur")
	v.SetDefault("ENABLE_QUERY_CACHE", false)
	v.SetDefault("QUERY_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_SCHEDULER", false)
	// The upstream feed republishes ahead of each teaching week, so refresh
	// on weekend nights by default.
	v.SetDefault("SCHEDULER_REFRESH_CRON", "0 0 * * 5-7")
	v.SetDefault("SCHEDULER_REFRESH_RETRIES", 3)
	v.SetDefault("SCHEDULER_RETRY_DELAY", "1m")
	v.SetDefault("REFRESH_ON_STARTUP", false)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNING_SECRET", "")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")
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
