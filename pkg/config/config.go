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

// Store driver names accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverFile     = "file"
	StoreDriverRedis    = "redis"
)

// Realtime driver names accepted by REALTIME_DRIVER.
const (
	RealtimeDriverMemory = "memory"
	RealtimeDriverRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Store    StoreConfig
	Uploads  UploadsConfig
	Realtime RealtimeConfig
	Status   StatusConfig
	Chat     ChatConfig
	Sweeper  SweeperConfig
	Admin    AdminSeedConfig
	Exports  ExportsConfig
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

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the document store backend holding all portal state.
type StoreConfig struct {
	Driver  string
	FileDir string
}

// UploadsConfig controls the image upload endpoint.
type UploadsConfig struct {
	Dir              string
	MaxFiles         int
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RealtimeConfig tunes the mutation fan-out layer.
type RealtimeConfig struct {
	Driver            string
	BufferSize        int
	HeartbeatInterval time.Duration
}

// StatusConfig governs the lifecycle evaluator applied to time-bounded
// records. DayGateAbsolute keeps the weekday restriction authoritative even
// for records carrying absolute timestamps.
type StatusConfig struct {
	DayGateAbsolute bool
}

// ChatConfig bounds chat history replies.
type ChatConfig struct {
	HistoryLimit int
}

// SweeperConfig controls background removal of expired one-off records.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	Workers  int
}

// AdminSeedConfig seeds the default admin account on first boot.
type AdminSeedConfig struct {
	ID           string
	InitPassword string
}

// ExportsConfig configures signed timetable export downloads.
type ExportsConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Store = StoreConfig{
		Driver:  strings.ToLower(v.GetString("STORE_DRIVER")),
		FileDir: v.GetString("STORE_FILE_DIR"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOADS_DIR"),
		MaxFiles:         v.GetInt("UPLOADS_MAX_FILES"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
	}

	cfg.Realtime = RealtimeConfig{
		Driver:            strings.ToLower(v.GetString("REALTIME_DRIVER")),
		BufferSize:        v.GetInt("REALTIME_BUFFER_SIZE"),
		HeartbeatInterval: parseDuration(v.GetString("REALTIME_HEARTBEAT_INTERVAL"), 25*time.Second),
	}

	cfg.Status = StatusConfig{
		DayGateAbsolute: v.GetBool("STATUS_DAY_GATE_ABSOLUTE"),
	}

	cfg.Chat = ChatConfig{
		HistoryLimit: v.GetInt("CHAT_HISTORY_LIMIT"),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:  v.GetBool("ENABLE_SWEEPER"),
		Interval: parseDuration(v.GetString("SWEEPER_INTERVAL"), time.Minute),
		Workers:  v.GetInt("SWEEPER_WORKERS"),
	}

	cfg.Admin = AdminSeedConfig{
		ID:           v.GetString("ADMIN_ID"),
		InitPassword: v.GetString("ADMIN_INIT_PASS"),
	}

	cfg.Exports = ExportsConfig{
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
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
	v.SetDefault("DB_NAME", "tpi_manager")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "tpi-manager")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("STORE_FILE_DIR", "./data")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILES", 3)
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/gif,image/webp")

	v.SetDefault("REALTIME_DRIVER", RealtimeDriverMemory)
	v.SetDefault("REALTIME_BUFFER_SIZE", 64)
	v.SetDefault("REALTIME_HEARTBEAT_INTERVAL", "25s")

	v.SetDefault("STATUS_DAY_GATE_ABSOLUTE", true)

	v.SetDefault("CHAT_HISTORY_LIMIT", 100)

	v.SetDefault("ENABLE_SWEEPER", true)
	v.SetDefault("SWEEPER_INTERVAL", "1m")
	v.SetDefault("SWEEPER_WORKERS", 1)

	v.SetDefault("ADMIN_ID", "admin")
	v.SetDefault("ADMIN_INIT_PASS", "admin123")

	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
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
