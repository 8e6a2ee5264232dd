package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgstrings "userdir/pkg/platform/strings"
)

// Server captures HTTP server level configuration. When OpsAddr is set,
// /metrics and /healthz move off the API listener onto their own.
type Server struct {
	Addr            string
	OpsAddr         string
	ShutdownTimeout time.Duration
}

// Records configures the record rules and unit-of-work boundaries.
type Records struct {
	MinimumAge int
	TxTimeout  time.Duration
	CacheTTL   time.Duration
}

// Database configures the Postgres pool. An empty URL selects the
// in-memory store.
type Database struct {
	URL      string
	MaxConns int32
}

// RedisConfig configures the optional record cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the optional event publisher. After BreakerThreshold
// consecutive failures publishing is suspended and probed every
// BreakerCooldown.
type Kafka struct {
	Brokers          []string
	Topic            string
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

type Config struct {
	Server   Server
	Records  Records
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Log      Log
}

// Load reads a .env file when present and then builds the config from the
// environment. A missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
// Unparseable values fall back to their defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            stringEnv("USERDIR_ADDR", ":8080"),
			OpsAddr:         os.Getenv("OPS_ADDR"),
			ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Records: Records{
			MinimumAge: intEnv("MINIMUM_AGE", 18),
			TxTimeout:  durationEnv("TX_TIMEOUT", 5*time.Second),
			CacheTTL:   durationEnv("RECORD_CACHE_TTL", 5*time.Minute),
		},
		Database: Database{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(intEnv("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: listEnv("KAFKA_BROKERS"),
			Topic:   stringEnv("KAFKA_TOPIC", "user-records"),

			BreakerThreshold: intEnv("KAFKA_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  durationEnv("KAFKA_BREAKER_COOLDOWN", 30*time.Second),
		},
		Log: Log{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "text"),
		},
	}
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// intEnv accepts only non-negative integers.
func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func listEnv(key string) []string {
	return pkgstrings.SplitList(os.Getenv(key))
}
