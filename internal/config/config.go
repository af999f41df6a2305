package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Durability backend for cart and wishlist snapshots:
	// memory, file, redis or postgres.
	StoreBackend  string
	StoreDir      string
	StoreTTL      time.Duration
	RedisAddress  string
	RedisPassword string
	DatabaseDSN   string
	RunMigrations bool

	// Empty RabbitMQURL logs checkout events instead of publishing them.
	RabbitMQURL string

	// Empty CatalogURL serves the generated in-memory catalog.
	CatalogURL      string
	CatalogSeed     uint64
	CatalogSize     int
	UpstreamTimeout time.Duration

	CORSAllowOrigins []string

	JWTSecret string
	JWTIssuer string

	FreeShippingThreshold int64
	ShippingFee           int64
	TaxRate               decimal.Decimal

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

// Load reads the environment. A .env file in the working directory is
// loaded first when present; real environment variables win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		Port:     getenv("PORT", "8090"),
		Env:      getenv("ENV", "production"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StoreBackend:  strings.ToLower(getenv("STORE_BACKEND", "memory")),
		StoreDir:      getenv("STORE_DIR", "./data"),
		StoreTTL:      parseDuration(getenv("STORE_TTL", "720h"), 30*24*time.Hour),
		RedisAddress:  getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RunMigrations: parseBool(getenv("RUN_MIGRATIONS", "true"), true),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		CatalogURL:      os.Getenv("CATALOG_URL"),
		CatalogSeed:     uint64(parseInt(getenv("CATALOG_SEED", "42"), 42)),
		CatalogSize:     int(parseInt(getenv("CATALOG_SIZE", "48"), 48)),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: os.Getenv("JWT_ISSUER"),

		FreeShippingThreshold: parseInt(getenv("FREE_SHIPPING_THRESHOLD", "2999"), 2999),
		ShippingFee:           parseInt(getenv("SHIPPING_FEE", "199"), 199),
		TaxRate:               parseDecimal(getenv("TAX_RATE", "0"), decimal.Zero),

		SessionTTL:           parseDuration(getenv("SESSION_TTL", "30m"), 30*time.Minute),
		SessionSweepInterval: parseDuration(getenv("SESSION_SWEEP_INTERVAL", "1m"), time.Minute),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func parseDecimal(v string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
