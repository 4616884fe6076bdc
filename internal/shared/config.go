package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	TrustProxy  bool // honour X-Forwarded-For / X-Real-IP

	StoreBackend string // memory|mysql|redis
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	JWTSecret  string
	WriteRPS   float64
	WriteBurst int

	DestinationImageURL string

	CatalogBase     string
	CatalogKey      string
	CatalogRPS      int
	SeedWorkers     int
	SeedPropertyIDs []int64
	RequestTimeout  time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid int, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid float, using default")
		}
		return def
	}

	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		LogLevel:     env("LOG_LEVEL", "info"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		TrustProxy:   envBool("TRUST_PROXY", false),
		StoreBackend: strings.ToLower(env("STORE_BACKEND", "memory")),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel_reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		JWTSecret:    env("JWT_SECRET", ""),
		WriteRPS:     atof("WRITE_RPS", 2),
		WriteBurst:   atoi("WRITE_BURST", 10),

		DestinationImageURL: env("DESTINATION_IMAGE_URL", ""),

		CatalogBase:     env("CATALOG_BASE_URL", "https://content-api.cupid.travel/v3.0"),
		CatalogKey:      env("CATALOG_API_KEY", ""),
		CatalogRPS:      atoi("CATALOG_RPS", 5),
		SeedWorkers:     atoi("SEED_WORKERS", 8),
		SeedPropertyIDs: parseIDs(env("SEED_PROPERTY_IDS", "")),
		RequestTimeout:  time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; authenticated routes will reject every request")
	}
	return c
}

// parseIDs reads a comma separated id list, skipping malformed entries.
func parseIDs(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Warn().Str("value", part).Msg("skipping malformed property id")
			continue
		}
		out = append(out, id)
	}
	return out
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", k).Str("value", v).Msg("invalid bool, using default")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
