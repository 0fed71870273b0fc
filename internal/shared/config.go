package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	HostawayBase      string
	HostawayAccountID string
	HostawayAPIKey    string
	GoogleBase        string
	GoogleAPIKey      string

	ListingIDs []int64  // Hostaway listings to ingest
	PlaceIDs   []string // Google places to ingest

	Workers     int
	ReviewLimit int
	CacheTTL    time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/flexliving?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		HostawayBase:      env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayAPIKey:    env("HOSTAWAY_API_KEY", ""),
		GoogleBase:        env("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		GoogleAPIKey:      env("GOOGLE_PLACES_API_KEY", ""),

		ListingIDs: int64List("INGEST_LISTING_IDS"),
		PlaceIDs:   strList("INGEST_PLACE_IDS"),

		Workers:     atoi("INGEST_WORKERS", 8),
		ReviewLimit: atoi("INGEST_REVIEW_LIMIT", 100),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.HostawayAPIKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty")
	}
	if c.GoogleAPIKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func strList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func int64List(k string) []int64 {
	var out []int64
	for _, p := range strList(k) {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, n)
		} else {
			log.Warn().Str("key", k).Str("value", p).Msg("ignoring non-numeric id")
		}
	}
	return out
}
