package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL     string        `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	UpstreamURL     string        `usage:"Commerce API base URL" flag:"upstream-url"`
	UpstreamTimeout time.Duration `default:"10s" usage:"Commerce API request timeout" flag:"upstream-timeout"`
	StoreID         string        `usage:"Default store id when requests carry no X-Store-ID" flag:"store-id"`
	PromoFilterPath string        `default:"" usage:"Path to the promo code bloom filter snapshot" flag:"promo-filter"`
	SummaryDebounce time.Duration `default:"300ms" usage:"Debounce delay for background summary refreshes" flag:"summary-debounce"`
	Cache           CacheConfig
	Registry        RegistryConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// CacheConfig bounds the in-memory product metadata cache.
type CacheConfig struct {
	Size int           `default:"512" usage:"Max product metadata cache entries"`
	TTL  time.Duration `default:"5m"  usage:"Product metadata cache entry lifetime"`
}

// RegistryConfig bounds the per-device state registries (cart stores,
// configuration sessions, summary refreshers).
type RegistryConfig struct {
	Size int           `default:"4096" usage:"Max tracked devices per registry"`
	TTL  time.Duration `default:"30m"  usage:"Idle registry entry lifetime"`
}

// RateLimitConfig controls the per-device sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.UpstreamURL == "" {
		return nil, errors.New("commerce API URL is required: set STOREFRONT_UPSTREAM_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
