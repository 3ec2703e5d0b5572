package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Config holds all configuration for the storefront BFF.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Upstream API
	UpstreamBaseURL     string        `env:"UPSTREAM_BASE_URL" envDefault:"https://ecommerce.routemisr.com/api/v1"`
	UpstreamTokenHeader string        `env:"UPSTREAM_TOKEN_HEADER" envDefault:"token"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`
	UpstreamMaxRetries  int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`

	// Hosted payment page return target
	CheckoutReturnURL string `env:"CHECKOUT_RETURN_URL" envDefault:"http://localhost:3000/order-confirmation"`

	// Redis (empty address keeps sessions in memory)
	RedisAddr string `env:"REDIS_ADDR" envDefault:""`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Sessions
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	StorefrontIdleTTL   time.Duration `env:"STOREFRONT_IDLE_TTL" envDefault:"30m"`

	CatalogDefaultSort string `env:"CATALOG_DEFAULT_SORT" envDefault:"-price"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Profiling endpoints are only served to these networks. Empty disables them.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the BFF runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := absoluteURL("UPSTREAM_BASE_URL", c.UpstreamBaseURL); err != nil {
		return err
	}
	if err := absoluteURL("CHECKOUT_RETURN_URL", c.CheckoutReturnURL); err != nil {
		return err
	}
	if c.UpstreamTokenHeader == "" {
		return fmt.Errorf("UPSTREAM_TOKEN_HEADER must not be empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative, got %d", c.UpstreamMaxRetries)
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.StorefrontIdleTTL < time.Minute {
		return fmt.Errorf("STOREFRONT_IDLE_TTL must be at least 1m, got %s", c.StorefrontIdleTTL)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTELSampleRate)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	for _, cidr := range c.PprofAllowedCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("PPROF_ALLOWED_CIDRS: %w", err)
		}
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}

	if !c.IsDevelopment() {
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required in %s environment", c.Environment)
		}
		if !c.SessionCookieSecure {
			return fmt.Errorf("SESSION_COOKIE_SECURE must be enabled in %s environment", c.Environment)
		}
	}
	return nil
}

func absoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}
