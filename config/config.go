package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Host is the interface the HTTP server binds to.
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	// Port is the TCP port the HTTP server binds to.
	Port int `env:"PORT" envDefault:"3000"`
	// CORSOrigins lists the origins (comma-separated) allowed to read the API
	// from a browser. Empty or "*" allows every origin.
	CORSOrigins []string `env:"ACCESS_CONTROL_ALLOW_ORIGIN" envSeparator:","`

	// UmamiURL is the base URL of the Umami analytics instance.
	UmamiURL string `env:"UMAMI_URL,required"`
	// UmamiUsername and UmamiPassword are the analytics account used to log in.
	UmamiUsername string `env:"UMAMI_USERNAME,required"`
	UmamiPassword string `env:"UMAMI_PASSWORD,required"`
	// UmamiWebsiteID is the analytics website whose pageviews are reported.
	UmamiWebsiteID string `env:"UMAMI_WEBSITE_ID,required"`

	// FediverseURL is the base URL of the Misskey-compatible instance.
	FediverseURL string `env:"FEDIVERSE_URL,required"`
	// FediverseUserID is the account whose recent notes back the bulk refresh.
	FediverseUserID string `env:"FEDIVERSE_USER_ID,required"`

	// IndexURL is the site that publishes /blog.json.
	IndexURL string `env:"ZLENDY_URL,required"`

	// CacheTTL is how long index, entry and aggregate data stay fresh.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	// UpstreamTimeout bounds every outbound call to an upstream.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	// RequestTimeout bounds the handling of one inbound request. 0 disables it.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	// MaxConcurrentRequests caps in-flight requests; excess requests wait.
	// 0 disables the limit.
	MaxConcurrentRequests int `env:"MAX_CONCURRENT_REQUESTS" envDefault:"64"`
	// RateLimitRequests is how many requests one client IP may make within
	// RateLimitWindow. 0 disables rate limiting.
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	// HealthCheckInterval is how often upstreams are pinged for /ready.
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load parses configuration from environment variables.
// Returns an error if a required variable is missing or a value cannot be
// parsed into the expected type.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
