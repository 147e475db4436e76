package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the worker's full external configuration, read from the
// environment. Field names map to the documented env vars via
// explicit envconfig tags rather than the library's default prefixing, so
// the schema matches the wire contract exactly.
type Config struct {
	BusBootstrapServers string `envconfig:"BUS_BOOTSTRAP_SERVERS" required:"true"`
	Topic               string `envconfig:"TOPIC" default:"orders"`
	ConsumerGroup       string `envconfig:"CONSUMER_GROUP" default:"order-processor-group"`

	StoreURI      string `envconfig:"STORE_URI" required:"true"`
	StoreDatabase string `envconfig:"STORE_DATABASE" default:"orders"`

	CacheHost     string `envconfig:"CACHE_HOST" default:"localhost"`
	CachePort     int    `envconfig:"CACHE_PORT" default:"6379"`
	CachePassword string `envconfig:"CACHE_PASSWORD" default:""`

	ProductAPIURL  string `envconfig:"PRODUCT_API_URL" required:"true"`
	CustomerAPIURL string `envconfig:"CUSTOMER_API_URL" required:"true"`

	MaxRetries      int `envconfig:"MAX_RETRIES" default:"5"`
	FailureTTLHours int `envconfig:"FAILURE_TTL_HOURS" default:"24"`

	LockTTLSeconds      int `envconfig:"LOCK_TTL_SECONDS" default:"30"`
	CacheTTLProduct     int `envconfig:"CACHE_TTL_PRODUCT" default:"3600"`
	CacheTTLCustomer    int `envconfig:"CACHE_TTL_CUSTOMER" default:"1800"`
	ConsumerConcurrency int `envconfig:"CONSUMER_CONCURRENCY" default:"3"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPClientTimeoutSeconds int `envconfig:"HTTP_CLIENT_TIMEOUT_SECONDS" default:"10"`

	CircuitBreakerWindow           int `envconfig:"CIRCUIT_BREAKER_WINDOW" default:"10"`
	CircuitBreakerThresholdPercent int `envconfig:"CIRCUIT_BREAKER_THRESHOLD_PERCENT" default:"50"`
	CircuitBreakerCooldownSeconds  int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECONDS" default:"60"`
}

// ReadConfig loads Config from the environment, applying the documented
// defaults for every var not explicitly set.
func ReadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) lockTTL() time.Duration          { return time.Duration(c.LockTTLSeconds) * time.Second }
func (c Config) cacheTTLProduct() time.Duration  { return time.Duration(c.CacheTTLProduct) * time.Second }
func (c Config) cacheTTLCustomer() time.Duration { return time.Duration(c.CacheTTLCustomer) * time.Second }
func (c Config) failureTTL() time.Duration       { return time.Duration(c.FailureTTLHours) * time.Hour }
func (c Config) httpClientTimeout() time.Duration {
	return time.Duration(c.HTTPClientTimeoutSeconds) * time.Second
}
func (c Config) circuitBreakerCooldown() time.Duration {
	return time.Duration(c.CircuitBreakerCooldownSeconds) * time.Second
}
