package refclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// Config tunes the per-client HTTP deadline and circuit breaker policy.
type Config struct {
	RequestTimeout             time.Duration
	CircuitBreakerWindow       int
	CircuitBreakerThresholdPct float64
	CircuitBreakerCooldown     time.Duration
}

// DefaultConfig matches the documented reference-client policy: 10s per attempt, window 10,
// threshold 50%, cooldown 60s.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:             10 * time.Second,
		CircuitBreakerWindow:       10,
		CircuitBreakerThresholdPct: 50,
		CircuitBreakerCooldown:     60 * time.Second,
	}
}

// Metrics receives circuit breaker state transitions from a reference
// client. Optional; a nil Metrics on a client disables reporting entirely.
type Metrics interface {
	SetCircuitBreakerState(client string, state float64)
}

// httpClient is the generic GET-by-id reference client shared by the
// product and customer clients, generalizing a one-interface-
// per-port convention (internal/domain/ports.go) to an HTTP transport.
type httpClient struct {
	name     string
	baseURL  string
	resource string
	client   *http.Client
	breaker  *CircuitBreaker
	metrics  Metrics
	logger   *log.Entry
}

// SetMetrics attaches a metrics sink reporting this client's circuit
// breaker state after every call.
func (c *httpClient) SetMetrics(m Metrics) { c.metrics = m }

// Breaker exposes the client's circuit breaker for health reporting.
func (c *httpClient) Breaker() *CircuitBreaker { return c.breaker }

func (c *httpClient) reportBreakerState() {
	if c.metrics != nil {
		c.metrics.SetCircuitBreakerState(c.name, c.breaker.State())
	}
}

func newHTTPClient(name, baseURL, resource string, cfg Config) *httpClient {
	return &httpClient{
		name:     name,
		baseURL:  baseURL,
		resource: resource,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		breaker: NewCircuitBreaker(name, cfg.CircuitBreakerWindow,
			cfg.CircuitBreakerThresholdPct, cfg.CircuitBreakerCooldown),
		logger: log.WithField("component", "refclient").WithField("client", name),
	}
}

// fetch issues GET /api/{resource}/{id} and decodes the body via decode. It
// classifies every failure and is wrapped by the circuit
// breaker.
func (c *httpClient) fetch(ctx context.Context, id string, decode func([]byte) error) error {
	defer c.reportBreakerState()

	if id == "" {
		return fmt.Errorf("%s: id is required: %w", c.name, domain.ErrPermanent)
	}

	if !c.breaker.Allow() {
		c.logger.WithField(c.name+"_id", id).Debug("circuit breaker open, short-circuiting")
		return fmt.Errorf("%s: circuit open: %w", c.name, domain.ErrTransient)
	}

	url := fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.resource, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.breaker.Record(false)
		return fmt.Errorf("%s: build request: %w", c.name, domain.ErrPermanent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.Record(false)
		return fmt.Errorf("%s: %w: %w", c.name, err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body []byte
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			c.breaker.Record(false)
			return fmt.Errorf("%s: read body: %w", c.name, domain.ErrTransient)
		}
		if err := decode(body); err != nil {
			c.breaker.Record(false)
			return fmt.Errorf("%s: decode body: %w", c.name, domain.ErrPermanent)
		}
		c.breaker.Record(true)
		return nil
	case resp.StatusCode == http.StatusNotFound:
		c.breaker.Record(true) // a clean 404 is not a dependency-health signal
		return fmt.Errorf("%s: %s not found: %w", c.name, id, domain.ErrNotFound)
	case resp.StatusCode >= 500:
		c.breaker.Record(false)
		return fmt.Errorf("%s: server error %d: %w", c.name, resp.StatusCode, domain.ErrTransient)
	default:
		c.breaker.Record(true)
		return fmt.Errorf("%s: unexpected status %d: %w", c.name, resp.StatusCode, domain.ErrPermanent)
	}
}

// ProductClient fetches product snapshots from the product reference service.
type ProductClient struct{ *httpClient }

// NewProductClient builds the reference client for the product resource.
func NewProductClient(baseURL string, cfg Config) *ProductClient {
	return &ProductClient{newHTTPClient("product", baseURL, "products", cfg)}
}

// Fetch implements domain.ProductClient.
func (c *ProductClient) Fetch(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := c.fetch(ctx, id, func(body []byte) error {
		return json.Unmarshal(body, &product)
	})
	return product, err
}

// CustomerClient fetches customer snapshots from the customer reference service.
type CustomerClient struct{ *httpClient }

// NewCustomerClient builds the reference client for the customer resource.
func NewCustomerClient(baseURL string, cfg Config) *CustomerClient {
	return &CustomerClient{newHTTPClient("customer", baseURL, "customers", cfg)}
}

// Fetch implements domain.CustomerClient.
func (c *CustomerClient) Fetch(ctx context.Context, id string) (domain.Customer, error) {
	var customer domain.Customer
	err := c.fetch(ctx, id, func(body []byte) error {
		return json.Unmarshal(body, &customer)
	})
	return customer, err
}

var (
	_ domain.ProductClient  = (*ProductClient)(nil)
	_ domain.CustomerClient = (*CustomerClient)(nil)
)
