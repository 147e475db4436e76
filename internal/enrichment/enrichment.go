package enrichment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/orderworker/internal/cache"
	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/refclient"
)

// Config tunes the enrichment stage's cache TTLs, per-product fan-out limit,
// and retry policy.
type Config struct {
	ProductTTL       time.Duration
	CustomerTTL      time.Duration
	ProductFanoutMax int
	Retry            refclient.RetryConfig
}

// DefaultConfig matches the documented defaults: 3600s product TTL, 1800s customer
// TTL, at most 8 concurrent product fetches, source's fixed retry policy.
func DefaultConfig() Config {
	return Config{
		ProductTTL:       3600 * time.Second,
		CustomerTTL:      1800 * time.Second,
		ProductFanoutMax: 8,
		Retry:            refclient.DefaultRetryConfig(),
	}
}

// Metrics receives the enrichment stage's per-call duration. Optional; a
// nil Metrics on a Stage disables recording entirely.
type Metrics interface {
	RecordEnrichmentLatency(d time.Duration)
}

// Stage is an enrichment stage: concurrent customer + per-product
// fan-out via errgroup, cache-aside reads in front of the reference clients,
// and the documented caller-side retry policy.
type Stage struct {
	cache          domain.Cache
	productClient  domain.ProductClient
	customerClient domain.CustomerClient
	cfg            Config
	metrics        Metrics
	logger         *log.Entry
}

// SetMetrics attaches a metrics sink. Optional; nil disables recording.
func (s *Stage) SetMetrics(m Metrics) { s.metrics = m }

// New builds the Enrichment Stage over its collaborators.
func New(c domain.Cache, productClient domain.ProductClient, customerClient domain.CustomerClient, cfg Config) *Stage {
	return &Stage{
		cache:          c,
		productClient:  productClient,
		customerClient: customerClient,
		cfg:            cfg,
		logger:         log.WithField("component", "enrichment"),
	}
}

// Enrich resolves customerID and productIDs concurrently into a Customer and
// an order-preserving []OrderLine.
func (s *Stage) Enrich(ctx context.Context, customerID string, productIDs []string) (domain.Customer, []domain.OrderLine, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordEnrichmentLatency(time.Since(start))
		}
	}()

	var (
		customer domain.Customer
		lines    []domain.OrderLine
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		c, err := s.enrichCustomer(groupCtx, customerID)
		if err != nil {
			return err
		}
		customer = c
		return nil
	})

	group.Go(func() error {
		l, err := s.enrichProducts(groupCtx, productIDs)
		if err != nil {
			return err
		}
		lines = l
		return nil
	})

	if err := group.Wait(); err != nil {
		return domain.Customer{}, nil, err
	}

	return customer, lines, nil
}

func (s *Stage) enrichCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	key := cache.CustomerKey(customerID)

	var customer domain.Customer
	if hit, err := s.cache.Get(ctx, key, &customer); err == nil && hit {
		return customer, nil
	}

	err := refclient.WithRetry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		fetched, err := s.customerClient.Fetch(ctx, customerID)
		if err != nil {
			return err
		}
		customer = fetched
		return nil
	})
	if err != nil {
		return domain.Customer{}, classify(err, "customer", customerID)
	}

	s.cache.Set(ctx, key, customer, s.cfg.CustomerTTL)
	return customer, nil
}

func (s *Stage) enrichProducts(ctx context.Context, productIDs []string) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, len(productIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	if s.cfg.ProductFanoutMax > 0 {
		group.SetLimit(s.cfg.ProductFanoutMax)
	}

	for i, productID := range productIDs {
		i, productID := i, productID
		group.Go(func() error {
			line, err := s.enrichProduct(groupCtx, productID)
			if err != nil {
				return err
			}
			lines[i] = line
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Stage) enrichProduct(ctx context.Context, productID string) (domain.OrderLine, error) {
	key := cache.ProductKey(productID)

	var product domain.Product
	if hit, err := s.cache.Get(ctx, key, &product); err == nil && hit {
		return domain.LineFromProduct(product), nil
	}

	err := refclient.WithRetry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		fetched, err := s.productClient.Fetch(ctx, productID)
		if err != nil {
			return err
		}
		product = fetched
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, classify(err, "product", productID)
	}

	s.cache.Set(ctx, key, product, s.cfg.ProductTTL)
	return domain.LineFromProduct(product), nil
}

// classify maps a reference-client failure onto the enrichment-level
// sentinel errors the pipeline switches on.
func classify(err error, resource, id string) error {
	if domain.IsPermanent(err) {
		return fmt.Errorf("enrich %s %s: %w: %w", resource, id, err, domain.ErrEnrichmentPermanent)
	}
	return fmt.Errorf("enrich %s %s: %w: %w", resource, id, err, domain.ErrEnrichmentTransient)
}

var _ domain.Enricher = (*Stage)(nil)
