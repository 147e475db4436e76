package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// Config sets the in-flight Process() bound. The sarama session, heartbeat
// and processing-time values are fixed in NewConsumer.
type Config struct {
	Concurrency int
}

// DefaultConfig matches the documented default concurrency of 3.
func DefaultConfig() Config { return Config{Concurrency: 3} }

// Metrics receives in-flight concurrency observations across the
// consumer's processing goroutines. Optional; a nil Metrics on a Consumer
// disables recording entirely.
type Metrics interface {
	IntentStarted()
	IntentFinished()
}

// Consumer is a sarama consumer-group pool that dispatches
// each record, plain-JSON-decoded into a domain.OrderIntent, to the Order
// Pipeline with manual acknowledgement. It never constructs its
// own retry-via-headers loop; the Failure Ledger owns retry bookkeeping.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	pipeline domain.Pipeline
	ledger   domain.FailureLedger
	sem      chan struct{}
	metrics  Metrics
	logger   *log.Entry
	wg       sync.WaitGroup
}

// SetMetrics attaches a metrics sink. Optional; nil disables recording.
func (c *Consumer) SetMetrics(m Metrics) { c.metrics = m }

// NewConsumer creates a consumer-group client bound to a single topic.
func NewConsumer(brokers []string, groupID, topic string, pipeline domain.Pipeline, ledger domain.FailureLedger, cfg Config) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.MaxProcessingTime = 300 * time.Second
	saramaCfg.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaCfg.Consumer.Group.Heartbeat.Interval = 10 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Consumer{
		consumer: consumerGroup,
		topics:   []string{topic},
		pipeline: pipeline,
		ledger:   ledger,
		sem:      make(chan struct{}, concurrency),
		logger:   log.WithField("component", "kafka-consumer"),
	}, nil
}

// Start launches the consume loop and the background error drain.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume must be called in a loop: it returns on every rebalance.
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop closes the consumer group and waits for its goroutines to exit.
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup is called at the start of a new consumer-group session.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup is called at the end of a consumer-group session.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes one partition's records strictly in offset order.
// A record is marked only after the pipeline reaches a terminal Outcome for
// it (including ledger-recorded failures); an unclassified infrastructure
// error leaves the record unmarked for redelivery.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			select {
			case c.sem <- struct{}{}:
			case <-session.Context().Done():
				return nil
			}
			if c.metrics != nil {
				c.metrics.IntentStarted()
			}
			err := c.processMessage(session.Context(), message)
			if c.metrics != nil {
				c.metrics.IntentFinished()
			}
			<-c.sem

			if err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("message left unacknowledged, will be redelivered")
				continue
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// processMessage decodes the record, dispatches it to the pipeline, and
// returns non-nil only when the caller should withhold the ack (an
// unclassified infrastructure error, not a pipeline-classified outcome).
func (c *Consumer) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var intent domain.OrderIntent
	if err := json.Unmarshal(message.Value, &intent); err != nil {
		c.routeToLedger(ctx, message, "", fmt.Errorf("malformed intent: %w", err))
		return nil
	}
	if err := intent.Validate(); err != nil {
		c.routeToLedger(ctx, message, intent.OrderID, err)
		return nil
	}

	logger := c.logger.WithField("order_id", intent.OrderID)

	outcome, err := c.pipeline.Process(ctx, intent)
	if err != nil {
		return fmt.Errorf("process order %s: %w", intent.OrderID, err)
	}

	logger.WithField("outcome", outcome).Debug("intent processed")
	return nil
}

// routeToLedger writes a structurally invalid or validation-rejected record
// straight to the Failure Ledger as a permanent failure: re-parsing or
// re-validating it will never succeed. orderID, when the intent parsed far
// enough to carry one, is used as the ledger key per the bus contract ("Key:
// optional; if present, used as the failure-ledger key; otherwise orderId").
// Only when no OrderID exists yet (the JSON itself failed to decode) does
// this fall back to a synthetic topic/partition/offset key.
func (c *Consumer) routeToLedger(ctx context.Context, message *sarama.ConsumerMessage, orderID string, cause error) {
	key := string(message.Key)
	if key == "" {
		key = orderID
	}
	if key == "" {
		key = fmt.Sprintf("%s-%d-%d", message.Topic, message.Partition, message.Offset)
	}
	if _, err := c.ledger.Record(ctx, key, message.Value, cause, true); err != nil {
		c.logger.WithError(err).WithField("key", key).Error("failed to record malformed intent in the failure ledger")
	}
}
