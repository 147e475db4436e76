package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/ledger"
	"github.com/vladislavdragonenkov/orderworker/internal/messaging/kafka"
)

const defaultReplayLimit = 100

type config struct {
	redisAddr      string
	redisPassword  string
	brokersRaw     string
	targetTopic    string
	limit          int
	execute        bool
	deleteOnReplay bool
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var cfg config

	flag.StringVar(&cfg.redisAddr, "redis-addr", "", "Redis address holding the failure ledger (fallback: CACHE_HOST:CACHE_PORT)")
	flag.StringVar(&cfg.redisPassword, "redis-password", "", "Redis password (fallback: CACHE_PASSWORD)")
	flag.StringVar(&cfg.brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: BUS_BOOTSTRAP_SERVERS)")
	flag.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrders, "topic to republish recovered dead letters onto")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of dead letters to scan/replay")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.BoolVar(&cfg.deleteOnReplay, "delete-on-replay", true, "delete the dead letter record once it has been republished")
	flag.Parse()

	if strings.TrimSpace(cfg.redisAddr) == "" {
		host := strings.TrimSpace(os.Getenv("CACHE_HOST"))
		port := strings.TrimSpace(os.Getenv("CACHE_PORT"))
		if host != "" && port != "" {
			cfg.redisAddr = host + ":" + port
		}
	}
	if strings.TrimSpace(cfg.redisPassword) == "" {
		cfg.redisPassword = os.Getenv("CACHE_PASSWORD")
	}
	if strings.TrimSpace(cfg.brokersRaw) == "" {
		cfg.brokersRaw = os.Getenv("BUS_BOOTSTRAP_SERVERS")
	}

	if cfg.redisAddr == "" {
		return config{}, fmt.Errorf("redis address is required (-redis-addr or CACHE_HOST/CACHE_PORT)")
	}
	if cfg.execute && cfg.brokersRaw == "" {
		return config{}, fmt.Errorf("kafka brokers are required in execute mode (-brokers or BUS_BOOTSTRAP_SERVERS)")
	}
	if strings.TrimSpace(cfg.targetTopic) == "" {
		return config{}, fmt.Errorf("target-topic is required")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"redis_addr":   cfg.redisAddr,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
	}).Info("starting dlq replay")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.redisAddr, Password: cfg.redisPassword})
	defer func() { _ = redisClient.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := redisClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	failureLedger := ledger.NewRedisLedger(redisClient, ledger.DefaultConfig())

	var producer *kafka.Producer
	if cfg.execute {
		producer, err = kafka.NewProducer(parseBrokers(cfg.brokersRaw))
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
	}

	records, err := failureLedger.ListDeadLetters(ctx, cfg.limit)
	if err != nil {
		return fmt.Errorf("list dead letters: %w", err)
	}

	var replayed, skipped int
	for _, record := range records {
		intent, ok, err := decodeIntent(record)
		if err != nil {
			skipped++
			log.WithError(err).WithField("key", record.Key).Warn("skip malformed dead letter")
			continue
		}
		if !ok {
			skipped++
			continue
		}

		if cfg.execute {
			if err := producer.Publish(cfg.targetTopic, intent.OrderID, intent); err != nil {
				return fmt.Errorf("publish replay for key %s: %w", record.Key, err)
			}
			if cfg.deleteOnReplay {
				if err := failureLedger.DeleteDeadLetter(ctx, record.Key); err != nil {
					log.WithError(err).WithField("key", record.Key).Warn("failed to delete dead letter after replay")
				}
			}
		} else {
			log.WithFields(log.Fields{
				"key":            record.Key,
				"order_id":       intent.OrderID,
				"original_error": record.Error,
			}).Info("dlq replay candidate")
		}
		replayed++
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  len(records),
		"replayed": replayed,
		"skipped":  skipped,
	}).Info("dlq replay finished")

	return nil
}

// decodeIntent recovers the original OrderIntent from a dead letter's stored
// message body. Returns ok=false for records whose message does not decode
// into a usable intent (missing orderId/customerId/productIds).
func decodeIntent(record domain.FailureRecord) (domain.OrderIntent, bool, error) {
	var intent domain.OrderIntent
	if err := json.Unmarshal(record.Message, &intent); err != nil {
		return domain.OrderIntent{}, false, fmt.Errorf("decode dead letter message: %w", err)
	}
	if err := intent.Validate(); err != nil {
		return domain.OrderIntent{}, false, nil
	}
	return intent, true, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
