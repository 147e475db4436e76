package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

const (
	failedMessagePrefix = "failed:message:"
	retryCountPrefix    = "failed:retry:"
	deadLetterPrefix    = "dead:letter:"
)

// Config tunes the Failure Ledger's retry-before-dead-letter policy.
type Config struct {
	MaxRetries int
	TTL        time.Duration
}

// DefaultConfig mirrors the original source's FailedMessageHandler defaults
// (5 retries, 24h TTL).
func DefaultConfig() Config {
	return Config{MaxRetries: 5, TTL: 24 * time.Hour}
}

// RedisLedger is the Redis-backed failure ledger, grounded on the
// original source's FailedMessageHandler: store/increment retry count under
// failed:retry:{key}, the failure body under failed:message:{key}, and
// escalate to dead:letter:{key} once maxRetries is exceeded.
//
// An [EXPANSION] over the source: permanent failures (validation rejections,
// malformed payloads) bypass the retry counter and go straight to the dead
// letter, since retrying them can never succeed.
type RedisLedger struct {
	client *redis.Client
	cfg    Config
	logger *log.Entry
}

// NewRedisLedger wraps an existing Redis client.
func NewRedisLedger(client *redis.Client, cfg Config) *RedisLedger {
	return &RedisLedger{
		client: client,
		cfg:    cfg,
		logger: log.WithField("component", "ledger"),
	}
}

// Record stores a failed intent and returns whether it was merely counted
// towards retry or escalated to the dead letter. permanent forces immediate
// dead-lettering regardless of retry count.
func (l *RedisLedger) Record(ctx context.Context, key string, message []byte, cause error, permanent bool) (domain.RecordOutcome, error) {
	retryCountKey := retryCountPrefix + key

	retryCount := 0
	if !permanent {
		count, err := l.client.Get(ctx, retryCountKey).Int()
		if err != nil && err != redis.Nil {
			l.logger.WithError(err).WithField("key", key).Error("failed reading retry count")
			return "", err
		}
		retryCount = count
	}

	if permanent || retryCount >= l.cfg.MaxRetries {
		if err := l.moveToDeadLetter(ctx, key, message, cause); err != nil {
			return "", err
		}
		l.logger.WithField("key", key).WithField("retryCount", retryCount).Warn("message moved to dead letter")
		return domain.RecordOutcomeDeadLettered, nil
	}

	if err := l.storeFailedMessage(ctx, key, message, cause, retryCount); err != nil {
		return "", err
	}
	if err := l.client.Incr(ctx, retryCountKey).Err(); err != nil {
		l.logger.WithError(err).WithField("key", key).Error("failed incrementing retry count")
		return "", err
	}
	l.client.Expire(ctx, retryCountKey, l.cfg.TTL)

	l.logger.WithField("key", key).WithField("retryCount", retryCount+1).Info("failed message recorded")
	return domain.RecordOutcomeRetryRecorded, nil
}

func (l *RedisLedger) storeFailedMessage(ctx context.Context, key string, message []byte, cause error, retryCount int) error {
	record := domain.FailureRecord{
		Key:        key,
		Message:    message,
		Error:      cause.Error(),
		RetryCount: retryCount + 1,
		MaxRetries: l.cfg.MaxRetries,
		Timestamp:  time.Now(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, failedMessagePrefix+key, raw, l.cfg.TTL).Err()
}

func (l *RedisLedger) moveToDeadLetter(ctx context.Context, key string, message []byte, cause error) error {
	record := domain.FailureRecord{
		Key:        key,
		Message:    message,
		Error:      cause.Error(),
		MaxRetries: l.cfg.MaxRetries,
		Timestamp:  time.Now(),
		DeadLetter: true,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, deadLetterPrefix+key, raw, l.cfg.TTL).Err()
}

// Get returns the failed-message record, checking the dead letter first,
// then the retry-pending record.
func (l *RedisLedger) Get(ctx context.Context, key string) (domain.FailureRecord, bool, error) {
	if raw, err := l.client.Get(ctx, deadLetterPrefix+key).Bytes(); err == nil {
		var record domain.FailureRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return domain.FailureRecord{}, false, err
		}
		return record, true, nil
	} else if err != redis.Nil {
		return domain.FailureRecord{}, false, err
	}

	raw, err := l.client.Get(ctx, failedMessagePrefix+key).Bytes()
	if err == redis.Nil {
		return domain.FailureRecord{}, false, nil
	}
	if err != nil {
		return domain.FailureRecord{}, false, err
	}
	var record domain.FailureRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.FailureRecord{}, false, err
	}
	return record, true, nil
}

// ListDeadLetters scans dead:letter:* keys and returns up to limit records,
// for use by operator tooling replaying the dead letter queue. Unlike Get,
// this is not part of domain.FailureLedger since the pipeline itself never
// needs to enumerate failures, only record and look one up by key.
func (l *RedisLedger) ListDeadLetters(ctx context.Context, limit int) ([]domain.FailureRecord, error) {
	records := make([]domain.FailureRecord, 0, limit)
	var cursor uint64
	for {
		keys, next, err := l.client.Scan(ctx, cursor, deadLetterPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			raw, err := l.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			var record domain.FailureRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				return nil, err
			}
			records = append(records, record)
			if len(records) >= limit {
				return records, nil
			}
		}
		cursor = next
		if cursor == 0 {
			return records, nil
		}
	}
}

// DeleteDeadLetter removes the dead:letter:{key} record, used by operator
// tooling once a dead letter has been successfully replayed.
func (l *RedisLedger) DeleteDeadLetter(ctx context.Context, key string) error {
	return l.client.Del(ctx, deadLetterPrefix+key).Err()
}

var _ domain.FailureLedger = (*RedisLedger)(nil)
