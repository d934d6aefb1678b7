package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates no run has been published under the prefix.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSummary indicates the stored run summary is corrupted.
	ErrInvalidSummary = errors.New("invalid run summary")
)

// Publisher writes feed runs to Redis.
type Publisher struct {
	redis *redis.Client
	keys  Keys
}

// NewPublisher creates a publisher writing under prefix.
func NewPublisher(redisClient *redis.Client, prefix string) *Publisher {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Publisher{
		redis: redisClient,
		keys:  KeysFor(prefix),
	}
}

// Keys returns the keys the publisher writes.
func (p *Publisher) Keys() Keys {
	return p.keys
}

// Publish stores the feed and its summary in a single pipeline.
func (p *Publisher) Publish(ctx context.Context, run Run) error {
	if run.TTL < 0 {
		return fmt.Errorf("ttl must be >= 0 (got %s)", run.TTL)
	}

	run.Summary.FeedBytes = len(run.Feed)

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		StoreErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("marshal run summary: %w", err)
	}

	pipe := p.redis.TxPipeline()
	pipe.Set(ctx, p.keys.Feed, run.Feed, run.TTL)
	pipe.Set(ctx, p.keys.LastRun, summary, run.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		StoreErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	FeedBytes.Set(float64(len(run.Feed)))

	return nil
}

// Feed returns the last published feed.
// Returns ErrNotFound if nothing was published yet or the key expired.
func (p *Publisher) Feed(ctx context.Context) (string, error) {
	feed, err := p.redis.Get(ctx, p.keys.Feed).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNotFound
		}
		StoreErrors.WithLabelValues("feed").Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}
	return feed, nil
}

// LastRun returns the summary of the last published run.
func (p *Publisher) LastRun(ctx context.Context) (*RunSummary, error) {
	data, err := p.redis.Get(ctx, p.keys.LastRun).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		StoreErrors.WithLabelValues("last_run").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		StoreErrors.WithLabelValues("last_run").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}

	return &summary, nil
}

// Clear removes both keys.
func (p *Publisher) Clear(ctx context.Context) error {
	if err := p.redis.Del(ctx, p.keys.Feed, p.keys.LastRun).Err(); err != nil {
		StoreErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
