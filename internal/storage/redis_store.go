package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSeenKey = "samvad:seen_urls"

// redisStore keeps the seen set in a single hash: field = url, value = RFC3339 first-seen time.
type redisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func openRedis(rawURL string) (*redisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &redisStore{client: client, key: redisSeenKey, now: time.Now}, nil
}

func (r *redisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *redisStore) SeenArticle(ctx context.Context, url string) (bool, error) {
	ok, err := r.client.HExists(ctx, r.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists: %w", err)
	}
	return ok, nil
}

// MarkArticle relies on HSETNX for atomic insert-if-absent.
func (r *redisStore) MarkArticle(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is empty")
	}
	stamp := r.now().UTC().Format(time.RFC3339Nano)
	if err := r.client.HSetNX(ctx, r.key, url, stamp).Err(); err != nil {
		return fmt.Errorf("redis hsetnx: %w", err)
	}
	return nil
}

func (r *redisStore) FirstSeen(ctx context.Context, url string) (time.Time, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, url).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis hget: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, true, nil
	}
	return ts, true, nil
}

func (r *redisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hlen: %w", err)
	}
	return int(n), nil
}
