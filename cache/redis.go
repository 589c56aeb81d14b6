package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/use-agent/shelfscan/models"
)

const (
	connectionTimeout = 2 * time.Second
	opTimeout         = time.Second
	keyPrefix         = "shelfscan:scrape:"
)

// Dial connects to Redis and verifies the connection with a ping.
func Dial(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type redisEntry struct {
	CreatedAt time.Time              `json:"created_at"`
	Response  *models.ScrapeResponse `json:"response"`
}

// Redis is a response cache shared between instances. Entries expire
// after an hour on the server side. Redis errors are logged and treated
// as misses.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis wraps a connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Get returns the response stored under key if it is younger than
// maxAgeMs milliseconds. maxAgeMs <= 0 disables the lookup.
func (r *Redis) Get(key string, maxAgeMs int) (*models.ScrapeResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "error", err)
		}
		return nil, false
	}

	var e redisEntry
	if err := json.Unmarshal(data, &e); err != nil || e.Response == nil {
		slog.Warn("redis cache entry unreadable", "key", key, "error", err)
		return nil, false
	}

	if r.now().Sub(e.CreatedAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.Response, true
}

// Set stores resp for up to an hour.
func (r *Redis) Set(key string, resp *models.ScrapeResponse) {
	data, err := json.Marshal(redisEntry{CreatedAt: r.now(), Response: resp})
	if err != nil {
		slog.Warn("redis cache encode failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, keyPrefix+key, data, maxLifetime).Err(); err != nil {
		slog.Warn("redis cache set failed", "error", err)
	}
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
