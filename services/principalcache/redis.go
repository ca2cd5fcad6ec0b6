package principalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jntm/fundtheme/models"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "fundtheme:principal:"

// Redis stores principals as JSON values with a TTL
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// RedisOptions parses url (e.g. redis://localhost:6379/0). Context deadlines
// are honoured at the socket so a hung server cannot outlive the caller's
// budget.
func RedisOptions(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.ContextTimeoutEnabled = true
	return opts, nil
}

// NewRedisClient returns a pinged go-redis client for url
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := RedisOptions(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// NewRedis creates a Redis-backed cache
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		prefix: defaultKeyPrefix,
	}
}

func (c *Redis) key(userID int64) string {
	return c.prefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached principal, ErrMiss, or a transport error
func (c *Redis) Get(ctx context.Context, userID int64) (*models.Principal, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p models.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		// corrupt entry, drop it
		_ = c.client.Del(ctx, c.key(userID)).Err()
		return nil, ErrMiss
	}
	if p.ID != userID || !p.Active {
		return nil, ErrMiss
	}
	return &p, nil
}

// Set stores an active principal; inactive ones evict any existing entry
func (c *Redis) Set(ctx context.Context, principal *models.Principal) error {
	if principal == nil {
		return nil
	}
	if !principal.Active {
		return c.Delete(ctx, principal.ID)
	}

	raw, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(principal.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the entry for userID
func (c *Redis) Delete(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity, used by the readiness probe
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
