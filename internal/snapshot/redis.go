package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/satfarm/farmcarbon/internal/ndvi"
)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "farmcarbon:snapshot"

// Redis stores snapshots as JSON under "<prefix>:<farmerID>".
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix defaults to DefaultPrefix.
	Prefix string

	// TTL of zero keeps snapshots until overwritten.
	TTL time.Duration
}

// NewRedis connects to the server at opts.Addr.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisWithClient(client, opts.Prefix, opts.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{
		client: client,
		prefix: strings.TrimRight(prefix, ":"),
		ttl:    ttl,
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, farmerID string) (*ndvi.ChangeResult, bool, error) {
	data, err := r.client.Get(ctx, r.key(farmerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get snapshot %q: %w", farmerID, err)
	}

	var result ndvi.ChangeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %q: %w", farmerID, err)
	}
	return &result, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, farmerID string, result *ndvi.ChangeResult) error {
	if result == nil {
		return errors.New("snapshot: nil result")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", farmerID, err)
	}
	if err := r.client.Set(ctx, r.key(farmerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot %q: %w", farmerID, err)
	}
	return nil
}

func (r *Redis) key(farmerID string) string {
	return r.prefix + ":" + farmerID
}
