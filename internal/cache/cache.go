package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/observability"
)

// Cache is a redis backed read-through cache whose entries can be dropped by tag.
// A nil redis client turns every lookup into a pass-through.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// New builds a cache storing keys under prefix.
func New(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "arena"
	}
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (c *Cache) entryKey(key string) string {
	return c.prefix + ":cache:" + key
}

func (c *Cache) tagKey(tag string) string {
	return c.prefix + ":tag:" + tag
}

// Remember returns the cached value for key or loads, stores and tags it.
// Cache failures are logged and never fail the call.
func Remember[T any](ctx context.Context, c *Cache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	namespace := strings.SplitN(key, ":", 2)[0]

	if c != nil && c.client != nil {
		raw, err := c.client.Get(ctx, c.entryKey(key)).Bytes()
		switch {
		case err == nil:
			var cached T
			if unmarshalErr := json.Unmarshal(raw, &cached); unmarshalErr == nil {
				observability.CacheLookups().WithLabelValues(namespace, "hit").Inc()
				return cached, nil
			}
			c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read cache")
		}
	}
	observability.CacheLookups().WithLabelValues(namespace, "miss").Inc()

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if c != nil && c.client != nil {
		if err := c.store(ctx, key, tags, value); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
		}
	}

	return value, nil
}

func (c *Cache) store(ctx context.Context, key string, tags []string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	entry := c.entryKey(key)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entry, payload, c.ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, c.tagKey(tag), entry)
			pipe.Expire(ctx, c.tagKey(tag), c.ttl*2)
		}
		return nil
	})
	return err
}

// Invalidate drops every entry carrying one of tags.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	if c == nil || c.client == nil || len(tags) == 0 {
		return nil
	}

	for _, tag := range tags {
		tagKey := c.tagKey(tag)
		members, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read cache tag %s: %w", tag, err)
		}
		keys := append(members, tagKey)
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("invalidate cache tag %s: %w", tag, err)
		}
		c.logger.Debug().Str("tag", tag).Int("entries", len(members)).Msg("cache tag invalidated")
	}
	return nil
}

// Tag names shared by services.
const (
	TagChallenges    = "challenges"
	TagShop          = "shop"
	TagAnnouncements = "announcements"
	TagLeaderboard   = "leaderboard"
	TagUsers         = "users"
)

// UserTag scopes a tag to one user.
func UserTag(kind, userID string) string {
	return kind + ":" + userID
}

// Per-user tag kinds.
const (
	KindSubmissions  = "submissions"
	KindProfile      = "profile"
	KindTransactions = "transactions"
	KindPurchases    = "purchases"
)
