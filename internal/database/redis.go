package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

// ConnectRedis opens the client that backs the response cache, sessions and
// the watch relay. name is reported to the server as the client name.
func ConnectRedis(url, name string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if options.ClientName == "" {
		options.ClientName = name
	}
	if options.DialTimeout <= 0 {
		options.DialTimeout = redisConnectTimeout
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}

// RedisCheck reports whether client still answers PING.
func RedisCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client not configured")
		}
		return client.Ping(ctx).Err()
	}
}
