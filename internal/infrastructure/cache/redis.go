package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to REDIS_URL. A comma separated list of addresses
// yields a cluster client.
func NewRedisClient(ctx context.Context, redisURL string, log zerolog.Logger) (redis.UniversalClient, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Strs("addrs", opts.Addrs).Msg("connected to redis")
	return client, nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = parsed.DialTimeout
		}
		if opts.ReadTimeout == 0 {
			opts.ReadTimeout = parsed.ReadTimeout
		}
		if opts.WriteTimeout == 0 {
			opts.WriteTimeout = parsed.WriteTimeout
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}
	return opts, nil
}
