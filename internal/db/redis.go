package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/jobalert-service/internal/logger"
)

// Redis carries the cycle lock and the job-discovered events; both are
// short round trips, so the timeouts stay tight.
const (
	redisClientName   = "jobalert-service"
	redisDialTimeout  = 5 * time.Second
	redisIOTimeout    = 3 * time.Second
	redisPingAttempts = 3
)

// NewRedisClient parses redisURL and pings the server, retrying while it
// starts up. Errors never echo the URL, which may hold a password.
func NewRedisClient(ctx context.Context, redisURL string, log *logger.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", redisURLError(err))
	}
	opts.ClientName = redisClientName
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opts)
	for attempt := 1; ; attempt++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			break
		}
		if attempt == redisPingAttempts || ctx.Err() != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping failed after %d attempts: %w", attempt, err)
		}
		log.Warn("redis not ready, retrying", "addr", opts.Addr, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	log.Info("redis ready", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// redisURLError drops the url.Error wrapper, whose message repeats the
// full URL.
func redisURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
