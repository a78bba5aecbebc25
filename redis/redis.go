package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxRetries = 5
	retryDelay = 2 * time.Second
)

// Connect dials addr and pings until the server answers or retries run out.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			log.Printf("redis: connected to %s", addr)
			return client, nil
		}
		log.Printf("redis: ping failed (attempt %d/%d): %v", i+1, maxRetries, err)
		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	client.Close()
	return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
}
