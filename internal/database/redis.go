package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClients struct {
	// Observers holds the rolling counters and the usage feed.
	Observers *redis.Client
	// PubSub carries monitor updates to websocket subscribers.
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	observerClient := redis.NewClient(opt)
	if err := observerClient.Ping(ctx).Err(); err != nil {
		observerClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (observers): %w", err)
	}

	// PubSub client (separate connection)
	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		observerClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Observers: observerClient,
		PubSub:    pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Observers.Close()
	r.PubSub.Close()
}
