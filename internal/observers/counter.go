// Package observers holds the redis-backed collaborators of the usage
// monitor: rolling event counters fed by the unlock and notification
// observers, the foreground-usage feed, and the update publisher.
package observers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	UnlocksKey       = "neuropulse:unlocks"
	NotificationsKey = "neuropulse:notifications"

	UnlockRetention       = 1 * time.Hour
	NotificationRetention = 30 * time.Minute
)

// EventCounter keeps event timestamps in a sorted set scored by epoch
// milliseconds and answers rolling-window counts.
type EventCounter struct {
	client    *redis.Client
	key       string
	retention time.Duration
	now       func() time.Time
}

func NewEventCounter(client *redis.Client, key string, retention time.Duration) *EventCounter {
	return &EventCounter{
		client:    client,
		key:       key,
		retention: retention,
		now:       time.Now,
	}
}

// Record adds one event and trims events that fell out of the retention
// window.
func (c *EventCounter) Record(ctx context.Context, at time.Time) error {
	cutoff := c.now().Add(-c.retention).UnixMilli()

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, c.key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
	pipe.ZRemRangeByScore(ctx, c.key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, c.key, c.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record event %s: %w", c.key, err)
	}
	return nil
}

// Count returns the number of events at or after since.
func (c *EventCounter) Count(ctx context.Context, since time.Time) (int, error) {
	n, err := c.client.ZCount(ctx, c.key, strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count events %s: %w", c.key, err)
	}
	return int(n), nil
}

type UnlockObserver struct{ *EventCounter }

func NewUnlockObserver(client *redis.Client) *UnlockObserver {
	return &UnlockObserver{NewEventCounter(client, UnlocksKey, UnlockRetention)}
}

func (o *UnlockObserver) UnlockCount(ctx context.Context, since time.Time) (int, error) {
	return o.Count(ctx, since)
}

type NotificationObserver struct{ *EventCounter }

func NewNotificationObserver(client *redis.Client) *NotificationObserver {
	return &NotificationObserver{NewEventCounter(client, NotificationsKey, NotificationRetention)}
}

func (o *NotificationObserver) NotificationCount(ctx context.Context, since time.Time) (int, error) {
	return o.Count(ctx, since)
}
