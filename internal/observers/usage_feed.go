package observers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neuropulse/internal/logging"
	"neuropulse/internal/models"
)

const UsageKey = "neuropulse:usage"

var ErrInvalidInterval = errors.New("invalid usage interval")

// UsageFeed stores foreground intervals reported by the device agent and
// serves them as the monitor's statistics source.
type UsageFeed struct {
	client    *redis.Client
	key       string
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type usageMember struct {
	ID     string `json:"id"`
	AppID  string `json:"app"`
	Millis int64  `json:"ms"`
}

func NewUsageFeed(client *redis.Client, retention time.Duration, logger *zap.Logger) *UsageFeed {
	return &UsageFeed{
		client:    client,
		key:       UsageKey,
		retention: retention,
		now:       time.Now,
		logger:    logging.OrNop(logger).Named("usage_feed"),
	}
}

func (f *UsageFeed) Record(ctx context.Context, in models.UsageInterval) error {
	switch {
	case in.AppID == "":
		return fmt.Errorf("%w: app_id is required", ErrInvalidInterval)
	case in.ForegroundMillis < 0:
		return fmt.Errorf("%w: foreground_ms must not be negative", ErrInvalidInterval)
	case in.EndedAt.IsZero():
		return fmt.Errorf("%w: ended_at is required", ErrInvalidInterval)
	}

	member, err := json.Marshal(usageMember{ID: uuid.NewString(), AppID: in.AppID, Millis: in.ForegroundMillis})
	if err != nil {
		return err
	}
	cutoff := f.now().Add(-f.retention).UnixMilli()

	pipe := f.client.TxPipeline()
	pipe.ZAdd(ctx, f.key, redis.Z{Score: float64(in.EndedAt.UnixMilli()), Member: string(member)})
	pipe.ZRemRangeByScore(ctx, f.key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// QueryForegroundStats totals intervals that ended within [start, end] per
// application. Applications appear in the order of their first interval.
func (f *UsageFeed) QueryForegroundStats(ctx context.Context, start, end time.Time) ([]models.UsageEntry, error) {
	members, err := f.client.ZRangeByScore(ctx, f.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}

	var entries []models.UsageEntry
	index := make(map[string]int)
	for _, raw := range members {
		var m usageMember
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.AppID == "" {
			f.logger.Warn("skipping malformed usage interval", zap.String("member", raw))
			continue
		}

		i, ok := index[m.AppID]
		if !ok {
			i = len(entries)
			index[m.AppID] = i
			entries = append(entries, models.UsageEntry{AppID: m.AppID})
		}
		entries[i].ForegroundMillis += m.Millis
	}

	return entries, nil
}
