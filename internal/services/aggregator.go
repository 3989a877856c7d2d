package services

import (
	"context"
	"sort"
	"time"

	"neuropulse/internal/models"
)

const DefaultUsageWindow = 24 * time.Hour

// UsageSource is the system statistics source: per-application foreground
// time between start and end, in the source's native order.
type UsageSource interface {
	QueryForegroundStats(ctx context.Context, start, end time.Time) ([]models.UsageEntry, error)
}

// UsageSummary is the aggregate of one window.
type UsageSummary struct {
	DominantApp   string
	ActiveSeconds int64
	WindowStart   time.Time
	WindowEnd     time.Time
}

type UsageAggregator struct {
	source UsageSource
	window time.Duration
}

func NewUsageAggregator(source UsageSource, window time.Duration) *UsageAggregator {
	if window <= 0 {
		window = DefaultUsageWindow
	}
	return &UsageAggregator{source: source, window: window}
}

func (a *UsageAggregator) Window() time.Duration { return a.window }

// Aggregate queries the trailing window ending at now. It returns
// ErrEmptyWindow when the source has no entries and *SourceUnavailableError
// when the source is missing or fails.
func (a *UsageAggregator) Aggregate(ctx context.Context, now time.Time) (*UsageSummary, error) {
	if a.source == nil {
		return nil, &SourceUnavailableError{}
	}

	start := now.Add(-a.window)
	entries, err := a.source.QueryForegroundStats(ctx, start, now)
	if err != nil {
		return nil, &SourceUnavailableError{Err: err}
	}
	if len(entries) == 0 {
		return nil, ErrEmptyWindow
	}

	ranked := rankByForeground(entries)

	var total int64
	for _, e := range ranked {
		total += wholeSeconds(e.ForegroundMillis)
	}

	return &UsageSummary{
		DominantApp:   ranked[0].AppID,
		ActiveSeconds: total,
		WindowStart:   start,
		WindowEnd:     now,
	}, nil
}

// rankByForeground sorts a copy of entries by foreground time, descending.
// Ties keep the source order.
func rankByForeground(entries []models.UsageEntry) []models.UsageEntry {
	ranked := make([]models.UsageEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ForegroundMillis > ranked[j].ForegroundMillis
	})
	return ranked
}

// wholeSeconds truncates per entry, matching how the platform reports totals.
func wholeSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return ms / 1000
}
