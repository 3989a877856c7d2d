package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"neuropulse/internal/logging"
	"neuropulse/internal/metrics"
	"neuropulse/internal/models"
)

const (
	DefaultMonitorInterval = 1 * time.Minute
	unlockLookback         = 1 * time.Hour
	notificationLookback   = 30 * time.Minute
	publishTimeout         = 2 * time.Second
)

type MonitorState string

const (
	StateStopped MonitorState = "stopped"
	StateRunning MonitorState = "running"
)

// SessionStore is the append-only session log.
type SessionStore interface {
	Insert(ctx context.Context, s *models.SessionRecord) error
	GetAllSessions(ctx context.Context) ([]models.SessionRecord, error)
}

// UnlockCounter reports device unlocks since a point in time.
type UnlockCounter interface {
	UnlockCount(ctx context.Context, since time.Time) (int, error)
}

// NotificationCounter reports notification arrivals since a point in time.
type NotificationCounter interface {
	NotificationCount(ctx context.Context, since time.Time) (int, error)
}

// UpdatePublisher fans monitor updates out to connected displays.
type UpdatePublisher interface {
	Publish(ctx context.Context, msg models.WSMessage) error
}

type MonitorConfig struct {
	Interval   time.Duration
	Night      NightWindow
	Categories *CategoryTable
	Now        func() time.Time
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   DefaultMonitorInterval,
		Night:      DefaultNightWindow(),
		Categories: DefaultCategoryTable(),
		Now:        time.Now,
	}
}

// UsageMonitor runs the sample → classify → build → persist cycle on a
// fixed interval. The next cycle is scheduled only after the current one
// returns, so cycles never overlap.
type UsageMonitor struct {
	aggregator    *UsageAggregator
	store         SessionStore
	unlocks       UnlockCounter
	notifications NotificationCounter
	publisher     UpdatePublisher
	cfg           MonitorConfig
	logger        *zap.Logger

	mu       sync.Mutex
	running  atomic.Bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewUsageMonitor(
	aggregator *UsageAggregator,
	store SessionStore,
	unlocks UnlockCounter,
	notifications NotificationCounter,
	publisher UpdatePublisher,
	cfg MonitorConfig,
	logger *zap.Logger,
) *UsageMonitor {
	def := DefaultMonitorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Categories == nil {
		cfg.Categories = def.Categories
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	return &UsageMonitor{
		aggregator:    aggregator,
		store:         store,
		unlocks:       unlocks,
		notifications: notifications,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logging.OrNop(logger).Named("monitor"),
	}
}

// Start begins ticking immediately. Calling it while running is a no-op.
func (m *UsageMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		return
	}

	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	m.running.Store(true)

	m.logger.Info("usage monitor started", zap.Duration("interval", m.cfg.Interval))
	m.statusChanged(StateRunning)

	go m.loop(m.stopChan, m.done)
}

// Stop cancels the pending tick and waits for an in-flight cycle to finish.
// Calling it while stopped is a no-op.
func (m *UsageMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.Load() {
		return
	}

	close(m.stopChan)
	<-m.done
	m.running.Store(false)

	m.logger.Info("usage monitor stopped")
	m.statusChanged(StateStopped)
}

// Status is advisory; it may change right after it is read.
func (m *UsageMonitor) Status() MonitorState {
	if m.running.Load() {
		return StateRunning
	}
	return StateStopped
}

// Sessions returns every stored record in insertion order.
func (m *UsageMonitor) Sessions(ctx context.Context) ([]models.SessionRecord, error) {
	return m.store.GetAllSessions(ctx)
}

func (m *UsageMonitor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		m.tick()

		timer := time.NewTimer(m.cfg.Interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// A stop that raced with the timer still wins.
		select {
		case <-stop:
			return
		default:
		}
	}
}

// tick runs one cycle and contains every failure inside it.
func (m *UsageMonitor) tick() {
	started := time.Now()
	outcome := metrics.OutcomeRecorded

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			m.logger.Error("monitor cycle panicked", zap.Any("panic", r))
		}
		metrics.TicksTotal.WithLabelValues(outcome).Inc()
		metrics.TickDuration.Observe(time.Since(started).Seconds())
	}()

	record, err := m.RunOnce(context.Background())

	var sourceErr *SourceUnavailableError
	var persistErr *PersistenceError
	switch {
	case err == nil:
		metrics.LastActiveSeconds.Set(float64(record.ActiveSeconds))
		m.logger.Info("session recorded",
			zap.Int64("id", record.ID),
			zap.String("dominant_app", record.DominantApp),
			zap.Int64("active_minutes", ActiveMinutes(record.ActiveSeconds)),
			zap.String("risk", string(record.RiskLevel)),
			zap.Int("unlocks", record.UnlocksLastHour),
			zap.Int("notifications", record.NotificationsLast30Min),
			zap.String("category", record.Category),
			zap.Bool("night", record.IsNight),
		)
	case errors.Is(err, ErrEmptyWindow):
		outcome = metrics.OutcomeEmpty
		m.logger.Debug("usage window empty, cycle skipped")
	case errors.As(err, &sourceErr):
		outcome = metrics.OutcomeSourceError
		m.logger.Warn("usage source failed, cycle skipped", zap.Error(err))
	case errors.As(err, &persistErr):
		outcome = metrics.OutcomePersistError
		m.logger.Error("session lost for this cycle", zap.Error(err))
	default:
		outcome = metrics.OutcomeFailed
		m.logger.Error("monitor cycle failed", zap.Error(err))
	}
}

// RunOnce executes a single cycle and returns the stored record.
func (m *UsageMonitor) RunOnce(ctx context.Context) (*models.SessionRecord, error) {
	summary, err := m.aggregator.Aggregate(ctx, m.cfg.Now())
	if err != nil {
		return nil, err
	}

	now := m.cfg.Now()
	record := BuildSession(SessionInputs{
		Summary:       *summary,
		Risk:          ClassifyRisk(ActiveMinutes(summary.ActiveSeconds)),
		Unlocks:       m.unlockCount(ctx, now),
		Notifications: m.notificationCount(ctx, now),
		Category:      m.cfg.Categories.Category(summary.DominantApp),
		IsNight:       m.cfg.Night.IsNight(now),
		Timestamp:     now,
	})

	if err := m.store.Insert(ctx, &record); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	m.publish(models.WSMessage{Type: models.MessageSessionRecorded, Payload: record})
	return &record, nil
}

// Counter reads are advisory enrichment: failures count as zero.
func (m *UsageMonitor) unlockCount(ctx context.Context, now time.Time) int {
	if m.unlocks == nil {
		return 0
	}
	n, err := m.unlocks.UnlockCount(ctx, now.Add(-unlockLookback))
	if err != nil {
		m.logger.Warn("unlock count unavailable, assuming zero", zap.Error(err))
		return 0
	}
	return n
}

func (m *UsageMonitor) notificationCount(ctx context.Context, now time.Time) int {
	if m.notifications == nil {
		return 0
	}
	n, err := m.notifications.NotificationCount(ctx, now.Add(-notificationLookback))
	if err != nil {
		m.logger.Warn("notification count unavailable, assuming zero", zap.Error(err))
		return 0
	}
	return n
}

func (m *UsageMonitor) statusChanged(state MonitorState) {
	if state == StateRunning {
		metrics.MonitorRunning.Set(1)
	} else {
		metrics.MonitorRunning.Set(0)
	}

	m.publish(models.WSMessage{
		Type: models.MessageStatusChanged,
		Payload: models.StatusUpdate{
			Status:    string(state),
			ChangedAt: m.cfg.Now().UTC(),
		},
	})
}

func (m *UsageMonitor) publish(msg models.WSMessage) {
	if m.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := m.publisher.Publish(ctx, msg); err != nil {
		m.logger.Warn("failed to publish monitor update", zap.String("type", msg.Type), zap.Error(err))
	}
}
