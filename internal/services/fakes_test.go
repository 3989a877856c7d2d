package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"neuropulse/internal/models"
)

type fakeSource struct {
	mu      sync.Mutex
	entries []models.UsageEntry
	err     error
	calls   atomic.Int64
	gotFrom time.Time
	gotTo   time.Time
}

func (f *fakeSource) QueryForegroundStats(_ context.Context, start, end time.Time) ([]models.UsageEntry, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFrom, f.gotTo = start, end
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.UsageEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// funcSource lets a test control each call.
type funcSource func(ctx context.Context, start, end time.Time) ([]models.UsageEntry, error)

func (f funcSource) QueryForegroundStats(ctx context.Context, start, end time.Time) ([]models.UsageEntry, error) {
	return f(ctx, start, end)
}

type memStore struct {
	mu      sync.RWMutex
	records []models.SessionRecord
	nextID  int64
	err     error
}

func (s *memStore) Insert(_ context.Context, r *models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	r.ID = s.nextID
	s.records = append(s.records, *r)
	return nil
}

func (s *memStore) GetAllSessions(context.Context) ([]models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *memStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

type fakeCounter struct {
	n     int
	err   error
	since time.Time
}

func (c *fakeCounter) UnlockCount(_ context.Context, since time.Time) (int, error) {
	c.since = since
	return c.n, c.err
}

func (c *fakeCounter) NotificationCount(_ context.Context, since time.Time) (int, error) {
	c.since = since
	return c.n, c.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.WSMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg models.WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}

var errBoom = errors.New("boom")
