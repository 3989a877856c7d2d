package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"neuropulse/internal/models"
)

// SessionRepo is the Postgres-backed append-only session log. Each insert is
// a single statement, so a record is either fully visible or absent.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Insert(ctx context.Context, s *models.SessionRecord) error {
	if err := validateRecord(s); err != nil {
		return err
	}

	query := `
		INSERT INTO usage_sessions (
			dominant_app, active_seconds, risk_level, unlocks_last_hour,
			notifications_last_30_min, is_night, category, timestamp_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		s.DominantApp,
		s.ActiveSeconds,
		string(s.RiskLevel),
		s.UnlocksLastHour,
		s.NotificationsLast30Min,
		s.IsNight,
		s.Category,
		s.TimestampMillis(),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetAllSessions(ctx context.Context) ([]models.SessionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dominant_app, active_seconds, risk_level, unlocks_last_hour,
		       notifications_last_30_min, is_night, category, timestamp_ms
		FROM usage_sessions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.SessionRecord{}
	for rows.Next() {
		var s models.SessionRecord
		var risk string
		var tsMillis int64
		if err := rows.Scan(
			&s.ID, &s.DominantApp, &s.ActiveSeconds, &risk, &s.UnlocksLastHour,
			&s.NotificationsLast30Min, &s.IsNight, &s.Category, &tsMillis,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.RiskLevel = models.RiskLevel(risk)
		s.Timestamp = time.UnixMilli(tsMillis).UTC()
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

var (
	ErrNilRecord     = errors.New("session record is nil")
	ErrInvalidRecord = errors.New("invalid session record")
)

func validateRecord(s *models.SessionRecord) error {
	switch {
	case s == nil:
		return ErrNilRecord
	case s.ID != 0:
		return fmt.Errorf("%w: already stored with id %d", ErrInvalidRecord, s.ID)
	case s.ActiveSeconds < 0:
		return fmt.Errorf("%w: negative active seconds", ErrInvalidRecord)
	case !s.RiskLevel.Valid():
		return fmt.Errorf("%w: unknown risk level %q", ErrInvalidRecord, s.RiskLevel)
	case s.UnlocksLastHour < 0 || s.NotificationsLast30Min < 0:
		return fmt.Errorf("%w: negative counter", ErrInvalidRecord)
	case s.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	return nil
}
