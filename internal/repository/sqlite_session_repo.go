package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"neuropulse/internal/models"
)

// SQLiteSessionRepo is the device-local session log. Writes are serialized
// in-process; WAL mode keeps readers off the writer's path.
type SQLiteSessionRepo struct {
	db      *sql.DB
	writeMu sync.Mutex
}

func NewSQLiteSessionRepo(db *sql.DB) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: db}
}

func (r *SQLiteSessionRepo) Insert(ctx context.Context, s *models.SessionRecord) error {
	if err := validateRecord(s); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	const stmt = `
INSERT INTO usage_sessions (
  dominant_app, active_seconds, risk_level, unlocks_last_hour,
  notifications_last_30_min, is_night, category, timestamp_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
	res, err := r.db.ExecContext(ctx, stmt,
		s.DominantApp,
		s.ActiveSeconds,
		string(s.RiskLevel),
		s.UnlocksLastHour,
		s.NotificationsLast30Min,
		s.IsNight,
		s.Category,
		s.TimestampMillis(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read session id: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SQLiteSessionRepo) GetAllSessions(ctx context.Context) ([]models.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, dominant_app, active_seconds, risk_level, unlocks_last_hour,
       notifications_last_30_min, is_night, category, timestamp_ms
FROM usage_sessions
ORDER BY id ASC;
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
