package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/models"
)

// SessionRepository persists verification attempts for audit and threshold
// tuning.
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSessionRepository(db *sql.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// Insert stores one verification attempt.
func (r *SessionRepository) Insert(ctx context.Context, s *models.AuthSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions
		 (session_id, user_id, authenticated, fused_score, fingerprint_score,
		  ppg_score, ppg_quality, heart_rate, is_estimate, used_ml, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.SessionID, s.UserID, s.Authenticated, s.FusedScore, s.FingerprintScore,
		s.PPGScore, s.PPGQuality, s.HeartRate, s.IsEstimate, s.UsedML, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth session: %w", err)
	}
	return nil
}

// ListByUser returns the most recent verification attempts for a user,
// newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.AuthSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, user_id, authenticated, fused_score, fingerprint_score,
		        ppg_score, ppg_quality, heart_rate, is_estimate, used_ml, created_at
		 FROM auth_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.AuthSession
	for rows.Next() {
		var s models.AuthSession
		var heartRate sql.NullInt64
		if err := rows.Scan(
			&s.SessionID, &s.UserID, &s.Authenticated, &s.FusedScore, &s.FingerprintScore,
			&s.PPGScore, &s.PPGQuality, &heartRate, &s.IsEstimate, &s.UsedML, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan auth session: %w", err)
		}
		if heartRate.Valid {
			hr := int(heartRate.Int64)
			s.HeartRate = &hr
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auth sessions: %w", err)
	}
	return sessions, nil
}
