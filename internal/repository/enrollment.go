package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/models"
)

// ErrNotEnrolled indicates no baseline exists for the user.
var ErrNotEnrolled = errors.New("user not enrolled")

// EnrollmentRepository stores per-user heart-rate baselines.
type EnrollmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewEnrollmentRepository(db *sql.DB, logger *zap.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: logger}
}

// GetBaseline returns the enrolled baseline heart rate for a user.
func (r *EnrollmentRepository) GetBaseline(ctx context.Context, userID string) (float64, error) {
	var bpm float64
	err := r.db.QueryRowContext(ctx,
		`SELECT baseline_bpm FROM ppg_enrollments WHERE user_id = $1`,
		userID,
	).Scan(&bpm)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotEnrolled
		}
		return 0, fmt.Errorf("failed to query enrollment: %w", err)
	}
	return bpm, nil
}

// Get returns the full enrollment record.
func (r *EnrollmentRepository) Get(ctx context.Context, userID string) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, baseline_bpm, enrolled_at, updated_at
		 FROM ppg_enrollments WHERE user_id = $1`,
		userID,
	).Scan(&e.UserID, &e.BaselineBPM, &e.EnrolledAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to query enrollment: %w", err)
	}
	return e, nil
}

// Upsert creates or refreshes a user's baseline.
func (r *EnrollmentRepository) Upsert(ctx context.Context, userID string, baselineBPM float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ppg_enrollments (user_id, baseline_bpm, enrolled_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (user_id)
		 DO UPDATE SET baseline_bpm = EXCLUDED.baseline_bpm, updated_at = NOW()`,
		userID, baselineBPM,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}
	r.logger.Info("Stored enrollment baseline",
		zap.String("user_id", userID),
		zap.Float64("baseline_bpm", baselineBPM),
	)
	return nil
}
