package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/models"
)

func TestSessionRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hr := 72
	s := &models.AuthSession{
		SessionID:        uuid.New().String(),
		UserID:           "user-1",
		Authenticated:    true,
		FusedScore:       0.91,
		FingerprintScore: 0.95,
		PPGScore:         0.8,
		PPGQuality:       0.7,
		HeartRate:        &hr,
		IsEstimate:       false,
		UsedML:           true,
		CreatedAt:        time.Now(),
	}

	mock.ExpectExec(`INSERT INTO auth_sessions`).
		WithArgs(s.SessionID, s.UserID, s.Authenticated, s.FusedScore, s.FingerprintScore,
			s.PPGScore, s.PPGQuality, s.HeartRate, s.IsEstimate, s.UsedML, s.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSessionRepository(db, zap.NewNop())
	require.NoError(t, repo.Insert(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	cols := []string{"session_id", "user_id", "authenticated", "fused_score", "fingerprint_score",
		"ppg_score", "ppg_quality", "heart_rate", "is_estimate", "used_ml", "created_at"}
	mock.ExpectQuery(`SELECT session_id, user_id, authenticated`).
		WithArgs("user-1", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s-2", "user-1", true, 0.9, 0.95, 0.8, 0.7, 72, false, true, now).
			AddRow("s-1", "user-1", false, 0.4, 0.5, 0.2, 0.1, nil, true, false, now.Add(-time.Minute)))

	repo := NewSessionRepository(db, zap.NewNop())
	sessions, err := repo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.Equal(t, "s-2", sessions[0].SessionID)
	require.NotNil(t, sessions[0].HeartRate)
	require.Equal(t, 72, *sessions[0].HeartRate)

	require.Equal(t, "s-1", sessions[1].SessionID)
	require.Nil(t, sessions[1].HeartRate)
	require.True(t, sessions[1].IsEstimate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListByUserDefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"session_id", "user_id", "authenticated", "fused_score", "fingerprint_score",
		"ppg_score", "ppg_quality", "heart_rate", "is_estimate", "used_ml", "created_at"}
	mock.ExpectQuery(`SELECT session_id, user_id, authenticated`).
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewSessionRepository(db, zap.NewNop())
	sessions, err := repo.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, sessions)
	require.NoError(t, mock.ExpectationsWereMet())
}
