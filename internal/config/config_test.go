package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.True(t, cfg.ML.Enabled)
	require.Equal(t, 0.75, cfg.Auth.DecisionThreshold)
	require.Equal(t, "ppg:vitals:", cfg.Auth.VitalsKeyPrefix)
	require.Equal(t, "2024.1", cfg.Calibration.Version)
	require.Equal(t, 30, cfg.Calibration.MinSamples)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("ML_ENABLED", "false")
	t.Setenv("PPG_ESTIMATE_QUALITY_GATE", "0.3")
	t.Setenv("AUTH_DECISION_THRESHOLD", "0.9")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.False(t, cfg.ML.Enabled)
	require.Equal(t, 0.3, cfg.Calibration.EstimateQualityGate)
	require.Equal(t, 0.9, cfg.Auth.DecisionThreshold)
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "h", Port: 5433, User: "u", Password: "p",
		Database: "d", SSLMode: "disable",
	}
	require.Equal(t, "host=h port=5433 user=u password=p dbname=d sslmode=disable", c.GetDSN())
}
