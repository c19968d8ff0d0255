package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"wisefido-ppg-auth/internal/ppg"
)

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MLConfig settings for the remote ML inference service. The timeout bounds
// the whole ML attempt: a slow model must never block authentication.
type MLConfig struct {
	Enabled       bool
	BaseURL       string
	Timeout       time.Duration
	RetryCount    int
	MinConfidence float64 // ML results below this are kept only as estimates
}

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	ML       MLConfig

	HTTP struct {
		Addr string
	}

	Auth struct {
		// fused score at or above this verifies the user
		DecisionThreshold float64
		// latest-vitals cache
		VitalsKeyPrefix string
		VitalsTTL       int // seconds
	}

	// Calibration carries every pipeline threshold; defaults reproduce the
	// shipped tuning and selected knobs can be overridden per deployment.
	Calibration ppg.Calibration

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment with defaults suitable for
// local development.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ppgauth")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.ML.Enabled = getEnv("ML_ENABLED", "true") == "true"
	cfg.ML.BaseURL = getEnv("ML_BASE_URL", "http://localhost:8001")
	cfg.ML.Timeout = time.Duration(getEnvInt("ML_TIMEOUT_MS", 3000)) * time.Millisecond
	cfg.ML.RetryCount = getEnvInt("ML_RETRY_COUNT", 1)
	cfg.ML.MinConfidence = getEnvFloat("ML_MIN_CONFIDENCE", 0.5)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Auth.DecisionThreshold = getEnvFloat("AUTH_DECISION_THRESHOLD", 0.75)
	cfg.Auth.VitalsKeyPrefix = getEnv("CACHE_VITALS_PREFIX", "ppg:vitals:")
	cfg.Auth.VitalsTTL = getEnvInt("CACHE_VITALS_TTL", 300) // 5 minutes

	cfg.Calibration = ppg.DefaultCalibration()
	// deployment-tunable gates; the rest changes only with a recalibration
	cfg.Calibration.EstimateQualityGate = getEnvFloat("PPG_ESTIMATE_QUALITY_GATE", cfg.Calibration.EstimateQualityGate)
	cfg.Calibration.BlendQualityGate = getEnvFloat("PPG_BLEND_QUALITY_GATE", cfg.Calibration.BlendQualityGate)
	cfg.Calibration.HRCompareToleranceBPM = getEnvFloat("PPG_HR_TOLERANCE_BPM", cfg.Calibration.HRCompareToleranceBPM)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
