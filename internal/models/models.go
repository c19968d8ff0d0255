// Package models holds the data types exchanged between the service layers.
package models

import "time"

// BiometricResult is the outcome of the device biometric prompt
// (fingerprint / Face ID), supplied by the platform layer.
type BiometricResult struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"` // [0,1]
	Error   string  `json:"error,omitempty"`
}

// Enrollment is a user's stored heart-rate baseline.
type Enrollment struct {
	UserID      string    `json:"user_id"`
	BaselineBPM float64   `json:"baseline_bpm"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthSession is one verification attempt, persisted for audit and tuning.
type AuthSession struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	Authenticated    bool      `json:"authenticated"`
	FusedScore       float64   `json:"fused_score"`
	FingerprintScore float64   `json:"fingerprint_score"`
	PPGScore         float64   `json:"ppg_score"`
	PPGQuality       float64   `json:"ppg_quality"`
	HeartRate        *int      `json:"heart_rate,omitempty"`
	IsEstimate       bool      `json:"is_estimate"`
	UsedML           bool      `json:"used_ml"`
	CreatedAt        time.Time `json:"created_at"`
}

// VitalsSnapshot is the latest extracted vitals cached per user.
type VitalsSnapshot struct {
	UserID               string   `json:"user_id"`
	Timestamp            int64    `json:"timestamp"`
	HeartRate            *int     `json:"heart_rate,omitempty"`
	HeartRateVariability *float64 `json:"heart_rate_variability,omitempty"`
	RespiratoryRate      *int     `json:"respiratory_rate,omitempty"`
	SignalQuality        float64  `json:"signal_quality"`
	IsEstimate           bool     `json:"is_estimate"`
	Source               string   `json:"source"` // "ml" or "deterministic"
}
