// Package auth orchestrates multimodal verification: device biometric plus
// camera-PPG vitals, fused into one decision.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/config"
	"wisefido-ppg-auth/internal/fusion"
	"wisefido-ppg-auth/internal/mlclient"
	"wisefido-ppg-auth/internal/models"
	"wisefido-ppg-auth/internal/ppg"
	"wisefido-ppg-auth/internal/repository"
	"wisefido-ppg-auth/internal/store"
)

// Vitals sources.
const (
	SourceML            = "ml"
	SourceDeterministic = "deterministic"
)

var (
	// ErrNoVitals indicates no cached vitals snapshot exists for the user.
	ErrNoVitals = errors.New("no vitals available")
	// ErrEnrollmentQuality indicates the signal was not good enough to
	// derive a baseline from.
	ErrEnrollmentQuality = errors.New("signal quality insufficient for enrollment")
)

// DeviceBiometricProvider runs the platform biometric prompt (fingerprint,
// Face ID). It is optional: a deployment without one still verifies, on the
// PPG channel alone.
type DeviceBiometricProvider interface {
	Prompt(ctx context.Context, userID string) (models.BiometricResult, error)
}

// EnrollmentStore is the persistence surface the authenticator needs for
// baselines.
type EnrollmentStore interface {
	GetBaseline(ctx context.Context, userID string) (float64, error)
	Get(ctx context.Context, userID string) (*models.Enrollment, error)
	Upsert(ctx context.Context, userID string, baselineBPM float64) error
}

// SessionStore records verification attempts.
type SessionStore interface {
	Insert(ctx context.Context, s *models.AuthSession) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AuthSession, error)
}

// VitalsAnalyzer is the ML inference boundary.
type VitalsAnalyzer interface {
	Analyze(ctx context.Context, signal []float64, frameRate float64) mlclient.Outcome
	Health(ctx context.Context) bool
}

// VerifyInput is one verification request.
type VerifyInput struct {
	UserID    string
	Samples   []float64
	FrameRate float64
	// Biometric is the result of a prompt the mobile client already ran.
	// When nil the authenticator prompts through its provider, if any.
	Biometric *models.BiometricResult
}

// VerifyResult is the decision with everything that produced it.
type VerifyResult struct {
	SessionID     string            `json:"sessionId"`
	Authenticated bool              `json:"authenticated"`
	FusedScore    float64           `json:"fusedScore"`
	Components    fusion.Components `json:"components"`
	Vitals        ppg.Result        `json:"vitals"`
	VitalsSource  string            `json:"vitalsSource"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// Authenticator wires the extraction pipeline, the fusion engine and the
// stores into the verification flow.
type Authenticator struct {
	cfg         *config.Config
	processor   *ppg.Processor
	engine      *fusion.Engine
	ml          VitalsAnalyzer
	enrollments EnrollmentStore
	sessions    SessionStore
	cache       store.KV
	provider    DeviceBiometricProvider
	logger      *zap.Logger
	metrics     *Metrics
}

// Option configures optional authenticator collaborators.
type Option func(*Authenticator)

// WithBiometricProvider attaches a device biometric prompt. Without it the
// authenticator only accepts prompts the client ran itself.
func WithBiometricProvider(p DeviceBiometricProvider) Option {
	return func(a *Authenticator) { a.provider = p }
}

// WithMLAnalyzer attaches the ML inference client.
func WithMLAnalyzer(ml VitalsAnalyzer) Option {
	return func(a *Authenticator) { a.ml = ml }
}

// New creates the authenticator.
func New(cfg *config.Config, enrollments EnrollmentStore, sessions SessionStore, cache store.KV, logger *zap.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:         cfg,
		processor:   ppg.NewProcessor(cfg.Calibration, logger),
		engine:      fusion.NewEngine(cfg.Calibration, logger),
		enrollments: enrollments,
		sessions:    sessions,
		cache:       cache,
		logger:      logger,
		metrics:     &Metrics{StartTime: time.Now()},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Metrics exposes the activity counters.
func (a *Authenticator) Metrics() *Metrics { return a.metrics }

// MLHealthy probes the inference service.
func (a *Authenticator) MLHealthy(ctx context.Context) bool {
	if a.ml == nil {
		return false
	}
	return a.ml.Health(ctx)
}

// ExtractVitals runs the ML-first extraction: the inference service when it
// answers with enough confidence, the deterministic pipeline otherwise. The
// deterministic run always happens so ML answers missing HRV or respiration
// can be filled in. Returns the result and its source.
func (a *Authenticator) ExtractVitals(ctx context.Context, userID string, samples []float64, frameRate float64) (ppg.Result, string) {
	det := a.processor.Process(samples, frameRate)

	result, source := det, SourceDeterministic
	if a.ml != nil {
		outcome := a.ml.Analyze(ctx, samples, frameRate)
		switch {
		case outcome.Used:
			result, source = mergeMLResult(outcome.Result, det, false), SourceML
		case outcome.Reason == mlclient.FallbackLowConfidence && outcome.Result != nil:
			result, source = mergeMLResult(outcome.Result, det, true), SourceML
			result.Warnings = append(result.Warnings, "low model confidence, treat as estimate")
		case outcome.Reason == mlclient.FallbackDisabled,
			outcome.Reason == mlclient.FallbackAuthRejected:
			// silent fallback
		default:
			a.metrics.recordMLFallback()
			result.Warnings = append(result.Warnings, fmt.Sprintf("ml fallback: %s", outcome.Reason))
		}
	}
	a.metrics.recordExtraction(source == SourceML)

	if result.Success && userID != "" {
		a.cacheVitals(ctx, userID, result, source)
	}
	return result, source
}

// Verify runs one multimodal verification attempt.
func (a *Authenticator) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	start := time.Now()
	var warnings []string

	biometric, warn := a.resolveBiometric(ctx, in)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	fingerprintScore := 0.0
	if biometric.Success {
		fingerprintScore = biometric.Score
	}

	vitals, source := a.ExtractVitals(ctx, in.UserID, in.Samples, in.FrameRate)

	ppgScore, ppgQuality := 0.0, 0.0
	if vitals.Success && vitals.HeartRate != nil {
		baseline, err := a.enrollments.GetBaseline(ctx, in.UserID)
		switch {
		case err == nil:
			ppgScore = a.engine.CompareHeartRate(float64(*vitals.HeartRate), baseline, 0)
			ppgQuality = vitals.SignalQuality
		case errors.Is(err, repository.ErrNotEnrolled):
			// zero quality collapses the PPG weight onto the biometric
			warnings = append(warnings, "no enrolled baseline, PPG channel ignored")
		default:
			a.metrics.recordVerifyError()
			return nil, fmt.Errorf("failed to load enrollment: %w", err)
		}
	} else {
		warnings = append(warnings, "vitals extraction failed, PPG channel ignored")
	}

	fused := a.engine.FuseScores(fingerprintScore, ppgScore, ppgQuality)
	authenticated := biometric.Success && fused.FusedScore >= a.cfg.Auth.DecisionThreshold

	session := &models.AuthSession{
		SessionID:        uuid.New().String(),
		UserID:           in.UserID,
		Authenticated:    authenticated,
		FusedScore:       fused.FusedScore,
		FingerprintScore: fused.Components.FingerprintScore,
		PPGScore:         fused.Components.PPGScore,
		PPGQuality:       fused.Components.PPGQuality,
		HeartRate:        vitals.HeartRate,
		IsEstimate:       vitals.IsEstimate,
		UsedML:           source == SourceML,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.sessions.Insert(ctx, session); err != nil {
		// the decision stands even if the audit write fails
		a.logger.Error("Failed to record auth session",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
	}

	a.metrics.recordVerify(authenticated, time.Since(start))
	a.logger.Info("Verification decision",
		zap.String("user_id", in.UserID),
		zap.String("session_id", session.SessionID),
		zap.Bool("authenticated", authenticated),
		zap.Float64("fused_score", fused.FusedScore),
		zap.String("vitals_source", source),
	)

	return &VerifyResult{
		SessionID:     session.SessionID,
		Authenticated: authenticated,
		FusedScore:    fused.FusedScore,
		Components:    fused.Components,
		Vitals:        vitals,
		VitalsSource:  source,
		Warnings:      warnings,
	}, nil
}

// Enroll derives and stores a heart-rate baseline from a capture. Estimates
// are not good enough to enroll from.
func (a *Authenticator) Enroll(ctx context.Context, userID string, samples []float64, frameRate float64) (*models.Enrollment, error) {
	result, source := a.ExtractVitals(ctx, userID, samples, frameRate)
	if !result.Success || result.IsEstimate || result.HeartRate == nil {
		return nil, fmt.Errorf("%w: code=%s quality=%.2f", ErrEnrollmentQuality, result.Code, result.SignalQuality)
	}

	if err := a.enrollments.Upsert(ctx, userID, float64(*result.HeartRate)); err != nil {
		return nil, err
	}
	a.logger.Info("Enrolled baseline",
		zap.String("user_id", userID),
		zap.Int("baseline_bpm", *result.HeartRate),
		zap.String("vitals_source", source),
	)
	return a.enrollments.Get(ctx, userID)
}

// LatestVitals returns the cached snapshot for a user.
func (a *Authenticator) LatestVitals(ctx context.Context, userID string) (*models.VitalsSnapshot, error) {
	val, err := a.cache.Get(ctx, a.vitalsKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrNoVitals
		}
		return nil, fmt.Errorf("failed to read vitals cache: %w", err)
	}
	var snap models.VitalsSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode vitals snapshot: %w", err)
	}
	return &snap, nil
}

// Sessions returns recent verification attempts for a user.
func (a *Authenticator) Sessions(ctx context.Context, userID string, limit int) ([]models.AuthSession, error) {
	return a.sessions.ListByUser(ctx, userID, limit)
}

func (a *Authenticator) resolveBiometric(ctx context.Context, in VerifyInput) (models.BiometricResult, string) {
	if in.Biometric != nil {
		return *in.Biometric, ""
	}
	if a.provider == nil {
		return models.BiometricResult{Error: "device biometric unavailable"},
			"device biometric unavailable"
	}
	result, err := a.provider.Prompt(ctx, in.UserID)
	if err != nil {
		a.logger.Warn("Biometric prompt failed",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
		return models.BiometricResult{Error: err.Error()}, "biometric prompt failed"
	}
	return result, ""
}

func (a *Authenticator) cacheVitals(ctx context.Context, userID string, result ppg.Result, source string) {
	snap := models.VitalsSnapshot{
		UserID:               userID,
		Timestamp:            time.Now().Unix(),
		HeartRate:            result.HeartRate,
		HeartRateVariability: result.HeartRateVariability,
		RespiratoryRate:      result.RespiratoryRate,
		SignalQuality:        result.SignalQuality,
		IsEstimate:           result.IsEstimate,
		Source:               source,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ttl := time.Duration(a.cfg.Auth.VitalsTTL) * time.Second
	if err := a.cache.Set(ctx, a.vitalsKey(userID), string(data), ttl); err != nil {
		a.metrics.recordCacheWriteFailure()
		a.logger.Warn("Failed to cache vitals snapshot",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (a *Authenticator) vitalsKey(userID string) string {
	return a.cfg.Auth.VitalsKeyPrefix + userID + ":latest"
}

// mergeMLResult converts the ML answer to a pipeline result, filling HRV and
// respiration from the deterministic run when the model omitted them.
func mergeMLResult(ml *mlclient.AnalyzeResponse, det ppg.Result, estimate bool) ppg.Result {
	result := ppg.Result{
		Success:              true,
		HeartRate:            ml.HeartRate,
		HeartRateVariability: ml.HeartRateVariability,
		RespiratoryRate:      ml.RespiratoryRate,
		SignalQuality:        ml.SignalQuality,
		Confidence:           &ml.Confidence,
		IsEstimate:           estimate,
		Warnings:             append([]string(nil), ml.Warnings...),
	}
	if result.HeartRateVariability == nil && det.Success {
		result.HeartRateVariability = det.HeartRateVariability
	}
	if result.RespiratoryRate == nil && det.Success {
		result.RespiratoryRate = det.RespiratoryRate
	}
	return result
}
