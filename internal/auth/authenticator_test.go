package auth

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/config"
	"wisefido-ppg-auth/internal/mlclient"
	"wisefido-ppg-auth/internal/models"
	"wisefido-ppg-auth/internal/ppg"
	"wisefido-ppg-auth/internal/repository"
	"wisefido-ppg-auth/internal/store"
)

type fakeEnrollments struct {
	baselines map[string]float64
	upserts   map[string]float64
	failWith  error
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{baselines: map[string]float64{}, upserts: map[string]float64{}}
}

func (f *fakeEnrollments) GetBaseline(_ context.Context, userID string) (float64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	bpm, ok := f.baselines[userID]
	if !ok {
		return 0, repository.ErrNotEnrolled
	}
	return bpm, nil
}

func (f *fakeEnrollments) Get(_ context.Context, userID string) (*models.Enrollment, error) {
	bpm, ok := f.baselines[userID]
	if !ok {
		if v, upserted := f.upserts[userID]; upserted {
			bpm, ok = v, true
		}
	}
	if !ok {
		return nil, repository.ErrNotEnrolled
	}
	return &models.Enrollment{UserID: userID, BaselineBPM: bpm}, nil
}

func (f *fakeEnrollments) Upsert(_ context.Context, userID string, baselineBPM float64) error {
	f.upserts[userID] = baselineBPM
	return nil
}

type fakeSessions struct {
	inserted []*models.AuthSession
}

func (f *fakeSessions) Insert(_ context.Context, s *models.AuthSession) error {
	f.inserted = append(f.inserted, s)
	return nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userID string, _ int) ([]models.AuthSession, error) {
	var out []models.AuthSession
	for _, s := range f.inserted {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

type fakeAnalyzer struct {
	outcome mlclient.Outcome
	healthy bool
	calls   int
}

func (f *fakeAnalyzer) Analyze(context.Context, []float64, float64) mlclient.Outcome {
	f.calls++
	return f.outcome
}

func (f *fakeAnalyzer) Health(context.Context) bool { return f.healthy }

type fakeProvider struct {
	result models.BiometricResult
	err    error
}

func (f *fakeProvider) Prompt(context.Context, string) (models.BiometricResult, error) {
	return f.result, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.DecisionThreshold = 0.75
	cfg.Auth.VitalsKeyPrefix = "ppg:vitals:"
	cfg.Auth.VitalsTTL = 300
	cfg.Calibration = ppg.DefaultCalibration()
	return cfg
}

// pulseSignal synthesizes a clean capture at the given beat frequency.
func pulseSignal(freqHz, frameRate, durSec float64) []float64 {
	n := int(frameRate * durSec)
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / frameRate
		samples[i] = 128 + 20*math.Sin(2*math.Pi*freqHz*t)
	}
	return samples
}

func TestVerify_EnrolledUserAuthenticates(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.baselines["user-1"] = 72
	sessions := &fakeSessions{}
	kv := newFakeKV()

	a := New(testConfig(), enrollments, sessions, kv, zap.NewNop())

	res, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
		Biometric: &models.BiometricResult{Success: true, Score: 0.95},
	})
	require.NoError(t, err)
	require.True(t, res.Authenticated)
	require.GreaterOrEqual(t, res.FusedScore, 0.75)
	require.Equal(t, SourceDeterministic, res.VitalsSource)
	require.NotEmpty(t, res.SessionID)

	require.Len(t, sessions.inserted, 1)
	require.Equal(t, res.SessionID, sessions.inserted[0].SessionID)
	require.True(t, sessions.inserted[0].Authenticated)
	require.False(t, sessions.inserted[0].UsedML)

	// the verify run caches a vitals snapshot
	raw, err := kv.Get(context.Background(), "ppg:vitals:user-1:latest")
	require.NoError(t, err)
	var snap models.VitalsSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	require.NotNil(t, snap.HeartRate)
	require.InDelta(t, 72, *snap.HeartRate, 5)
}

func TestVerify_NotEnrolledFallsBackToBiometric(t *testing.T) {
	sessions := &fakeSessions{}
	a := New(testConfig(), newFakeEnrollments(), sessions, newFakeKV(), zap.NewNop())

	res, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "stranger",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
		Biometric: &models.BiometricResult{Success: true, Score: 0.9},
	})
	require.NoError(t, err)
	// zero PPG quality collapses the fused score onto the biometric
	require.InDelta(t, 0.9, res.FusedScore, 1e-9)
	require.True(t, res.Authenticated)
	require.Contains(t, res.Warnings, "no enrolled baseline, PPG channel ignored")
}

func TestVerify_NoBiometricAvailableDenied(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.baselines["user-1"] = 72
	a := New(testConfig(), enrollments, &fakeSessions{}, newFakeKV(), zap.NewNop())

	res, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
	})
	require.NoError(t, err)
	require.False(t, res.Authenticated)
	require.Contains(t, res.Warnings, "device biometric unavailable")
}

func TestVerify_ProviderPromptUsed(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.baselines["user-1"] = 72
	provider := &fakeProvider{result: models.BiometricResult{Success: true, Score: 0.92}}

	a := New(testConfig(), enrollments, &fakeSessions{}, newFakeKV(), zap.NewNop(),
		WithBiometricProvider(provider))

	res, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
	})
	require.NoError(t, err)
	require.True(t, res.Authenticated)
	require.InDelta(t, 0.92, res.Components.FingerprintScore, 1e-9)
}

func TestVerify_EnrollmentStoreFailureIsAnError(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.failWith = errors.New("db down")
	a := New(testConfig(), enrollments, &fakeSessions{}, newFakeKV(), zap.NewNop())

	_, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
		Biometric: &models.BiometricResult{Success: true, Score: 0.9},
	})
	require.Error(t, err)
}

func TestExtractVitals_MLResultPreferred(t *testing.T) {
	hr := 75
	quality := 0.9
	ml := &fakeAnalyzer{outcome: mlclient.Outcome{
		Used: true,
		Result: &mlclient.AnalyzeResponse{
			Success:       true,
			HeartRate:     &hr,
			SignalQuality: quality,
			Confidence:    0.88,
		},
	}}
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop(),
		WithMLAnalyzer(ml))

	res, source := a.ExtractVitals(context.Background(), "user-1", pulseSignal(1.2, 14, 20), 14)
	require.Equal(t, SourceML, source)
	require.True(t, res.Success)
	require.Equal(t, 75, *res.HeartRate)
	require.Equal(t, 0.9, res.SignalQuality)
	// HRV comes from the deterministic run when the model omits it
	require.NotNil(t, res.HeartRateVariability)
	require.Equal(t, 1, ml.calls)
}

func TestExtractVitals_MLLowConfidenceBecomesEstimate(t *testing.T) {
	hr := 90
	ml := &fakeAnalyzer{outcome: mlclient.Outcome{
		Reason: mlclient.FallbackLowConfidence,
		Result: &mlclient.AnalyzeResponse{Success: true, HeartRate: &hr, Confidence: 0.2},
	}}
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop(),
		WithMLAnalyzer(ml))

	res, source := a.ExtractVitals(context.Background(), "user-1", pulseSignal(1.2, 14, 20), 14)
	require.Equal(t, SourceML, source)
	require.True(t, res.IsEstimate)
	require.Contains(t, res.Warnings, "low model confidence, treat as estimate")
}

func TestExtractVitals_MLUnavailableFallsBack(t *testing.T) {
	ml := &fakeAnalyzer{outcome: mlclient.Outcome{Reason: mlclient.FallbackUnavailable}}
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop(),
		WithMLAnalyzer(ml))

	res, source := a.ExtractVitals(context.Background(), "user-1", pulseSignal(1.2, 14, 20), 14)
	require.Equal(t, SourceDeterministic, source)
	require.True(t, res.Success)
	require.Contains(t, res.Warnings, "ml fallback: unavailable")
	require.Equal(t, int64(1), a.Metrics().GetSnapshot().MLFallbacks)
}

func TestEnroll_CleanCaptureStoresBaseline(t *testing.T) {
	enrollments := newFakeEnrollments()
	a := New(testConfig(), enrollments, &fakeSessions{}, newFakeKV(), zap.NewNop())

	e, err := a.Enroll(context.Background(), "user-9", pulseSignal(1.2, 14, 20), 14)
	require.NoError(t, err)
	require.Equal(t, "user-9", e.UserID)
	require.InDelta(t, 72, enrollments.upserts["user-9"], 5)
}

func TestEnroll_PoorSignalRejected(t *testing.T) {
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop())

	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 128
	}
	_, err := a.Enroll(context.Background(), "user-9", flat, 14)
	require.ErrorIs(t, err, ErrEnrollmentQuality)
}

func TestLatestVitals_MissReturnsErrNoVitals(t *testing.T) {
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop())

	_, err := a.LatestVitals(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoVitals)
}

func TestLatestVitals_RoundTrip(t *testing.T) {
	a := New(testConfig(), newFakeEnrollments(), &fakeSessions{}, newFakeKV(), zap.NewNop())

	res, _ := a.ExtractVitals(context.Background(), "user-1", pulseSignal(1.2, 14, 20), 14)
	require.True(t, res.Success)

	snap, err := a.LatestVitals(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", snap.UserID)
	require.Equal(t, SourceDeterministic, snap.Source)
	require.Equal(t, *res.HeartRate, *snap.HeartRate)
}

func TestMetrics_CountsVerifyOutcomes(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.baselines["user-1"] = 72
	a := New(testConfig(), enrollments, &fakeSessions{}, newFakeKV(), zap.NewNop())

	_, err := a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
		Biometric: &models.BiometricResult{Success: true, Score: 0.95},
	})
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), VerifyInput{
		UserID:    "user-1",
		Samples:   pulseSignal(1.2, 14, 20),
		FrameRate: 14,
		Biometric: &models.BiometricResult{Success: false},
	})
	require.NoError(t, err)

	snap := a.Metrics().GetSnapshot()
	require.Equal(t, int64(2), snap.VerifyAttempts)
	require.Equal(t, int64(1), snap.VerifySucceeded)
	require.Equal(t, int64(1), snap.VerifyDenied)
}
