// Package fusion combines independent authentication signals into a single
// confidence score.
//
// Fusion rule:
//   - base weights: device biometric (fingerprint / face) 0.6, PPG 0.4
//   - the PPG weight is scaled by the PPG signal quality, and the freed
//     weight moves to the device biometric
//
// A low-quality PPG reading is therefore never allowed to drag down a
// high-confidence fingerprint match; at zero quality the PPG contribution
// collapses to nothing.
package fusion

import (
	"math"

	"wisefido-ppg-auth/internal/ppg"

	"go.uber.org/zap"
)

// Result carries the fused score with the components that produced it, for
// audit logging and threshold tuning.
type Result struct {
	FusedScore float64    `json:"fusedScore"`
	Components Components `json:"components"`
}

// Components are the raw inputs of one fusion decision.
type Components struct {
	FingerprintScore float64 `json:"fingerprintScore"`
	PPGScore         float64 `json:"ppgScore"`
	PPGQuality       float64 `json:"ppgQuality"`
}

// Engine fuses scores with weights taken from the shared calibration.
type Engine struct {
	cal    ppg.Calibration
	logger *zap.Logger
}

// NewEngine creates a fusion engine. A nil logger disables logging.
func NewEngine(cal ppg.Calibration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cal: cal, logger: logger}
}

// FuseScores combines a device-biometric score with a PPG-derived score
// using quality-adaptive weights. All inputs are clamped to [0,1] first;
// the result is always in [0,1].
func (e *Engine) FuseScores(fingerprintScore, ppgScore, ppgQuality float64) Result {
	fp := clamp01(fingerprintScore)
	pg := clamp01(ppgScore)
	q := clamp01(ppgQuality)

	ppgWeight := e.cal.FusionPPGWeight * q
	fpWeight := e.cal.FusionFingerprintWeight + (e.cal.FusionPPGWeight - ppgWeight)

	total := fpWeight + ppgWeight
	if total <= 0 {
		// degenerate calibration; fall back to the device biometric alone
		total, fpWeight, ppgWeight = 1, 1, 0
	}
	fused := clamp01((fpWeight/total)*fp + (ppgWeight/total)*pg)

	e.logger.Debug("Fused multimodal scores",
		zap.Float64("fingerprint_score", fp),
		zap.Float64("ppg_score", pg),
		zap.Float64("ppg_quality", q),
		zap.Float64("fused", fused),
	)

	return Result{
		FusedScore: fused,
		Components: Components{
			FingerprintScore: fp,
			PPGScore:         pg,
			PPGQuality:       q,
		},
	}
}

// CompareHeartRate scores how well a measured heart rate matches the
// enrolled baseline: 1.0 inside the tolerance, then a linear falloff
// reaching 0 at twice the tolerance.
func (e *Engine) CompareHeartRate(currentBPM, enrolledBPM, toleranceBPM float64) float64 {
	if toleranceBPM <= 0 {
		toleranceBPM = e.cal.HRCompareToleranceBPM
	}
	diff := math.Abs(currentBPM - enrolledBPM)
	if diff <= toleranceBPM {
		return 1.0
	}
	return math.Max(0, 1-(diff-toleranceBPM)/toleranceBPM)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
