// Package ppg converts raw per-frame camera light-intensity samples into
// heart rate, heart-rate variability, respiratory rate and a signal-quality
// score.
//
// Pipeline stages, each consuming the previous stage's output:
//   - validation + min-max normalization
//   - sliding-window linear detrending
//   - cascaded first-order IIR band-pass (0.5-5 Hz)
//   - clipping measurement
//   - dual heart-rate estimation (refractory peaks + autocorrelation) with a
//     quality-aware blend
//   - quality scoring, HRV and respiration extraction
//   - result policy (accept / estimate / reject)
//
// The whole chain is a pure synchronous computation: no I/O, no cross-call
// state, safe to invoke concurrently as long as each call owns its input
// buffer. Signal conditions never surface as Go errors; every path returns a
// Result with a typed Code.
package ppg

import (
	"math"

	"go.uber.org/zap"
)

// Processor runs the deterministic PPG pipeline with a fixed calibration.
type Processor struct {
	cal    Calibration
	logger *zap.Logger
}

// NewProcessor creates a pipeline processor. A nil logger disables logging.
func NewProcessor(cal Calibration, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{cal: cal, logger: logger}
}

// Calibration returns the calibration the processor was built with.
func (p *Processor) Calibration() Calibration {
	return p.cal
}

// Process analyzes one buffer of raw samples captured at frameRate Hz.
//
// Result policy:
//   - validation failures reject with insufficient_data / invalid_signal /
//     low_dynamic_range (terminal, SignalQuality 0)
//   - quality below EstimateQualityGate, or a rate at/above HighBPMGate with
//     shaky support, downgrades to an estimate built from the
//     autocorrelation-weighted blend (never a hard failure: an estimate is
//     always preferred over rejection when any rate can be computed)
//   - a blended rate outside [MinHeartRateBPM, MaxHeartRateBPM] with
//     otherwise acceptable quality rejects with out_of_range_heart_rate
//   - full accepts carry HRV and respiratory rate only when their own peak
//     count gates pass; otherwise those fields are omitted, not an error
func (p *Processor) Process(samples []float64, frameRate float64) Result {
	if frameRate <= 0 {
		return rejection(CodeInvalidSignal, "frame rate must be positive")
	}

	normalized, code := p.validateAndNormalize(samples)
	if code != CodeOK {
		return rejection(code, rejectionMessage(code))
	}

	clipRatio := p.ClippingRatio(normalized)
	detrended := p.detrend(normalized, frameRate)
	filtered := p.bandpass(detrended, frameRate)

	quality := p.Quality(normalized, frameRate, clipRatio)

	peakEst, _ := p.estimateByPeaks(filtered, frameRate)
	acEst := p.estimateByAutocorrelation(filtered, frameRate)
	bpm := p.blendHeartRate(peakEst, acEst, clipRatio, quality)

	p.logger.Debug("PPG estimates",
		zap.Float64("peak_bpm", peakEst.bpm),
		zap.Float64("autocorr_bpm", acEst.bpm),
		zap.Float64("blended_bpm", bpm),
		zap.Float64("quality", quality),
		zap.Float64("clip_ratio", clipRatio),
	)

	// Estimate gates. Both estimate paths report the autocorrelation-weighted
	// blend to avoid false-high readings from spurious peaks.
	if quality < p.cal.EstimateQualityGate {
		return p.estimateResult(peakEst, acEst, quality, CodeLowSignalQuality, "signal quality too low for a full reading")
	}
	if bpm >= p.cal.HighBPMGate {
		peakExceeds := peakEst.ok && acEst.ok && peakEst.bpm > p.cal.PeakDivergenceRatio*acEst.bpm
		if quality < p.cal.HighBPMQualityGate || peakExceeds {
			return p.estimateResult(peakEst, acEst, quality, CodeOK, "high rate with weak support")
		}
	}

	if bpm < p.cal.MinHeartRateBPM || bpm > p.cal.MaxHeartRateBPM {
		r := rejection(CodeOutOfRangeHeartRate, rejectionMessage(CodeOutOfRangeHeartRate))
		r.SignalQuality = quality
		return r
	}

	result := Result{
		Success:       true,
		HeartRate:     intPtr(int(math.Round(bpm))),
		SignalQuality: quality,
		Confidence:    floatPtr(quality),
	}
	if hrv, ok := p.hrvRMSSD(normalized, frameRate); ok {
		result.HeartRateVariability = floatPtr(hrv)
	}
	if rr, ok := p.respiratoryRate(normalized, frameRate); ok {
		result.RespiratoryRate = intPtr(rr)
	}
	return result
}

// estimateResult builds the degraded-but-usable result variant.
func (p *Processor) estimateResult(peak, autocorr rateEstimate, quality float64, code Code, warning string) Result {
	bpm := p.robustBlend(peak, autocorr)
	bpm = clamp(bpm, p.cal.MinHeartRateBPM, p.cal.MaxHeartRateBPM)
	return Result{
		Success:       true,
		HeartRate:     intPtr(int(math.Round(bpm))),
		SignalQuality: quality,
		Confidence:    floatPtr(quality),
		IsEstimate:    true,
		Code:          code,
		Warnings:      []string{warning},
	}
}

func rejectionMessage(code Code) string {
	switch code {
	case CodeInsufficientData:
		return "not enough valid samples for analysis"
	case CodeInvalidSignal:
		return "too many out-of-range samples"
	case CodeLowDynamicRange:
		return "signal dynamic range too small to normalize"
	case CodeOutOfRangeHeartRate:
		return "computed heart rate outside the physiological band"
	default:
		return string(code)
	}
}
