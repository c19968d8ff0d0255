package ppg

// Calibration holds every tunable threshold of the PPG pipeline in one
// versioned structure.
//
// All values are empirically chosen calibration parameters, not derived
// constants. They are grouped here so a recalibration against a labeled
// dataset is a config change, not a code change. Tests override individual
// fields; production loads overrides from the environment (see
// internal/config).
type Calibration struct {
	Version string

	// Validation / normalization
	MinSamples       int     // minimum valid samples required for analysis
	MinValidFraction float64 // minimum surviving fraction after range filtering
	MinRawRange      float64 // minimum raw max-min before normalization is unstable
	RawMin           float64 // lower bound of a raw camera-mean sample
	RawMax           float64 // upper bound of a raw camera-mean sample

	// Detrending / filtering
	DetrendWindowSec float64 // sliding linear-regression window
	LowPassCutoffHz  float64 // upper edge of the PPG band
	HighPassCutoffHz float64 // lower edge of the PPG band
	MinFilterLen     int     // signals shorter than this pass through unchanged

	// Clipping
	ClipLowLevel          float64 // normalized value at or below which a sample counts as clipped
	ClipHighLevel         float64 // normalized value at or above which a sample counts as clipped
	ClipBlendRatio        float64 // clipping ratio that forces the autocorrelation-weighted blend
	ClipModerateRatio     float64 // ratio above which the moderate quality multiplier applies
	ClipSevereRatio       float64 // ratio above which the severe quality multiplier applies
	ClipModerateMult      float64
	ClipSevereMult        float64

	// Heart-rate estimation
	PeakThresholdFraction float64 // peak threshold = min + fraction*(max-min)
	RefractorySec         float64 // minimum spacing between accepted peaks
	IntervalOutlierFrac   float64 // intervals deviating more than this from the median are dropped
	AutocorrMinPeriodSec  float64 // shortest candidate period (fastest rate)
	AutocorrMaxPeriodSec  float64 // longest candidate period (slowest rate)
	BlendAutocorrWeight   float64 // autocorrelation weight in the robust blend
	BlendDivergenceBPM    float64 // estimator disagreement that forces the blend
	BlendQualityGate      float64 // quality below this forces the blend
	DefaultBPM            float64 // fallback when neither estimator produces a value

	// Quality scoring
	QualityWeightSNR       float64
	QualityWeightPeriod    float64
	QualityWeightStability float64
	QualityWeightSpectral  float64
	SNRFullScaleDB         float64 // SNR in dB mapping to a 1.0 SNR term
	PeriodicityMaxLag      int     // autocorrelation lag cap for the periodicity term
	PeriodicityCorrMin     float64 // autocorrelation peaks below this are ignored
	PeriodicityPeakTarget  int     // peak count mapping to a 1.0 periodicity term
	StabilitySegments      int     // segments compared for temporal stability
	StabilityTolerance     float64 // allowed segment-mean spread as a fraction of the overall mean
	SpectralBandLowHz      float64 // PPG concentration band lower edge
	SpectralBandHighHz     float64 // PPG concentration band upper edge

	// Result policy
	EstimateQualityGate float64 // quality below this downgrades the result to an estimate
	HighBPMGate         float64 // rates at or above this get extra scrutiny
	HighBPMQualityGate  float64 // quality gate for high rates
	PeakDivergenceRatio float64 // peak/autocorr ratio above which a high rate is suspect
	MinHeartRateBPM     float64
	MaxHeartRateBPM     float64

	// HRV
	HRVPeakThreshold float64 // fixed normalized peak threshold for interval detection
	HRVMinIntervals  int
	HRVMinGapMs      float64
	HRVMaxGapMs      float64

	// Respiration
	RespEnvelopeWindowSec float64
	RespRefractorySec     float64
	RespMinPeaks          int
	MinRespRateBrPM       float64
	MaxRespRateBrPM       float64

	// Multimodal fusion / enrollment comparison
	FusionFingerprintWeight float64
	FusionPPGWeight         float64
	HRCompareToleranceBPM   float64
}

// DefaultCalibration returns the calibration shipped with the service.
// The values reproduce the original tuning; see DESIGN.md for provenance.
func DefaultCalibration() Calibration {
	return Calibration{
		Version: "2024.1",

		MinSamples:       30,
		MinValidFraction: 0.8,
		MinRawRange:      1.0,
		RawMin:           0,
		RawMax:           255,

		DetrendWindowSec: 5.0,
		LowPassCutoffHz:  5.0,
		HighPassCutoffHz: 0.5,
		MinFilterLen:     10,

		ClipLowLevel:      0.02,
		ClipHighLevel:     0.98,
		ClipBlendRatio:    0.15,
		ClipModerateRatio: 0.2,
		ClipSevereRatio:   0.35,
		ClipModerateMult:  0.7,
		ClipSevereMult:    0.5,

		PeakThresholdFraction: 0.4,
		RefractorySec:         0.5,
		IntervalOutlierFrac:   0.5,
		AutocorrMinPeriodSec:  0.5,
		AutocorrMaxPeriodSec:  1.5,
		BlendAutocorrWeight:   0.65,
		BlendDivergenceBPM:    10,
		BlendQualityGate:      0.65,
		DefaultBPM:            60,

		QualityWeightSNR:       0.4,
		QualityWeightPeriod:    0.3,
		QualityWeightStability: 0.15,
		QualityWeightSpectral:  0.15,
		SNRFullScaleDB:         10,
		PeriodicityMaxLag:      100,
		PeriodicityCorrMin:     0.3,
		PeriodicityPeakTarget:  5,
		StabilitySegments:      4,
		StabilityTolerance:     0.1,
		SpectralBandLowHz:      0.8,
		SpectralBandHighHz:     3.5,

		EstimateQualityGate: 0.2,
		HighBPMGate:         110,
		HighBPMQualityGate:  0.6,
		PeakDivergenceRatio: 1.15,
		MinHeartRateBPM:     40,
		MaxHeartRateBPM:     200,

		HRVPeakThreshold: 0.3,
		HRVMinIntervals:  3,
		HRVMinGapMs:      300,
		HRVMaxGapMs:      2000,

		RespEnvelopeWindowSec: 3.0,
		RespRefractorySec:     2.0,
		RespMinPeaks:          2,
		MinRespRateBrPM:       6,
		MaxRespRateBrPM:       30,

		FusionFingerprintWeight: 0.6,
		FusionPPGWeight:         0.4,
		HRCompareToleranceBPM:   10,
	}
}
