package ppg

// Code classifies a pipeline outcome. The pipeline never returns a Go error
// for signal conditions; callers branch on the code instead of matching
// error strings.
type Code string

const (
	// CodeOK marks a successful result (full or estimate).
	CodeOK Code = ""
	// CodeInsufficientData: fewer than MinSamples valid samples.
	CodeInsufficientData Code = "insufficient_data"
	// CodeInvalidSignal: too many out-of-range samples survived filtering.
	CodeInvalidSignal Code = "invalid_signal"
	// CodeLowDynamicRange: raw max-min below the normalization floor.
	CodeLowDynamicRange Code = "low_dynamic_range"
	// CodeLowSignalQuality is soft: the result is downgraded to an estimate,
	// never a hard failure.
	CodeLowSignalQuality Code = "low_signal_quality"
	// CodeOutOfRangeHeartRate: quality gates passed but the blended rate is
	// outside the physiological band.
	CodeOutOfRangeHeartRate Code = "out_of_range_heart_rate"
	// CodeMLServiceError is only produced at the ML boundary, never by the
	// deterministic pipeline.
	CodeMLServiceError Code = "ml_service_error"
)

// Result is the outcome of one pipeline invocation. Optional fields are
// pointers so "not computed" is distinct from zero, matching the JSON the
// mobile client and the ml-service already exchange.
type Result struct {
	Success              bool     `json:"success"`
	HeartRate            *int     `json:"heartRate,omitempty"`            // BPM, [40,200] when present
	HeartRateVariability *float64 `json:"heartRateVariability,omitempty"` // RMSSD in ms
	RespiratoryRate      *int     `json:"respiratoryRate,omitempty"`      // breaths/min, [6,30] when present
	SignalQuality        float64  `json:"signalQuality"`                  // [0,1]
	Confidence           *float64 `json:"confidence,omitempty"`           // [0,1]
	IsEstimate           bool     `json:"isEstimate,omitempty"`
	Code                 Code     `json:"code,omitempty"`
	Error                string   `json:"error,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}

func rejection(code Code, msg string) Result {
	return Result{
		Success:       false,
		SignalQuality: 0,
		Code:          code,
		Error:         msg,
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
