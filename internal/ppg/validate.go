package ppg

import "math"

// validateAndNormalize filters raw camera samples and rescales the survivors
// to [0,1].
//
// Rejection order:
//  1. fewer than MinSamples raw samples -> insufficient_data
//  2. NaN / Inf / out-of-range samples dropped; survivors below
//     MinValidFraction of the input -> invalid_signal
//  3. survivors below MinSamples -> insufficient_data (a cancelled capture
//     session simply shows up here as a short buffer)
//  4. raw max-min below MinRawRange -> low_dynamic_range (normalizing a
//     near-constant signal would amplify quantization noise)
func (p *Processor) validateAndNormalize(samples []float64) ([]float64, Code) {
	if len(samples) < p.cal.MinSamples {
		return nil, CodeInsufficientData
	}

	valid := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		if s < p.cal.RawMin || s > p.cal.RawMax {
			continue
		}
		valid = append(valid, s)
	}

	if float64(len(valid)) < p.cal.MinValidFraction*float64(len(samples)) {
		return nil, CodeInvalidSignal
	}
	if len(valid) < p.cal.MinSamples {
		return nil, CodeInsufficientData
	}

	lo, hi := minMax(valid)
	if hi-lo < p.cal.MinRawRange {
		return nil, CodeLowDynamicRange
	}

	normalized := make([]float64, len(valid))
	scale := hi - lo
	for i, s := range valid {
		normalized[i] = (s - lo) / scale
	}
	return normalized, CodeOK
}
