package ppg

import "math"

// First-order IIR stages. Filter state (previous input/output) lives only in
// the local variables of one pass: every call starts from a clean state, so
// the cascade is stateless across invocations and safe to run concurrently.

// lowPass is a single-pole RC low-pass at the given cutoff.
func lowPass(signal []float64, cutoffHz, frameRate float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / frameRate
	alpha := dt / (rc + dt)
	out[0] = signal[0]
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + alpha*(signal[i]-out[i-1])
	}
	return out
}

// highPass is a single-pole RC high-pass at the given cutoff.
func highPass(signal []float64, cutoffHz, frameRate float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / frameRate
	alpha := rc / (rc + dt)
	out[0] = signal[0]
	for i := 1; i < n; i++ {
		out[i] = alpha * (out[i-1] + signal[i] - signal[i-1])
	}
	return out
}

// bandpass concentrates energy in the PPG band by cascading low-pass,
// high-pass, then a band-pass pass (low-pass followed by high-pass again).
// Signals shorter than MinFilterLen are returned as an unmodified copy:
// there is not enough data for the recursion to settle, and losing samples
// here would starve the validator downstream.
func (p *Processor) bandpass(signal []float64, frameRate float64) []float64 {
	if len(signal) < p.cal.MinFilterLen {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}
	s := lowPass(signal, p.cal.LowPassCutoffHz, frameRate)
	s = highPass(s, p.cal.HighPassCutoffHz, frameRate)
	s = lowPass(s, p.cal.LowPassCutoffHz, frameRate)
	s = highPass(s, p.cal.HighPassCutoffHz, frameRate)
	return s
}
