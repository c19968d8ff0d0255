package ppg

// detrend removes slow baseline drift (finger pressure change, ambient
// lighting drift) by subtracting, at every index, the value of a
// least-squares line fitted over a centered DetrendWindowSec window.
// Window edges are clamped to the signal bounds; there is no wraparound.
// Pulse-rate oscillations are much faster than the window and survive.
func (p *Processor) detrend(signal []float64, frameRate float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	window := int(frameRate * p.cal.DetrendWindowSec)
	if window < 2 {
		copy(out, signal)
		return out
	}
	half := window / 2
	for i := 0; i < n; i++ {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > n {
			end = n
		}
		slope, intercept := linearFit(signal, start, end)
		trend := slope*float64(i) + intercept
		out[i] = signal[i] - trend
	}
	return out
}
