package ppg

import "math"

// respiratoryRate extracts breaths per minute from the slow amplitude
// modulation that breathing imposes on the pulse waveform.
//
// A moving-average envelope over RespEnvelopeWindowSec smooths the cardiac
// oscillation away; envelope peaks with a RespRefractorySec refractory
// period mark breathing cycles. The averaged cycle interval is converted to
// breaths/min and rejected outside the physiological band, in which case the
// field is omitted.
func (p *Processor) respiratoryRate(normalized []float64, frameRate float64) (int, bool) {
	window := int(p.cal.RespEnvelopeWindowSec * frameRate)
	if window < 2 || len(normalized) < 2*window {
		return 0, false
	}
	envelope := movingAverage(normalized, window)

	minDistance := int(p.cal.RespRefractorySec * frameRate)
	threshold := mean(envelope)
	peaks := detectPeaks(envelope, threshold, minDistance)
	if len(peaks) < p.cal.RespMinPeaks {
		return 0, false
	}

	var sum float64
	for i := 1; i < len(peaks); i++ {
		sum += float64(peaks[i] - peaks[i-1])
	}
	avgIntervalSec := sum / float64(len(peaks)-1) / frameRate
	if avgIntervalSec <= 0 {
		return 0, false
	}
	rate := 60.0 / avgIntervalSec
	if rate < p.cal.MinRespRateBrPM || rate > p.cal.MaxRespRateBrPM {
		return 0, false
	}
	return int(math.Round(rate)), true
}
