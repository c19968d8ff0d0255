package ppg

import "math"

// Two independent heart-rate estimators run on the filtered signal. The peak
// estimator resolves individual beats but is fooled by noise spikes; the
// autocorrelation estimator only sees the dominant period and is far more
// robust to isolated artifacts. The blend policy prefers the peak estimate
// when the signal is trustworthy and leans on autocorrelation otherwise.

type rateEstimate struct {
	bpm float64
	ok  bool
}

// estimateByPeaks detects beats with a refractory-gated peak detector and
// averages the surviving beat-to-beat intervals.
//
// Threshold is min + PeakThresholdFraction*(max-min) of the filtered signal.
// The refractory period (RefractorySec * frameRate samples) caps the
// detectable rate; intervals deviating more than IntervalOutlierFrac from
// the median are treated as missed or doubled beats and dropped.
func (p *Processor) estimateByPeaks(filtered []float64, frameRate float64) (rateEstimate, []int) {
	lo, hi := minMax(filtered)
	if hi-lo <= 0 {
		return rateEstimate{}, nil
	}
	threshold := lo + p.cal.PeakThresholdFraction*(hi-lo)
	minDistance := int(p.cal.RefractorySec * frameRate)
	peaks := detectPeaks(filtered, threshold, minDistance)
	if len(peaks) < 2 {
		return rateEstimate{}, peaks
	}

	intervals := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals = append(intervals, float64(peaks[i]-peaks[i-1]))
	}
	med := median(intervals)
	if med <= 0 {
		return rateEstimate{}, peaks
	}
	kept := intervals[:0]
	for _, iv := range intervals {
		if math.Abs(iv-med) <= p.cal.IntervalOutlierFrac*med {
			kept = append(kept, iv)
		}
	}
	if len(kept) == 0 {
		return rateEstimate{}, peaks
	}
	avg := mean(kept)
	bpm := 60.0 / (avg / frameRate)
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return rateEstimate{}, peaks
	}
	return rateEstimate{bpm: bpm, ok: true}, peaks
}

// estimateByAutocorrelation searches candidate periods between
// AutocorrMinPeriodSec and AutocorrMaxPeriodSec (the 40-120 BPM band) and
// picks the lag with the strongest normalized autocorrelation.
func (p *Processor) estimateByAutocorrelation(filtered []float64, frameRate float64) rateEstimate {
	n := len(filtered)
	minLag := int(p.cal.AutocorrMinPeriodSec * frameRate)
	maxLag := int(p.cal.AutocorrMaxPeriodSec * frameRate)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < minLag {
		return rateEstimate{}
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := autocorrelation(filtered, lag)
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr <= 0 {
		return rateEstimate{}
	}
	bpm := 60.0 * frameRate / float64(bestLag)
	return rateEstimate{bpm: bpm, ok: true}
}

// blendHeartRate combines both estimates.
//
// Policy: with heavy clipping, low overall quality, or estimator
// disagreement >= BlendDivergenceBPM, use the BlendAutocorrWeight blend
// (autocorrelation is more robust against noise-induced false peaks).
// Otherwise trust the peak estimate directly. A single finite estimate wins
// by default; with neither, fall back to DefaultBPM.
func (p *Processor) blendHeartRate(peak, autocorr rateEstimate, clipRatio, quality float64) float64 {
	switch {
	case peak.ok && autocorr.ok:
		diff := math.Abs(peak.bpm - autocorr.bpm)
		if clipRatio > p.cal.ClipBlendRatio || quality < p.cal.BlendQualityGate || diff >= p.cal.BlendDivergenceBPM {
			return p.robustBlend(peak, autocorr)
		}
		return peak.bpm
	case peak.ok:
		return peak.bpm
	case autocorr.ok:
		return autocorr.bpm
	default:
		return p.cal.DefaultBPM
	}
}

// robustBlend is the autocorrelation-weighted combination used whenever the
// peak estimate cannot be fully trusted.
func (p *Processor) robustBlend(peak, autocorr rateEstimate) float64 {
	w := p.cal.BlendAutocorrWeight
	switch {
	case peak.ok && autocorr.ok:
		return w*autocorr.bpm + (1-w)*peak.bpm
	case autocorr.ok:
		return autocorr.bpm
	case peak.ok:
		return peak.bpm
	default:
		return p.cal.DefaultBPM
	}
}
