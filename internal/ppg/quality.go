package ppg

import "math"

// RawQuality scores the normalized (pre-filter) signal in [0,1] as a
// weighted sum of four terms. The normalized signal keeps its DC level,
// which the stability term needs; the filtered signal is zero-mean and
// would make segment-mean comparison meaningless.
//
//   - SNR: variance of the signal against the variance of its first-order
//     difference (a cheap high-pass residual), in dB, full scale at
//     SNRFullScaleDB.
//   - Periodicity: strength and count of autocorrelation peaks.
//   - Stability: spread of per-segment means against the overall mean.
//   - Spectral concentration: share of autocorrelation magnitude falling in
//     the PPG band (PSD approximated from the autocorrelation, no FFT).
//
// The clipping multiplier is applied on top by Quality.
func (p *Processor) RawQuality(normalized []float64, frameRate float64) float64 {
	if len(normalized) < 2 {
		return 0
	}
	score := p.cal.QualityWeightSNR*p.snrTerm(normalized) +
		p.cal.QualityWeightPeriod*p.periodicityTerm(normalized) +
		p.cal.QualityWeightStability*p.stabilityTerm(normalized) +
		p.cal.QualityWeightSpectral*p.spectralTerm(normalized, frameRate)
	return clamp(score, 0, 1)
}

// Quality applies the clipping multiplier to the raw score.
func (p *Processor) Quality(normalized []float64, frameRate, clipRatio float64) float64 {
	return clamp(p.ClipMultiplier(clipRatio)*p.RawQuality(normalized, frameRate), 0, 1)
}

func (p *Processor) snrTerm(signal []float64) float64 {
	sv := variance(signal)
	if sv <= 0 {
		return 0
	}
	residual := make([]float64, len(signal)-1)
	for i := 1; i < len(signal); i++ {
		residual[i-1] = signal[i] - signal[i-1]
	}
	rv := variance(residual)
	if rv <= 0 {
		// no high-frequency content at all; treat as full scale
		return 1
	}
	snrDB := 10 * math.Log10(sv/rv)
	return clamp(snrDB/p.cal.SNRFullScaleDB, 0, 1)
}

func (p *Processor) periodicityTerm(signal []float64) float64 {
	n := len(signal)
	maxLag := p.cal.PeriodicityMaxLag
	if half := n / 2; half < maxLag {
		maxLag = half
	}
	if maxLag < 3 {
		return 0
	}
	corr := make([]float64, maxLag+1)
	for lag := 1; lag <= maxLag; lag++ {
		corr[lag] = autocorrelation(signal, lag)
	}
	var peakSum float64
	peakCount := 0
	for lag := 2; lag < maxLag; lag++ {
		if corr[lag] > p.cal.PeriodicityCorrMin &&
			corr[lag] > corr[lag-1] && corr[lag] > corr[lag+1] {
			peakSum += corr[lag]
			peakCount++
		}
	}
	if peakCount == 0 {
		return 0
	}
	avgPeak := peakSum / float64(peakCount)
	countFactor := math.Min(float64(peakCount)/float64(p.cal.PeriodicityPeakTarget), 1)
	return math.Min(avgPeak*countFactor, 1)
}

func (p *Processor) stabilityTerm(signal []float64) float64 {
	segments := p.cal.StabilitySegments
	if segments < 2 || len(signal) < segments {
		return 0
	}
	segLen := len(signal) / segments
	segMeans := make([]float64, segments)
	for s := 0; s < segments; s++ {
		start := s * segLen
		end := start + segLen
		if s == segments-1 {
			end = len(signal)
		}
		segMeans[s] = mean(signal[start:end])
	}
	overall := mean(signal)
	if overall == 0 {
		return 0
	}
	spread := stddev(segMeans)
	return math.Max(0, 1-spread/(math.Abs(overall)*p.cal.StabilityTolerance))
}

func (p *Processor) spectralTerm(signal []float64, frameRate float64) float64 {
	n := len(signal)
	maxLag := p.cal.PeriodicityMaxLag
	if half := n / 2; half < maxLag {
		maxLag = half
	}
	if maxLag < 2 {
		return 0
	}
	var total, inBand float64
	for lag := 1; lag <= maxLag; lag++ {
		e := math.Abs(autocorrelation(signal, lag))
		total += e
		// lag maps to frequency frameRate/lag
		freq := frameRate / float64(lag)
		if freq >= p.cal.SpectralBandLowHz && freq <= p.cal.SpectralBandHighHz {
			inBand += e
		}
	}
	if total <= 0 {
		return 0
	}
	return clamp(inBand/total, 0, 1)
}
