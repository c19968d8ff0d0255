package ppg

// ClippingRatio returns the fraction of normalized samples saturated at
// either sensor extreme (flash overexposure or finger over-pressure).
// Clipped samples flatten the waveform around the true peaks, so a high
// ratio degrades both peak detection and the quality score.
func (p *Processor) ClippingRatio(normalized []float64) float64 {
	if len(normalized) == 0 {
		return 0
	}
	clipped := 0
	for _, v := range normalized {
		if v <= p.cal.ClipLowLevel || v >= p.cal.ClipHighLevel {
			clipped++
		}
	}
	return float64(clipped) / float64(len(normalized))
}

// ClipMultiplier maps a clipping ratio to the quality multiplier applied to
// the raw quality score.
func (p *Processor) ClipMultiplier(ratio float64) float64 {
	switch {
	case ratio > p.cal.ClipSevereRatio:
		return p.cal.ClipSevereMult
	case ratio > p.cal.ClipModerateRatio:
		return p.cal.ClipModerateMult
	default:
		return 1.0
	}
}
