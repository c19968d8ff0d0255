package ppg

import "math"

// hrvRMSSD computes heart-rate variability as the root mean square of
// successive differences between beat-to-beat intervals.
//
// Peaks come from the normalized signal with the fixed HRVPeakThreshold.
// Gaps outside [HRVMinGapMs, HRVMaxGapMs] are discarded as missed or spurious
// beats; at least HRVMinIntervals surviving intervals are required, otherwise
// the field is simply omitted from the result (absence is not an error).
func (p *Processor) hrvRMSSD(normalized []float64, frameRate float64) (float64, bool) {
	peaks := detectPeaks(normalized, p.cal.HRVPeakThreshold, 1)
	if len(peaks) < p.cal.HRVMinIntervals+1 {
		return 0, false
	}

	msPerSample := 1000.0 / frameRate
	intervals := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		gap := float64(peaks[i]-peaks[i-1]) * msPerSample
		if gap < p.cal.HRVMinGapMs || gap > p.cal.HRVMaxGapMs {
			continue
		}
		intervals = append(intervals, gap)
	}
	if len(intervals) < p.cal.HRVMinIntervals {
		return 0, false
	}

	var sumSq float64
	count := 0
	for i := 1; i < len(intervals); i++ {
		d := intervals[i] - intervals[i-1]
		sumSq += d * d
		count++
	}
	if count == 0 {
		return 0, false
	}
	return math.Sqrt(sumSq / float64(count)), true
}
