package ppg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectPeaks_EnforcesRefractoryDistance(t *testing.T) {
	// twin spikes closer than the refractory window: only the first counts
	signal := make([]float64, 60)
	for _, idx := range []int{10, 13, 30, 50} {
		signal[idx] = 1.0
	}
	peaks := detectPeaks(signal, 0.5, 7)

	require.Equal(t, []int{10, 30, 50}, peaks)
	for i := 1; i < len(peaks); i++ {
		require.GreaterOrEqual(t, peaks[i]-peaks[i-1], 7)
	}
}

func TestDetectPeaks_RequiresStrictLocalMaximum(t *testing.T) {
	// plateau at the threshold: no strict maximum, no peak
	signal := []float64{0, 0.9, 0.9, 0.9, 0, 0, 0.8, 0, 0}
	peaks := detectPeaks(signal, 0.5, 1)
	require.Equal(t, []int{6}, peaks)
}

func TestEstimateByPeaks_CleanSine(t *testing.T) {
	p := newTestProcessor()

	filtered := p.bandpass(p.detrend(normalize(sineSignal(1.2, 14, 20, 128, 50)), 14), 14)
	est, peaks := p.estimateByPeaks(filtered, 14)

	require.True(t, est.ok)
	require.InDelta(t, 72, est.bpm, 4)
	require.NotEmpty(t, peaks)
}

func TestEstimateByPeaks_RejectsFlatSignal(t *testing.T) {
	p := newTestProcessor()
	flat := make([]float64, 100)
	est, _ := p.estimateByPeaks(flat, 14)
	require.False(t, est.ok)
}

func TestEstimateByAutocorrelation_CleanSine(t *testing.T) {
	p := newTestProcessor()

	filtered := p.bandpass(p.detrend(normalize(sineSignal(1.2, 14, 20, 128, 50)), 14), 14)
	est := p.estimateByAutocorrelation(filtered, 14)

	require.True(t, est.ok)
	require.InDelta(t, 72, est.bpm, 6)
}

func TestEstimateByAutocorrelation_TooShort(t *testing.T) {
	p := newTestProcessor()
	est := p.estimateByAutocorrelation(make([]float64, 5), 14)
	require.False(t, est.ok)
}

func TestBlendHeartRate_Policy(t *testing.T) {
	p := newTestProcessor()
	peak := rateEstimate{bpm: 80, ok: true}
	autocorr := rateEstimate{bpm: 70, ok: true}

	// disagreement >= 10 BPM forces the autocorrelation-weighted blend
	blended := p.blendHeartRate(peak, autocorr, 0, 0.9)
	require.InDelta(t, 0.65*70+0.35*80, blended, 1e-9)

	// close agreement with good quality: peak estimate wins outright
	closeAC := rateEstimate{bpm: 78, ok: true}
	require.Equal(t, 80.0, p.blendHeartRate(peak, closeAC, 0, 0.9))

	// heavy clipping forces the blend even when estimates agree
	blended = p.blendHeartRate(peak, closeAC, 0.16, 0.9)
	require.InDelta(t, 0.65*78+0.35*80, blended, 1e-9)

	// low quality forces the blend too
	blended = p.blendHeartRate(peak, closeAC, 0, 0.5)
	require.InDelta(t, 0.65*78+0.35*80, blended, 1e-9)
}

func TestBlendHeartRate_SingleAndNoEstimator(t *testing.T) {
	p := newTestProcessor()

	require.Equal(t, 80.0, p.blendHeartRate(rateEstimate{bpm: 80, ok: true}, rateEstimate{}, 0, 0.9))
	require.Equal(t, 70.0, p.blendHeartRate(rateEstimate{}, rateEstimate{bpm: 70, ok: true}, 0, 0.9))
	require.Equal(t, p.cal.DefaultBPM, p.blendHeartRate(rateEstimate{}, rateEstimate{}, 0, 0.9))
}

func TestEstimateByPeaks_DropsOutlierIntervals(t *testing.T) {
	p := newTestProcessor()

	// beats every 12 samples with one missed beat (gap of 24): the outlier
	// interval deviates 100% from the median and is dropped
	signal := make([]float64, 160)
	idx := 5
	beats := 0
	for idx < len(signal)-1 {
		signal[idx] = 1.0
		beats++
		if beats == 6 {
			idx += 24
		} else {
			idx += 12
		}
	}
	est, _ := p.estimateByPeaks(signal, 14)
	require.True(t, est.ok)
	// 12 samples at 14 fps = 70 BPM; the missed-beat gap must not drag it down
	require.InDelta(t, 70, est.bpm, 2)
}
