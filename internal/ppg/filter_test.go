package ppg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBandpass_ShortSignalPassesThroughUnchanged(t *testing.T) {
	p := newTestProcessor()

	signal := []float64{0.1, 0.9, 0.3, 0.7, 0.5, 0.2, 0.8, 0.4, 0.6}
	require.Less(t, len(signal), p.cal.MinFilterLen)

	out := p.bandpass(signal, 14)
	require.Equal(t, signal, out)

	// and the copy is independent of the input
	out[0] = 42
	require.Equal(t, 0.1, signal[0])
}

func TestBandpass_RemovesDCOffset(t *testing.T) {
	p := newTestProcessor()

	signal := sineSignal(1.2, 14, 20, 0.5, 0.4)
	out := p.bandpass(signal, 14)

	// the high-pass stages strip the 0.5 DC level
	tail := out[len(out)/2:]
	require.Less(t, math.Abs(mean(tail)), 0.05)
	// the in-band oscillation survives with useful amplitude
	lo, hi := minMax(tail)
	require.Greater(t, hi-lo, 0.2)
}

func TestBandpass_AttenuatesHighFrequencyNoise(t *testing.T) {
	p := newTestProcessor()
	frameRate := 30.0

	inBand := sineSignal(1.2, frameRate, 20, 0, 1)
	outOfBand := sineSignal(12, frameRate, 20, 0, 1)

	inBandOut := p.bandpass(inBand, frameRate)
	outOfBandOut := p.bandpass(outOfBand, frameRate)

	// compare steady-state energy: the 12 Hz tone loses far more than the
	// 1.2 Hz tone
	inVar := variance(inBandOut[len(inBandOut)/2:])
	outVar := variance(outOfBandOut[len(outOfBandOut)/2:])
	require.Greater(t, inVar, 4*outVar)
}

func TestBandpass_StatelessAcrossCalls(t *testing.T) {
	p := newTestProcessor()
	signal := sineSignal(1.2, 14, 20, 0.5, 0.4)

	first := p.bandpass(signal, 14)
	second := p.bandpass(signal, 14)
	require.Equal(t, first, second)
}
