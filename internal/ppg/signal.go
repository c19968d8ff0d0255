package ppg

import "math"

// Shared numeric helpers for the pipeline. Everything operates on plain
// float64 slices and allocates its output; input slices are never retained
// or mutated.

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// movingAverage smooths xs with a centered window of the given size,
// clamping the window at the signal bounds.
func movingAverage(xs []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if window < 1 {
		window = 1
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
		sum := 0.0
		for j := start; j < end; j++ {
			sum += xs[j]
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// autocorrelation returns the normalized autocorrelation of xs at the given
// lag: mean-subtracted, scaled by the signal variance, with the lag-shortened
// sum averaged per term so long lags are not penalized by the shrinking
// overlap. Returns 0 for degenerate inputs.
func autocorrelation(xs []float64, lag int) float64 {
	n := len(xs)
	if lag <= 0 || lag >= n {
		return 0
	}
	m := mean(xs)
	denom := 0.0
	for _, x := range xs {
		d := x - m
		denom += d * d
	}
	denom /= float64(n)
	if denom <= 0 {
		return 0
	}
	num := 0.0
	for i := 0; i < n-lag; i++ {
		num += (xs[i] - m) * (xs[i+lag] - m)
	}
	num /= float64(n - lag)
	return num / denom
}

// linearFit returns slope and intercept of the least-squares line through
// xs[start:end] with the sample index as the x axis.
func linearFit(xs []float64, start, end int) (slope, intercept float64) {
	n := float64(end - start)
	if n < 2 {
		if n == 1 {
			return 0, xs[start]
		}
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := start; i < end; i++ {
		x := float64(i)
		y := xs[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	det := n*sumXX - sumX*sumX
	if det == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / det
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// detectPeaks returns indices of strict local maxima above threshold,
// enforcing a minimum distance (refractory period) from the previously
// accepted peak. Consecutive returned peaks are always >= minDistance apart.
func detectPeaks(xs []float64, threshold float64, minDistance int) []int {
	var peaks []int
	if minDistance < 1 {
		minDistance = 1
	}
	lastPeak := -minDistance
	for i := 1; i < len(xs)-1; i++ {
		if xs[i] <= threshold {
			continue
		}
		if !(xs[i] > xs[i-1] && xs[i] > xs[i+1]) {
			continue
		}
		if i-lastPeak < minDistance {
			continue
		}
		peaks = append(peaks, i)
		lastPeak = i
	}
	return peaks
}

// median returns the median of xs without mutating it.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	tmp := make([]float64, n)
	copy(tmp, xs)
	// insertion sort; interval lists are tiny
	for i := 1; i < n; i++ {
		for j := i; j > 0 && tmp[j] < tmp[j-1]; j-- {
			tmp[j], tmp[j-1] = tmp[j-1], tmp[j]
		}
	}
	if n%2 == 1 {
		return tmp[n/2]
	}
	return (tmp[n/2-1] + tmp[n/2]) / 2
}
