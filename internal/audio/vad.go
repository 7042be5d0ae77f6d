package audio

import (
	"math"
)

const (
	vadWindow   = 30  // ms per analysis window
	vadHangover = 300 // ms of context kept around voiced windows
)

// Levels summarizes the loudness of a sample buffer.
type Levels struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int
}

// Measure computes RMS and peak level in dBFS. Silence is -Inf.
func Measure(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}
	var sumSq, peak float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		sumSq += v * v
		if v > peak {
			peak = v
		}
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	return Levels{
		RMSdBFS:  toDBFS(rms),
		PeakdBFS: toDBFS(peak),
		Samples:  len(samples),
	}
}

func toDBFS(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// FilterSilence drops windows quieter than thresholdDBFS, keeping a short
// hangover of audio around every voiced window so word edges survive.
// It returns an empty slice when no window is voiced.
func FilterSilence(samples []float32, sampleRate uint32, thresholdDBFS float64) []float32 {
	win := int(sampleRate) * vadWindow / 1000
	if win <= 0 || len(samples) == 0 {
		return []float32{}
	}

	n := (len(samples) + win - 1) / win
	voiced := make([]bool, n)
	found := false
	for i := 0; i < n; i++ {
		if Measure(window(samples, i, win)).RMSdBFS > thresholdDBFS {
			voiced[i] = true
			found = true
		}
	}
	if !found {
		return []float32{}
	}

	hang := vadHangover / vadWindow
	keep := make([]bool, n)
	for i, v := range voiced {
		if !v {
			continue
		}
		lo, hi := max(0, i-hang), min(n-1, i+hang)
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}

	out := make([]float32, 0, len(samples))
	for i, k := range keep {
		if k {
			out = append(out, window(samples, i, win)...)
		}
	}
	return out
}

func window(samples []float32, i, size int) []float32 {
	lo := i * size
	hi := min(lo+size, len(samples))
	return samples[lo:hi]
}
