package audio

import "math"

// RMS returns the root-mean-square loudness of a window of 16-bit PCM
// samples. Each sample is normalized to [-1, 1] before squaring, so the
// result lies in [0, 1]. An empty window is treated as silence.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
