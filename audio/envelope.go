package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Envelope levels and times
const (
	envFloor   = 0.0001
	envPeak    = 0.18
	fadeIn     = 5 * time.Millisecond
	fadeOut    = 20 * time.Millisecond
	minRelease = 20 * time.Millisecond
)

// gainAt is the note envelope at t into a note of length dur: an exponential
// attack from the floor to the peak, then an exponential decay that reaches the
// floor fadeOut before the end (never earlier than minRelease)
func gainAt(t, dur time.Duration) float64 {
	releaseAt := max(minRelease, dur-fadeOut)
	switch {
	case t < fadeIn:
		return envFloor * math.Pow(envPeak/envFloor, float64(t)/float64(fadeIn))
	case t < releaseAt:
		return envPeak * math.Pow(envFloor/envPeak, float64(t-fadeIn)/float64(releaseAt-fadeIn))
	default:
		return envFloor
	}
}

// Envelope shapes s with the note envelope and cuts it off after dur
func Envelope(s beep.Streamer, sr beep.SampleRate, dur time.Duration) beep.Streamer {
	total := sr.N(dur)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		want := min(len(samples), total-pos)
		n, ok = s.Stream(samples[:want])
		for i := 0; i < n; i++ {
			g := gainAt(sr.D(pos+i), dur)
			samples[i][0] *= g
			samples[i][1] *= g
		}
		pos += n
		return n, ok || n > 0
	})
}
