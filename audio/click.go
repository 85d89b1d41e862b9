package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Built-in click used when no click sample is loaded
const (
	blipFreq = 1000.0
	blipLen  = 30 * time.Millisecond
	blipGain = 0.5
)

// Click is the metronome sound
type Click struct {
	sample *Sample
	out    Output
}

// NewClick creates a metronome sound. sample may be nil.
func NewClick(sample *Sample, out Output) *Click {
	return &Click{sample: sample, out: out}
}

// Click plays one beat
func (c *Click) Click() {
	outRate := c.out.SampleRate()
	if c.sample != nil {
		if buf, _, ok := c.sample.snapshot(); ok {
			s := beep.Resample(resampleQuality, buf.Format().SampleRate, outRate, buf.Streamer(0, buf.Len()))
			c.out.Play(s)
			return
		}
	}
	c.out.Play(blip(outRate))
}

// blip is a short decaying sine
func blip(sr beep.SampleRate) beep.Streamer {
	total := sr.N(blipLen)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				break
			}
			t := float64(pos) / float64(sr)
			decay := 1 - float64(pos)/float64(total)
			v := blipGain * decay * math.Sin(2*math.Pi*blipFreq*t)
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}
