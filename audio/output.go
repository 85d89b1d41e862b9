package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// DefaultSampleRate is the output rate used by the speaker
const DefaultSampleRate beep.SampleRate = 44100

// masterGain scales everything sent to the speaker
const masterGain = 0.20

// Output plays streamers. Play must not block.
type Output interface {
	Play(s beep.Streamer)
	SampleRate() beep.SampleRate
}

// Speaker plays voices on the system audio device
type Speaker struct {
	sr beep.SampleRate
}

// NewSpeaker opens the audio device with the given buffer latency
func NewSpeaker(sr beep.SampleRate, latency time.Duration) (*Speaker, error) {
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return nil, err
	}
	return &Speaker{sr: sr}, nil
}

// Play adds a voice to the mix
func (s *Speaker) Play(st beep.Streamer) {
	speaker.Play(&effects.Gain{Streamer: st, Gain: masterGain - 1})
}

// SampleRate returns the device rate
func (s *Speaker) SampleRate() beep.SampleRate {
	return s.sr
}

// Close releases the audio device
func (s *Speaker) Close() {
	speaker.Clear()
	speaker.Close()
}
