package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"golang.org/x/time/rate"

	"go-pianoroll/debug"
	"go-pianoroll/sequencer"
	"go-pianoroll/timing"
)

const (
	// RootMidi is the pitch the piano sample was recorded at (C4)
	RootMidi = 60

	MinNotePlay     = 300 * time.Millisecond
	PreviewDuration = 250 * time.Millisecond
	PreviewCooldown = 80 * time.Millisecond

	minVoice        = 30 * time.Millisecond
	resampleQuality = 4
)

// Piano plays notes by repitching a single sample
type Piano struct {
	sample  *Sample
	out     Output
	res     timing.Resolution
	preview *rate.Limiter
}

// NewPiano creates a piano voice over sample
func NewPiano(sample *Sample, out Output, res timing.Resolution) *Piano {
	return &Piano{
		sample:  sample,
		out:     out,
		res:     res,
		preview: rate.NewLimiter(rate.Every(PreviewCooldown), 1),
	}
}

// Sample returns the underlying sample
func (p *Piano) Sample() *Sample {
	return p.sample
}

// Trigger plays a note onset from the transport
func (p *Piano) Trigger(ev sequencer.Trigger) {
	p.Play(ev.Midi, max(MinNotePlay, ev.Duration))
}

// Preview plays a short note for a pitch lane, at most once per cooldown
func (p *Piano) Preview(row int) bool {
	if !p.preview.Allow() {
		return false
	}
	return p.Play(p.res.RowToMidi(row), PreviewDuration)
}

// Play renders one note. It is a no-op until the sample has loaded.
func (p *Piano) Play(midi int, wanted time.Duration) bool {
	buf, offset, ok := p.sample.snapshot()
	if !ok {
		return false
	}

	ratio := math.Pow(2, float64(midi-RootMidi)/12)
	srcRate := buf.Format().SampleRate
	avail := time.Duration(float64(srcRate.D(buf.Len()-offset)) / ratio)
	dur := max(minVoice, min(wanted, avail))

	outRate := p.out.SampleRate()
	var s beep.Streamer = buf.Streamer(offset, buf.Len())
	s = beep.ResampleRatio(resampleQuality, ratio*float64(srcRate)/float64(outRate), s)

	debug.Log("audio", "piano midi=%d rate=%.3f dur=%s", midi, ratio, dur)
	p.out.Play(Envelope(s, outRate, dur))
	return true
}
