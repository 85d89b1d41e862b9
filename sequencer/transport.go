package sequencer

import (
	"math"
	"sync"
	"time"

	"go-pianoroll/debug"
	"go-pianoroll/timing"
)

// Transport owns the playback cursor and the two periodic clocks: the tick
// clock that advances the cursor and triggers notes, and the beat-rate metronome.
//
// All state is guarded by mu. Clock callbacks carry the generation they were
// scheduled under and bail out if it has moved on, so nothing is delivered after
// Pause, Stop or SetBPM return, even when a ticker fired concurrently.
type Transport struct {
	res   timing.Resolution
	store *NoteStore
	sched Scheduler

	mu        sync.Mutex
	tick      int
	playing   bool
	bpm       float64
	metronome bool

	tickTimer  Timer
	tickGen    uint64
	metroTimer Timer
	metroGen   uint64

	// Listeners run with mu held; they must not block or call back in
	onTick  func(TickEvent)
	sinks   []TriggerSink
	clicker Clicker
}

// TransportOption configures a Transport at construction
type TransportOption func(*Transport)

// WithScheduler replaces the default ticker-based scheduler
func WithScheduler(s Scheduler) TransportOption {
	return func(t *Transport) { t.sched = s }
}

// WithBPM sets the initial tempo
func WithBPM(bpm float64) TransportOption {
	return func(t *Transport) { t.bpm = coerceBPM(bpm) }
}

// NewTransport creates a stopped transport at tick 0 reading notes from store
func NewTransport(res timing.Resolution, store *NoteStore, opts ...TransportOption) *Transport {
	t := &Transport{
		res:   res,
		store: store,
		sched: TickerScheduler{},
		bpm:   timing.DefaultBPM,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetOnTick registers the cursor listener
func (t *Transport) SetOnTick(fn func(TickEvent)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

// AddTriggerSink registers a consumer of note onsets
func (t *Transport) AddTriggerSink(s TriggerSink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, s)
	t.mu.Unlock()
}

// SetClicker sets the metronome sound
func (t *Transport) SetClicker(c Clicker) {
	t.mu.Lock()
	t.clicker = c
	t.mu.Unlock()
}

// Play starts (or resumes) playback from the current tick. Notes sitting exactly
// at the cursor fire immediately, not one tick later.
func (t *Transport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return
	}
	t.playing = true
	t.rescheduleLocked()
	debug.Log("transport", "play tick=%d bpm=%.2f", t.tick, t.bpm)

	t.emitTickLocked()
	if timing.ValidBPM(t.bpm) {
		t.triggerLocked(t.tick)
	}
}

// Pause stops the clocks and keeps the cursor where it is
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.playing = false
	t.cancelLocked()
	debug.Log("transport", "pause tick=%d", t.tick)
}

// Stop halts playback and rewinds to tick 0
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.cancelLocked()
	t.tick = 0
	debug.Log("transport", "stop")
	t.emitTickLocked()
}

// TogglePlay pauses when playing and plays otherwise
func (t *Transport) TogglePlay() {
	t.mu.Lock()
	playing := t.playing
	t.mu.Unlock()
	if playing {
		t.Pause()
	} else {
		t.Play()
	}
}

// Seek moves the cursor (clamped to the pattern) without starting playback
func (t *Transport) Seek(tick int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tick = clamp(tick, 0, t.res.TotalTicks()-1)
	t.emitTickLocked()
}

// SetBPM changes the tempo. While playing both clocks are rescheduled at the new
// cadence; a tempo of zero or below suspends them until a positive one arrives.
func (t *Transport) SetBPM(bpm float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bpm = coerceBPM(bpm)
	debug.Log("transport", "bpm=%.2f playing=%v", t.bpm, t.playing)
	if t.playing {
		t.rescheduleLocked()
	}
}

// SetMetronome arms or disarms the metronome
func (t *Transport) SetMetronome(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metronome = on
	t.rescheduleMetronomeLocked()
}

// ToggleMetronome flips the metronome and returns the new setting
func (t *Transport) ToggleMetronome() bool {
	t.mu.Lock()
	on := !t.metronome
	t.mu.Unlock()
	t.SetMetronome(on)
	return on
}

// BPM returns the stored tempo (may be non-positive while suspended)
func (t *Transport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// State returns a snapshot of the playback state
func (t *Transport) State() PlaybackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return PlaybackState{
		Tick:      t.tick,
		Playing:   t.playing,
		Suspended: t.playing && !timing.ValidBPM(t.bpm),
		BPM:       t.bpm,
		Metronome: t.metronome,
	}
}

// ElapsedClock formats the cursor position as MM:SS:CC
func (t *Transport) ElapsedClock() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

// Close stops all clocks for good
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.cancelLocked()
}

// advance is the tick clock callback
func (t *Transport) advance(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.tickGen || !t.playing {
		return
	}
	t.tick++
	if t.tick >= t.res.TotalTicks() {
		t.tick = 0
	}
	debug.LogEvery(96, "tick", "tick=%d", t.tick)
	t.emitTickLocked()
	t.triggerLocked(t.tick)
}

// click is the metronome clock callback
func (t *Transport) click(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.metroGen || !t.playing || !t.metronome || t.clicker == nil {
		return
	}
	t.clicker.Click()
}

func (t *Transport) rescheduleLocked() {
	t.cancelTickLocked()
	if t.playing {
		if d, ok := timing.TickDuration(t.bpm, t.res.TicksPerBeat); ok {
			gen := t.tickGen
			t.tickTimer = t.sched.Every(d, func() { t.advance(gen) })
		} else {
			debug.Log("transport", "tempo %.2f suspends the clock", t.bpm)
		}
	}
	t.rescheduleMetronomeLocked()
}

func (t *Transport) rescheduleMetronomeLocked() {
	t.cancelMetronomeLocked()
	if !t.playing || !t.metronome {
		return
	}
	if d, ok := timing.BeatDuration(t.bpm); ok {
		gen := t.metroGen
		t.metroTimer = t.sched.Every(d, func() { t.click(gen) })
	}
}

func (t *Transport) cancelLocked() {
	t.cancelTickLocked()
	t.cancelMetronomeLocked()
}

func (t *Transport) cancelTickLocked() {
	t.tickGen++
	if t.tickTimer != nil {
		t.tickTimer.Stop()
		t.tickTimer = nil
	}
}

func (t *Transport) cancelMetronomeLocked() {
	t.metroGen++
	if t.metroTimer != nil {
		t.metroTimer.Stop()
		t.metroTimer = nil
	}
}

func (t *Transport) emitTickLocked() {
	if t.onTick == nil {
		return
	}
	t.onTick(TickEvent{
		Tick:    t.tick,
		Playing: t.playing,
		Elapsed: t.elapsedLocked(),
	})
}

func (t *Transport) triggerLocked(tick int) {
	if len(t.sinks) == 0 {
		return
	}
	notes := t.store.StartingAt(tick)
	if len(notes) == 0 {
		return
	}
	tickDur, _ := timing.TickDuration(t.bpm, t.res.TicksPerBeat)
	for _, n := range notes {
		ev := Trigger{
			NoteID:      n.ID,
			Row:         n.Row,
			Midi:        t.res.RowToMidi(n.Row),
			Tick:        tick,
			LengthTicks: n.LengthTicks,
			Duration:    time.Duration(n.LengthTicks) * tickDur,
		}
		for _, s := range t.sinks {
			s.Trigger(ev)
		}
	}
}

func (t *Transport) elapsedLocked() string {
	bpm := t.bpm
	if !timing.ValidBPM(bpm) {
		bpm = timing.DefaultBPM
	}
	return timing.FormatClock(timing.ElapsedMs(t.tick, bpm, t.res.TicksPerBeat))
}

// coerceBPM keeps any finite tempo and replaces NaN or Inf with the default
func coerceBPM(bpm float64) float64 {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return timing.DefaultBPM
	}
	return bpm
}
