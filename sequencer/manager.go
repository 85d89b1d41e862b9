package sequencer

import (
	"sync"
	"time"

	"go-pianoroll/debug"
	"go-pianoroll/timing"
)

// UI refresh rate while nothing else is changing (note flashes decay)
const uiFPS = 30

// Tempo nudge bounds for +/- keys. Typed tempos are not clamped.
const (
	minNudgeBPM = 20
	maxNudgeBPM = 300
)

// Manager wires the note store, transport and editor together and
// notifies the TUI of updates
type Manager struct {
	store     *NoteStore
	transport *Transport
	editor    *PianoRoll

	mu       sync.RWMutex
	lastTick TickEvent
	onTempo  func(bpm float64)

	stopChan chan struct{}
	stopOnce sync.Once

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager creates a manager with an empty pattern
func NewManager(res timing.Resolution, opts ...TransportOption) *Manager {
	store := NewNoteStore(res)
	transport := NewTransport(res, store, opts...)
	m := &Manager{
		store:      store,
		transport:  transport,
		editor:     NewPianoRoll(store, transport),
		stopChan:   make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	m.lastTick = TickEvent{Elapsed: transport.ElapsedClock()}

	store.SetOnChange(m.notifyUpdate)
	transport.SetOnTick(m.handleTick)
	transport.AddTriggerSink(m.editor)
	return m
}

// StartRuntime starts the UI refresh loop (called once at startup)
func (m *Manager) StartRuntime() {
	go m.uiLoop()
}

// Store returns the note store
func (m *Manager) Store() *NoteStore {
	return m.store
}

// Transport returns the transport
func (m *Manager) Transport() *Transport {
	return m.transport
}

// Editor returns the piano roll editor
func (m *Manager) Editor() *PianoRoll {
	return m.editor
}

// AddTriggerSink registers an output for note onsets
func (m *Manager) AddTriggerSink(s TriggerSink) {
	m.transport.AddTriggerSink(s)
}

// SetClicker sets the metronome sound
func (m *Manager) SetClicker(c Clicker) {
	m.transport.SetClicker(c)
}

// SetOnPreview sets the pitch preview used while moving notes
func (m *Manager) SetOnPreview(fn func(row int)) {
	m.editor.SetOnPreview(fn)
}

// SetOnTempo registers a hook for tempo edits (persistence)
func (m *Manager) SetOnTempo(fn func(bpm float64)) {
	m.mu.Lock()
	m.onTempo = fn
	m.mu.Unlock()
}

// handleTick runs under the transport lock; it only records and signals
func (m *Manager) handleTick(ev TickEvent) {
	m.mu.Lock()
	m.lastTick = ev
	m.mu.Unlock()
	m.notifyUpdate()
}

// LastTick returns the most recent tick event
func (m *Manager) LastTick() TickEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTick
}

// uiLoop pings the TUI at a fixed rate so flashes and the clock stay fresh
func (m *Manager) uiLoop() {
	ticker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			if m.transport.State().Playing {
				m.notifyUpdate()
			}
		}
	}
}

// notifyUpdate signals the TUI without blocking
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// TogglePlay starts or pauses playback
func (m *Manager) TogglePlay() {
	m.transport.TogglePlay()
	m.notifyUpdate()
}

// Stop stops playback and rewinds
func (m *Manager) Stop() {
	m.transport.Stop()
	m.notifyUpdate()
}

// SetTempo sets the BPM as typed by the user
func (m *Manager) SetTempo(bpm float64) {
	m.transport.SetBPM(bpm)
	bpm = m.transport.BPM()
	debug.Log("tempo", "bpm=%.2f", bpm)

	m.mu.RLock()
	fn := m.onTempo
	m.mu.RUnlock()
	if fn != nil {
		fn(bpm)
	}
	m.notifyUpdate()
}

// NudgeTempo changes the BPM by delta, clamped to a playable range
func (m *Manager) NudgeTempo(delta float64) {
	bpm := m.transport.BPM() + delta
	if bpm < minNudgeBPM {
		bpm = minNudgeBPM
	}
	if bpm > maxNudgeBPM {
		bpm = maxNudgeBPM
	}
	m.SetTempo(bpm)
}

// ToggleMetronome flips the metronome
func (m *Manager) ToggleMetronome() bool {
	on := m.transport.ToggleMetronome()
	m.notifyUpdate()
	return on
}

// GetState returns the current transport state
func (m *Manager) GetState() PlaybackState {
	return m.transport.State()
}

// HandleKey routes a key press to the editor
func (m *Manager) HandleKey(key string) {
	m.editor.HandleKey(key)
	m.notifyUpdate()
}

// View returns the editor view
func (m *Manager) View() string {
	return m.editor.View()
}

// Close stops the clocks and the UI loop
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.transport.Close()
}
