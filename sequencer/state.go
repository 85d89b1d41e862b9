package sequencer

import (
	"time"

	"github.com/google/uuid"

	"go-pianoroll/timing"
)

// NoteID is the handle a note is known by. Two notes may transiently share
// start/row/length during a gesture, so identity never comes from values.
type NoteID = uuid.UUID

// NoID matches no note (used as "exclude nothing" in overlap queries)
var NoID NoteID

// Note is a committed note on the grid
type Note struct {
	ID          NoteID `json:"id"`
	StartTick   int    `json:"startTick"`
	LengthTicks int    `json:"lengthTicks"`
	Row         int    `json:"row"`
}

// End returns the exclusive end tick
func (n Note) End() int {
	return n.StartTick + n.LengthTicks
}

// Midi returns the note's pitch
func (n Note) Midi(res timing.Resolution) int {
	return res.RowToMidi(n.Row)
}

// Overlaps reports whether [start, start+length) on row intersects the note
func (n Note) Overlaps(row, start, length int) bool {
	return n.Row == row && start < n.End() && start+length > n.StartTick
}

// PlaybackState is a snapshot of the transport
type PlaybackState struct {
	Tick      int     `json:"tick"`
	Playing   bool    `json:"playing"`
	Suspended bool    `json:"suspended"` // playing but tempo cannot drive a clock
	BPM       float64 `json:"bpm"`
	Metronome bool    `json:"metronome"`
}

// TickEvent is delivered on every cursor change (advance, seek, stop)
type TickEvent struct {
	Tick    int
	Playing bool
	Elapsed string // MM:SS:CC
}

// Trigger is a note onset at the playback cursor
type Trigger struct {
	NoteID      NoteID
	Row         int
	Midi        int
	Tick        int
	LengthTicks int
	Duration    time.Duration // LengthTicks at the current tempo
}

// TriggerSink consumes note onsets (audio voice, MIDI port, UI flash).
// Trigger is called with the transport locked and must not block.
type TriggerSink interface {
	Trigger(ev Trigger)
}

// TriggerFunc adapts a function to TriggerSink
type TriggerFunc func(ev Trigger)

func (f TriggerFunc) Trigger(ev Trigger) { f(ev) }

// Clicker sounds the metronome once per beat
type Clicker interface {
	Click()
}
