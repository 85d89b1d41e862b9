package timing

import "fmt"

// SnapMode selects the rounding rule used when snapping ticks to the grid
type SnapMode int

const (
	SnapRound SnapMode = iota
	SnapFloor
	SnapCeil
)

// Resolution is the fixed musical grid: beats, ticks, snap, rows.
// It is set up once at startup and never mutated while playing.
type Resolution struct {
	BeatsPerBar      int `json:"beatsPerBar"`
	TicksPerBeat     int `json:"ticksPerBeat"`
	StepsPerBeat     int `json:"stepsPerBeat"`
	SnapTicks        int `json:"snapTicks"`
	MinNoteTicks     int `json:"minNoteTicks"`
	DefaultNoteTicks int `json:"defaultNoteTicks"`
	Bars             int `json:"bars"`

	// Pitch lanes: row 0 is TopMidi, row Rows-1 is TopMidi-Rows+1
	Rows    int   `json:"rows"`
	TopMidi uint8 `json:"topMidi"`
}

// DefaultResolution returns 4/4 at 96 ticks per beat, snapping to half steps,
// four bars and five octaves (C2..B6)
func DefaultResolution() Resolution {
	return Resolution{
		BeatsPerBar:      4,
		TicksPerBeat:     96,
		StepsPerBeat:     4,
		SnapTicks:        12,
		MinNoteTicks:     12,
		DefaultNoteTicks: 24,
		Bars:             4,
		Rows:             60,
		TopMidi:          95,
	}
}

// TicksPerBar returns ticks in one bar (384 by default)
func (r Resolution) TicksPerBar() int {
	return r.BeatsPerBar * r.TicksPerBeat
}

// TicksPerStep returns ticks in one grid step (24 by default)
func (r Resolution) TicksPerStep() int {
	return r.TicksPerBeat / r.StepsPerBeat
}

// TotalTicks returns the pattern length in ticks
func (r Resolution) TotalTicks() int {
	return r.Bars * r.TicksPerBar()
}

// RowToMidi maps a pitch lane to a MIDI note number
func (r Resolution) RowToMidi(row int) int {
	return int(r.TopMidi) - row
}

// MidiToRow maps a MIDI note number back to its lane (may be out of range)
func (r Resolution) MidiToRow(midi int) int {
	return int(r.TopMidi) - midi
}

// Validate checks that the grid is internally consistent
func (r Resolution) Validate() error {
	switch {
	case r.BeatsPerBar <= 0, r.TicksPerBeat <= 0, r.StepsPerBeat <= 0:
		return fmt.Errorf("resolution: beats, ticks and steps must be positive")
	case r.SnapTicks <= 0:
		return fmt.Errorf("resolution: snap ticks must be positive, got %d", r.SnapTicks)
	case r.TicksPerBar()%r.SnapTicks != 0:
		return fmt.Errorf("resolution: snap %d does not divide bar of %d ticks", r.SnapTicks, r.TicksPerBar())
	case r.MinNoteTicks <= 0 || r.MinNoteTicks%r.SnapTicks != 0:
		return fmt.Errorf("resolution: min note %d must be a positive multiple of snap %d", r.MinNoteTicks, r.SnapTicks)
	case r.DefaultNoteTicks < r.MinNoteTicks:
		return fmt.Errorf("resolution: default note %d shorter than min note %d", r.DefaultNoteTicks, r.MinNoteTicks)
	case r.Bars <= 0:
		return fmt.Errorf("resolution: bars must be positive, got %d", r.Bars)
	case r.Rows <= 0 || r.Rows > int(r.TopMidi)+1:
		return fmt.Errorf("resolution: %d rows do not fit below midi %d", r.Rows, r.TopMidi)
	}
	return nil
}

// Snap returns the multiple of SnapTicks nearest to tick under mode.
// Round resolves halves upward.
func (r Resolution) Snap(tick int, mode SnapMode) int {
	q := r.SnapTicks
	if q <= 1 {
		return tick
	}
	fl := floorDiv(tick, q) * q
	if fl == tick {
		return tick
	}
	switch mode {
	case SnapFloor:
		return fl
	case SnapCeil:
		return fl + q
	default:
		if 2*(tick-fl) >= q {
			return fl + q
		}
		return fl
	}
}

// SnapLength snaps a note length and floors it at MinNoteTicks
func (r Resolution) SnapLength(length int) int {
	v := r.Snap(length, SnapRound)
	if v < r.MinNoteTicks {
		v = r.MinNoteTicks
	}
	return v
}

// BarBeat returns the 1-based bar and beat of tick and the tick offset inside the beat
func (r Resolution) BarBeat(tick int) (bar, beat, rem int) {
	if tick < 0 {
		tick = 0
	}
	bar = tick/r.TicksPerBar() + 1
	inBar := tick % r.TicksPerBar()
	beat = inBar/r.TicksPerBeat + 1
	rem = inBar % r.TicksPerBeat
	return bar, beat, rem
}

func floorDiv(a, b int) int {
	d := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		d--
	}
	return d
}
