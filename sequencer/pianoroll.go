package sequencer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-pianoroll/timing"
	"go-pianoroll/widgets"
)

// View scales: ticks per column
var ViewScales = []int{
	6,  // 1/16 beat per col - zoomed in
	12, // 1/8 beat (snap)
	24, // 1/4 beat (step)
	48, // 1/2 beat
	96, // 1 beat per col - zoomed out
}

// Piano roll view modes
const (
	ViewSmushed = 12 // fewer rows
	ViewSpread  = 24 // more rows
)

const (
	viewCols = 64
	flashFor = 120 * time.Millisecond
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns a MIDI note as C4-style text (60 = C4)
func NoteName(midi int) string {
	if midi < 0 {
		return "?"
	}
	return fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1)
}

// PianoRoll is the keyboard editor over a NoteStore: an edit cursor on the
// snap grid, a selected note, and a scrolling text view of the grid
type PianoRoll struct {
	store     *NoteStore
	transport *Transport
	res       timing.Resolution

	cursorTick int
	cursorRow  int
	selected   NoteID

	viewScale int // index into ViewScales
	viewRows  int
	startTick int // first visible tick
	startRow  int // first visible row
	follow    bool
	status    string
	onPreview func(row int)

	flashMu sync.Mutex
	flashes map[NoteID]time.Time // note -> flash end
}

// NewPianoRoll creates an editor centred on middle C
func NewPianoRoll(store *NoteStore, transport *Transport) *PianoRoll {
	res := store.Resolution()
	p := &PianoRoll{
		store:     store,
		transport: transport,
		res:       res,
		viewScale: 1,
		viewRows:  ViewSpread,
		flashes:   make(map[NoteID]time.Time),
	}
	p.cursorRow = clamp(res.MidiToRow(60), 0, res.Rows-1)
	p.scrollToCursor()
	return p
}

// SetOnPreview registers the pitch preview hook used when a note changes row
func (p *PianoRoll) SetOnPreview(fn func(row int)) {
	p.onPreview = fn
}

// Trigger flashes a note when the playhead fires it
func (p *PianoRoll) Trigger(ev Trigger) {
	p.flashMu.Lock()
	p.flashes[ev.NoteID] = time.Now().Add(flashFor)
	p.flashMu.Unlock()
}

func (p *PianoRoll) flashing(id NoteID, now time.Time) bool {
	p.flashMu.Lock()
	defer p.flashMu.Unlock()
	until, ok := p.flashes[id]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(p.flashes, id)
		return false
	}
	return true
}

// Cursor returns the edit cursor
func (p *PianoRoll) Cursor() (tick, row int) {
	return p.cursorTick, p.cursorRow
}

// Selected returns the selected note, if any
func (p *PianoRoll) Selected() (Note, bool) {
	if p.selected == NoID {
		return Note{}, false
	}
	return p.store.Get(p.selected)
}

// Status returns the feedback line for the last edit
func (p *PianoRoll) Status() string {
	return p.status
}

// Follow reports whether the view tracks the playhead
func (p *PianoRoll) Follow() bool {
	return p.follow
}

func (p *PianoRoll) setCursor(tick, row int) {
	p.cursorTick = clamp(p.res.Snap(tick, timing.SnapFloor), 0, p.res.TotalTicks()-p.res.SnapTicks)
	p.cursorRow = clamp(row, 0, p.res.Rows-1)
	if n, ok := p.store.At(p.cursorRow, p.cursorTick); ok {
		p.selected = n.ID
	}
	p.scrollToCursor()
}

func (p *PianoRoll) focusNote(n Note) {
	p.selected = n.ID
	p.cursorTick = n.StartTick
	p.cursorRow = n.Row
	p.scrollToCursor()
}

func (p *PianoRoll) scrollToCursor() {
	p.scrollTo(p.cursorTick)
	rows := p.viewRows
	if p.cursorRow < p.startRow {
		p.startRow = p.cursorRow
	} else if p.cursorRow >= p.startRow+rows {
		p.startRow = p.cursorRow - rows + 1
	}
	p.startRow = clamp(p.startRow, 0, max(0, p.res.Rows-rows))
}

func (p *PianoRoll) scrollTo(tick int) {
	span := viewCols * ViewScales[p.viewScale]
	if tick < p.startTick {
		p.startTick = tick - tick%span
	} else if tick >= p.startTick+span {
		p.startTick = tick - tick%span
	}
	p.startTick = clamp(p.startTick, 0, max(0, p.res.TotalTicks()-span))
}

// reject turns an edit error into the status line
func (p *PianoRoll) reject(err error) {
	switch {
	case errors.Is(err, ErrOverlap):
		p.status = "overlap"
	case errors.Is(err, ErrRowOutOfRange):
		p.status = "out of range"
	case errors.Is(err, ErrNotFound):
		p.status = "no note selected"
		p.selected = NoID
	default:
		p.status = err.Error()
	}
}

func (p *PianoRoll) selectNoteByTime(direction int) {
	notes := p.store.Notes()
	if len(notes) == 0 {
		return
	}
	idx := -1
	for i, n := range notes {
		if n.ID == p.selected {
			idx = i
			break
		}
	}
	idx += direction
	if idx < 0 {
		idx = len(notes) - 1
	} else if idx >= len(notes) {
		idx = 0
	}
	p.focusNote(notes[idx])
}

// moveSelected drags the selected note by a grid delta
func (p *PianoRoll) moveSelected(deltaTicks, deltaRows int) {
	if p.selected == NoID {
		p.status = "no note selected"
		return
	}
	d, err := p.store.BeginDrag(p.selected)
	if err != nil {
		p.reject(err)
		return
	}
	d.OnRowChange(func(row int) {
		if p.onPreview != nil {
			p.onPreview(row)
		}
	})
	if !d.Update(deltaTicks, deltaRows) {
		p.status = "overlap"
		return
	}
	if n, ok := p.store.Get(p.selected); ok {
		p.focusNote(n)
	}
}

func (p *PianoRoll) resizeSelected(edge Edge, delta int) {
	if p.selected == NoID {
		p.status = "no note selected"
		return
	}
	n, err := p.store.ResizeBy(p.selected, edge, delta)
	if err != nil {
		p.reject(err)
		return
	}
	p.focusNote(n)
}

// HandleKey applies one editor key binding
func (p *PianoRoll) HandleKey(key string) {
	snap := p.res.SnapTicks
	p.status = ""

	switch key {
	case "h", "left":
		p.setCursor(p.cursorTick-ViewScales[p.viewScale], p.cursorRow)
	case "l", "right":
		p.setCursor(p.cursorTick+ViewScales[p.viewScale], p.cursorRow)
	case "k", "up":
		p.setCursor(p.cursorTick, p.cursorRow-1)
	case "j", "down":
		p.setCursor(p.cursorTick, p.cursorRow+1)
	case "H":
		p.selectNoteByTime(-1)
	case "L":
		p.selectNoteByTime(1)
	case "esc":
		p.selected = NoID

	case "y":
		p.moveSelected(-snap, 0)
	case "o":
		p.moveSelected(snap, 0)
	case "u":
		p.moveSelected(0, 1)
	case "i":
		p.moveSelected(0, -1)
	case "U":
		p.moveSelected(0, 12)
	case "I":
		p.moveSelected(0, -12)

	case "n":
		p.resizeSelected(EdgeTrailing, -snap)
	case "m":
		p.resizeSelected(EdgeTrailing, snap)
	case "N":
		p.resizeSelected(EdgeLeading, -snap)
	case "M":
		p.resizeSelected(EdgeLeading, snap)

	case "enter":
		n, err := p.store.Create(p.cursorTick, p.cursorRow, p.res.DefaultNoteTicks)
		if err != nil {
			p.reject(err)
			return
		}
		p.focusNote(n)
	case "x", "backspace":
		if p.selected != NoID {
			p.store.Remove(p.selected)
			p.selected = NoID
		}
	case "c":
		p.store.Clear()
		p.selected = NoID

	case "g":
		if p.transport != nil {
			p.transport.Seek(p.cursorTick)
		}
	case "f":
		p.follow = !p.follow

	case "z":
		if p.viewScale < len(ViewScales)-1 {
			p.viewScale++
			p.scrollToCursor()
		}
	case "Z":
		if p.viewScale > 0 {
			p.viewScale--
			p.scrollToCursor()
		}
	case "a":
		p.viewRows = ViewSmushed
		p.scrollToCursor()
	case "s":
		p.viewRows = ViewSpread
		p.scrollToCursor()
	}
}

// View renders the visible part of the grid
func (p *PianoRoll) View() string {
	var out strings.Builder
	now := time.Now()

	scale := ViewScales[p.viewScale]
	playhead := -1
	if p.transport != nil {
		playhead = p.transport.State().Tick
		if p.follow {
			p.scrollTo(playhead)
		}
	}

	cursorInfo := fmt.Sprintf("%s %s", p.position(p.cursorTick), NoteName(p.res.RowToMidi(p.cursorRow)))
	followInfo := ""
	if p.follow {
		followInfo = "  follow"
	}
	out.WriteString(fmt.Sprintf("PIANO  %d notes  Cursor %s  View %d ticks/col%s\n\n", p.store.Len(), cursorInfo, scale, followInfo))

	notes := p.store.Notes()
	playCol := -1
	if playhead >= p.startTick {
		playCol = (playhead - p.startTick) / scale
	}
	cursorCol := (p.cursorTick - p.startTick) / scale
	total := p.res.TotalTicks()

	endRow := min(p.startRow+p.viewRows, p.res.Rows)
	for row := p.startRow; row < endRow; row++ {
		out.WriteString(fmt.Sprintf("%4s ", NoteName(p.res.RowToMidi(row))))

		for col := 0; col < viewCols; col++ {
			colTick := p.startTick + col*scale
			colEnd := colTick + scale
			if colTick >= total {
				out.WriteString(" ")
				continue
			}

			isCursor := row == p.cursorRow && col == cursorCol
			char := "·"
			if colTick%p.res.TicksPerBar() == 0 {
				char = "|"
			}

			// an onset in the column wins over a body passing through it
			for _, n := range notes {
				if n.Row != row || n.StartTick >= colEnd || n.End() <= colTick {
					continue
				}
				if n.StartTick < colTick {
					char = "─"
					continue
				}
				switch {
				case n.ID == p.selected:
					char = "◉"
				case p.flashing(n.ID, now):
					char = "◆"
				default:
					char = "●"
				}
				break
			}

			if col == playCol && (char == "·" || char == "|") {
				char = "▶"
			}
			if isCursor && (char == "·" || char == "|" || char == "▶") {
				char = "○"
			}
			out.WriteString(char)
		}
		out.WriteString("\n")
	}

	if n, ok := p.Selected(); ok {
		out.WriteString(fmt.Sprintf("\nSelected: %s  start:%s  len:%d ticks", NoteName(p.res.RowToMidi(n.Row)), p.position(n.StartTick), n.LengthTicks))
	}
	if p.status != "" {
		out.WriteString(fmt.Sprintf("\n! %s", p.status))
	}

	out.WriteString("\n\n")
	out.WriteString(widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "Cursor", Keys: []widgets.KeyBinding{
			{Key: "hjkl", Desc: "move cursor"},
			{Key: "H / L", Desc: "prev / next note"},
		}},
		{Title: "Move", Keys: []widgets.KeyBinding{
			{Key: "y / o", Desc: "earlier / later"},
			{Key: "u / i", Desc: "semitone down / up (U/I octave)"},
		}},
		{Title: "Length", Keys: []widgets.KeyBinding{
			{Key: "n / m", Desc: "end shorter / longer"},
			{Key: "N / M", Desc: "start earlier / later"},
		}},
		{Title: "Notes", Keys: []widgets.KeyBinding{
			{Key: "enter", Desc: "add note"},
			{Key: "x", Desc: "delete note"},
			{Key: "c", Desc: "clear"},
		}},
		{Title: "View", Keys: []widgets.KeyBinding{
			{Key: "z / Z", Desc: "zoom out/in"},
			{Key: "a / s", Desc: "smushed/spread"},
			{Key: "f", Desc: "follow playhead"},
			{Key: "g", Desc: "seek to cursor"},
		}},
	}))

	return out.String()
}

// position formats a tick as bar.beat.tick
func (p *PianoRoll) position(tick int) string {
	bar, beat, rem := p.res.BarBeat(tick)
	return fmt.Sprintf("%d.%d.%02d", bar, beat, rem)
}
