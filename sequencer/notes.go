package sequencer

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"go-pianoroll/debug"
	"go-pianoroll/timing"
)

// Edit rejections. The store is unchanged whenever one of these is returned.
var (
	ErrOverlap       = errors.New("note overlaps another note on the same row")
	ErrRowOutOfRange = errors.New("row out of range")
	ErrNotFound      = errors.New("note not found")
)

// Edge selects which end of a note a resize moves
type Edge int

const (
	EdgeTrailing Edge = iota
	EdgeLeading
)

func (e Edge) String() string {
	if e == EdgeLeading {
		return "leading"
	}
	return "trailing"
}

// NoteStore owns the notes of one pattern and enforces snapping, bounds and
// same-row overlap rules on every edit
type NoteStore struct {
	res   timing.Resolution
	notes []*Note // insertion order
	mu    sync.RWMutex

	onChange func() // called after every committed edit, outside the lock
}

// NewNoteStore creates an empty store for the given grid
func NewNoteStore(res timing.Resolution) *NoteStore {
	return &NoteStore{res: res}
}

// Resolution returns the grid the store snaps to
func (s *NoteStore) Resolution() timing.Resolution {
	return s.res
}

// SetOnChange registers a callback fired after each committed edit
func (s *NoteStore) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *NoteStore) changed() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Create snaps and fits a new note into the pattern. The start is shifted left
// when the note would run past the end; the note is rejected on overlap.
func (s *NoteStore) Create(startTick, row, lengthTicks int) (Note, error) {
	if row < 0 || row >= s.res.Rows {
		return Note{}, ErrRowOutOfRange
	}
	total := s.res.TotalTicks()

	start := s.res.Snap(startTick, timing.SnapRound)
	length := s.res.SnapLength(lengthTicks)
	if length > total {
		length = s.res.Snap(total, timing.SnapFloor)
	}
	if start < 0 {
		start = 0
	}
	if start+length > total {
		start = s.res.Snap(total-length, timing.SnapFloor)
	}

	s.mu.Lock()
	if s.overlapLocked(row, start, length, NoID) {
		s.mu.Unlock()
		debug.Log("notes", "create rejected row=%d start=%d len=%d: overlap", row, start, length)
		return Note{}, ErrOverlap
	}
	n := &Note{ID: uuid.New(), StartTick: start, LengthTicks: length, Row: row}
	s.notes = append(s.notes, n)
	s.mu.Unlock()

	debug.Log("notes", "create %s row=%d start=%d len=%d", n.ID, row, start, length)
	s.changed()
	return *n, nil
}

// Move places a note at a new start and row. The start is snapped and clamped so
// the note fits, the row is clamped to the grid; overlap leaves the note as it was.
func (s *NoteStore) Move(id NoteID, newStartTick, newRow int) (Note, error) {
	s.mu.Lock()
	n := s.findLocked(id)
	if n == nil {
		s.mu.Unlock()
		return Note{}, ErrNotFound
	}

	start := s.res.Snap(newStartTick, timing.SnapRound)
	start = clamp(start, 0, s.res.TotalTicks()-n.LengthTicks)
	row := clamp(newRow, 0, s.res.Rows-1)

	if s.overlapLocked(row, start, n.LengthTicks, id) {
		prev := *n
		s.mu.Unlock()
		return prev, ErrOverlap
	}
	moved := n.StartTick != start || n.Row != row
	n.StartTick = start
	n.Row = row
	out := *n
	s.mu.Unlock()

	if moved {
		s.changed()
	}
	return out, nil
}

// Resize moves one edge of a note. For the trailing edge value is the candidate
// length; for the leading edge it is the candidate start and the end stays put.
func (s *NoteStore) Resize(id NoteID, edge Edge, value int) (Note, error) {
	s.mu.Lock()
	n := s.findLocked(id)
	if n == nil {
		s.mu.Unlock()
		return Note{}, ErrNotFound
	}

	start, length := s.resizeCandidate(*n, edge, value)
	if s.overlapLocked(n.Row, start, length, id) {
		prev := *n
		s.mu.Unlock()
		return prev, ErrOverlap
	}
	resized := n.StartTick != start || n.LengthTicks != length
	n.StartTick = start
	n.LengthTicks = length
	out := *n
	s.mu.Unlock()

	if resized {
		s.changed()
	}
	return out, nil
}

// ResizeBy moves an edge by a relative amount of ticks
func (s *NoteStore) ResizeBy(id NoteID, edge Edge, deltaTicks int) (Note, error) {
	n, ok := s.Get(id)
	if !ok {
		return Note{}, ErrNotFound
	}
	if edge == EdgeLeading {
		return s.Resize(id, edge, n.StartTick+deltaTicks)
	}
	return s.Resize(id, edge, n.LengthTicks+deltaTicks)
}

func (s *NoteStore) resizeCandidate(n Note, edge Edge, value int) (start, length int) {
	r := s.res
	total := r.TotalTicks()
	start, length = n.StartTick, n.LengthTicks

	switch edge {
	case EdgeTrailing:
		length = r.SnapLength(value)
	case EdgeLeading:
		end := n.End()
		start = r.Snap(value, timing.SnapRound)
		if start < 0 {
			start = 0
		}
		if start > end-r.MinNoteTicks {
			start = end - r.MinNoteTicks
		}
		length = end - start
	}

	if start+length > total {
		length = r.SnapLength(total - start)
		if start+length > total {
			length = r.MinNoteTicks
			start = r.Snap(total-r.MinNoteTicks, timing.SnapFloor)
		}
	}
	return start, length
}

// setExtent puts back a previously committed start and length
func (s *NoteStore) setExtent(id NoteID, start, length int) error {
	s.mu.Lock()
	n := s.findLocked(id)
	if n == nil {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.overlapLocked(n.Row, start, length, id) {
		s.mu.Unlock()
		return ErrOverlap
	}
	n.StartTick = start
	n.LengthTicks = length
	s.mu.Unlock()
	s.changed()
	return nil
}

// Remove deletes a note; it reports whether the note existed
func (s *NoteStore) Remove(id NoteID) bool {
	s.mu.Lock()
	idx := -1
	for i, n := range s.notes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.notes = append(s.notes[:idx], s.notes[idx+1:]...)
	s.mu.Unlock()

	debug.Log("notes", "remove %s", id)
	s.changed()
	return true
}

// Clear removes every note
func (s *NoteStore) Clear() {
	s.mu.Lock()
	s.notes = nil
	s.mu.Unlock()
	s.changed()
}

// QueryOverlap reports whether [start, start+length) on row intersects any note
// other than excluding
func (s *NoteStore) QueryOverlap(row, startTick, lengthTicks int, excluding NoteID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlapLocked(row, startTick, lengthTicks, excluding)
}

func (s *NoteStore) overlapLocked(row, start, length int, excluding NoteID) bool {
	for _, n := range s.notes {
		if n.ID == excluding {
			continue
		}
		if n.Overlaps(row, start, length) {
			return true
		}
	}
	return false
}

func (s *NoteStore) findLocked(id NoteID) *Note {
	for _, n := range s.notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Get returns a copy of a note
func (s *NoteStore) Get(id NoteID) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.findLocked(id); n != nil {
		return *n, true
	}
	return Note{}, false
}

// Len returns the number of notes
func (s *NoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Notes returns copies of all notes ordered by start tick, then row
func (s *NoteStore) Notes() []Note {
	s.mu.RLock()
	out := make([]Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = *n
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTick != out[j].StartTick {
			return out[i].StartTick < out[j].StartTick
		}
		return out[i].Row < out[j].Row
	})
	return out
}

// StartingAt returns the notes whose onset is exactly tick, in insertion order
func (s *NoteStore) StartingAt(tick int) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Note
	for _, n := range s.notes {
		if n.StartTick == tick {
			out = append(out, *n)
		}
	}
	return out
}

// At returns the note covering tick on row, if any
func (s *NoteStore) At(row, tick int) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.Overlaps(row, tick, 1) {
			return *n, true
		}
	}
	return Note{}, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
