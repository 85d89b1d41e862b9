package sequencer

// Drag is an in-progress move gesture. Every Update is checked against the
// store; a rejected update keeps the note at its last accepted placement.
type Drag struct {
	store *NoteStore
	id    NoteID

	originTick int
	originRow  int
	row        int // last accepted row

	onRowChange func(row int)
}

// BeginDrag starts moving a note
func (s *NoteStore) BeginDrag(id NoteID) (*Drag, error) {
	n, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &Drag{
		store:      s,
		id:         id,
		originTick: n.StartTick,
		originRow:  n.Row,
		row:        n.Row,
	}, nil
}

// OnRowChange registers a hook fired when an accepted update lands on a new row
func (d *Drag) OnRowChange(fn func(row int)) {
	d.onRowChange = fn
}

// Update moves the note to origin + delta. It reports whether the placement was accepted.
func (d *Drag) Update(deltaTicks, deltaRows int) bool {
	n, err := d.store.Move(d.id, d.originTick+deltaTicks, d.originRow+deltaRows)
	if err != nil {
		return false
	}
	if n.Row != d.row {
		d.row = n.Row
		if d.onRowChange != nil {
			d.onRowChange(n.Row)
		}
	}
	return true
}

// Row returns the row of the last accepted placement
func (d *Drag) Row() int {
	return d.row
}

// Cancel puts the note back where the gesture began
func (d *Drag) Cancel() error {
	_, err := d.store.Move(d.id, d.originTick, d.originRow)
	if err == nil {
		d.row = d.originRow
	}
	return err
}

// ResizeGesture is an in-progress edge drag with the same last-valid semantics as Drag
type ResizeGesture struct {
	store *NoteStore
	id    NoteID
	edge  Edge

	originStart  int
	originLength int
}

// BeginResize starts dragging one edge of a note
func (s *NoteStore) BeginResize(id NoteID, edge Edge) (*ResizeGesture, error) {
	n, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &ResizeGesture{
		store:        s,
		id:           id,
		edge:         edge,
		originStart:  n.StartTick,
		originLength: n.LengthTicks,
	}, nil
}

// Update applies a raw tick delta measured from where the gesture began
func (g *ResizeGesture) Update(deltaTicks int) bool {
	value := g.originLength + deltaTicks
	if g.edge == EdgeLeading {
		value = g.originStart + deltaTicks
	}
	_, err := g.store.Resize(g.id, g.edge, value)
	return err == nil
}

// Cancel restores the note's original extent
func (g *ResizeGesture) Cancel() error {
	return g.store.setExtent(g.id, g.originStart, g.originLength)
}
