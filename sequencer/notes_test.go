package sequencer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pianoroll/timing"
)

func newTestStore() *NoteStore {
	return NewNoteStore(timing.DefaultResolution())
}

func TestCreateSnapsStartAndLength(t *testing.T) {
	s := newTestStore()

	n, err := s.Create(17, 3, 20)
	require.NoError(t, err)
	assert.Equal(t, 12, n.StartTick)
	assert.Equal(t, 24, n.LengthTicks)
	assert.Equal(t, 3, n.Row)
	assert.NotEqual(t, NoID, n.ID)

	short, err := s.Create(100, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, short.LengthTicks, "length floors at the minimum")
}

func TestCreateRejectsOverlapOnSameRow(t *testing.T) {
	s := newTestStore()

	_, err := s.Create(0, 5, 24)
	require.NoError(t, err)

	_, err = s.Create(12, 5, 24)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, 1, s.Len())
}

func TestCreateAllowsTouchingAndOtherRows(t *testing.T) {
	s := newTestStore()

	_, err := s.Create(0, 5, 24)
	require.NoError(t, err)
	_, err = s.Create(24, 5, 24)
	assert.NoError(t, err, "touching endpoints are fine")
	_, err = s.Create(0, 6, 24)
	assert.NoError(t, err, "different row")
	assert.Equal(t, 3, s.Len())
}

func TestCreateShiftsIntoPattern(t *testing.T) {
	s := newTestStore()
	total := s.Resolution().TotalTicks()

	n, err := s.Create(total-5, 0, 48)
	require.NoError(t, err)
	assert.Equal(t, total-48, n.StartTick)
	assert.Equal(t, total, n.End())

	n, err = s.Create(-40, 1, 24)
	require.NoError(t, err)
	assert.Equal(t, 0, n.StartTick)

	n, err = s.Create(0, 2, total*3)
	require.NoError(t, err)
	assert.Equal(t, 0, n.StartTick)
	assert.Equal(t, total, n.LengthTicks)
}

func TestCreateRejectsBadRow(t *testing.T) {
	s := newTestStore()
	_, err := s.Create(0, -1, 24)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = s.Create(0, s.Resolution().Rows, 24)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	assert.Zero(t, s.Len())
}

func TestMove(t *testing.T) {
	s := newTestStore()
	n, err := s.Create(0, 5, 24)
	require.NoError(t, err)

	moved, err := s.Move(n.ID, 31, 7)
	require.NoError(t, err)
	assert.Equal(t, 36, moved.StartTick)
	assert.Equal(t, 7, moved.Row)

	moved, err = s.Move(n.ID, 100000, 1000)
	require.NoError(t, err)
	assert.Equal(t, s.Resolution().TotalTicks()-24, moved.StartTick)
	assert.Equal(t, s.Resolution().Rows-1, moved.Row)

	moved, err = s.Move(n.ID, -50, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.StartTick)
	assert.Equal(t, 0, moved.Row)
}

func TestMoveRejectsOverlapAndKeepsNote(t *testing.T) {
	s := newTestStore()
	a, err := s.Create(0, 5, 24)
	require.NoError(t, err)
	b, err := s.Create(48, 5, 24)
	require.NoError(t, err)

	got, err := s.Move(b.ID, 12, 5)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, b, got)

	cur, ok := s.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, b, cur)

	_, err = s.Move(a.ID, 0, 5)
	assert.NoError(t, err, "a note never overlaps itself")
}

func TestMoveUnknownNote(t *testing.T) {
	s := newTestStore()
	_, err := s.Move(NoID, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResizeLeadingEdge(t *testing.T) {
	s := newTestStore()
	res := s.Resolution()

	n, err := s.Create(24, 0, 24)
	require.NoError(t, err)

	grown, err := s.ResizeBy(n.ID, EdgeLeading, -12)
	require.NoError(t, err)
	assert.Equal(t, 12, grown.StartTick)
	assert.Equal(t, 36, grown.LengthTicks)

	m, err := s.Create(24, 1, 24)
	require.NoError(t, err)
	shrunk, err := s.ResizeBy(m.ID, EdgeLeading, 36)
	require.NoError(t, err)
	assert.Equal(t, 24+24-res.MinNoteTicks, shrunk.StartTick)
	assert.Equal(t, res.MinNoteTicks, shrunk.LengthTicks)
}

func TestResizeLeadingEdgeFloorsAtZero(t *testing.T) {
	s := newTestStore()
	n, err := s.Create(24, 0, 24)
	require.NoError(t, err)

	got, err := s.Resize(n.ID, EdgeLeading, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StartTick)
	assert.Equal(t, 48, got.LengthTicks)
}

func TestResizeTrailingEdge(t *testing.T) {
	s := newTestStore()
	total := s.Resolution().TotalTicks()
	n, err := s.Create(24, 0, 24)
	require.NoError(t, err)

	got, err := s.Resize(n.ID, EdgeTrailing, 41)
	require.NoError(t, err)
	assert.Equal(t, 24, got.StartTick)
	assert.Equal(t, 36, got.LengthTicks)

	got, err = s.Resize(n.ID, EdgeTrailing, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, got.LengthTicks)

	got, err = s.Resize(n.ID, EdgeTrailing, total*2)
	require.NoError(t, err)
	assert.Equal(t, total, got.End(), "clamped to the pattern end")
}

func TestResizeRejectsOverlap(t *testing.T) {
	s := newTestStore()
	a, err := s.Create(0, 2, 24)
	require.NoError(t, err)
	b, err := s.Create(48, 2, 24)
	require.NoError(t, err)

	got, err := s.Resize(a.ID, EdgeTrailing, 60)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, a, got)

	got, err = s.Resize(b.ID, EdgeLeading, 12)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, b, got)
}

func TestRemove(t *testing.T) {
	s := newTestStore()
	n, err := s.Create(0, 0, 24)
	require.NoError(t, err)

	assert.True(t, s.Remove(n.ID))
	assert.False(t, s.Remove(n.ID))
	assert.Zero(t, s.Len())

	_, err = s.Create(0, 0, 24)
	assert.NoError(t, err, "slot is free again")
}

func TestQueryOverlap(t *testing.T) {
	s := newTestStore()
	n, err := s.Create(24, 3, 24)
	require.NoError(t, err)

	assert.True(t, s.QueryOverlap(3, 30, 1, NoID))
	assert.True(t, s.QueryOverlap(3, 0, 25, NoID))
	assert.False(t, s.QueryOverlap(3, 0, 24, NoID))
	assert.False(t, s.QueryOverlap(3, 48, 12, NoID))
	assert.False(t, s.QueryOverlap(4, 24, 24, NoID))
	assert.False(t, s.QueryOverlap(3, 24, 24, n.ID))
}

func TestNotesOrderedAndStartingAt(t *testing.T) {
	s := newTestStore()
	_, _ = s.Create(96, 1, 24)
	_, _ = s.Create(0, 9, 24)
	_, _ = s.Create(0, 2, 24)

	notes := s.Notes()
	require.Len(t, notes, 3)
	assert.Equal(t, []int{0, 0, 96}, []int{notes[0].StartTick, notes[1].StartTick, notes[2].StartTick})
	assert.Equal(t, 2, notes[0].Row)

	assert.Len(t, s.StartingAt(0), 2)
	assert.Len(t, s.StartingAt(96), 1)
	assert.Empty(t, s.StartingAt(12))

	hit, ok := s.At(1, 100)
	require.True(t, ok)
	assert.Equal(t, 96, hit.StartTick)
	_, ok = s.At(1, 120)
	assert.False(t, ok)
}

func TestOnChangeFiresOnCommittedEdits(t *testing.T) {
	s := newTestStore()
	changes := 0
	s.SetOnChange(func() { changes++ })

	n, _ := s.Create(0, 0, 24)
	_, _ = s.Create(0, 0, 24) // rejected
	_, _ = s.Move(n.ID, 48, 0)
	_, _ = s.Move(n.ID, 48, 0) // no-op
	s.Remove(n.ID)

	assert.Equal(t, 3, changes)
}

// checkInvariants returns a description of the first broken invariant, or ""
func checkInvariants(s *NoteStore) string {
	res := s.Resolution()
	notes := s.Notes()
	for i, a := range notes {
		switch {
		case a.StartTick < 0 || a.End() > res.TotalTicks():
			return fmt.Sprintf("%+v outside the pattern", a)
		case a.LengthTicks < res.MinNoteTicks:
			return fmt.Sprintf("%+v shorter than the minimum", a)
		case a.Row < 0 || a.Row >= res.Rows:
			return fmt.Sprintf("%+v row out of range", a)
		case a.StartTick%res.SnapTicks != 0 || a.LengthTicks%res.SnapTicks != 0:
			return fmt.Sprintf("%+v off grid", a)
		}
		for _, b := range notes[i+1:] {
			if b.Overlaps(a.Row, a.StartTick, a.LengthTicks) {
				return fmt.Sprintf("%+v overlaps %+v", a, b)
			}
		}
	}
	return ""
}

func TestRandomEditsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newTestStore()
	res := s.Resolution()
	total := res.TotalTicks()

	pick := func() (NoteID, bool) {
		notes := s.Notes()
		if len(notes) == 0 {
			return NoID, false
		}
		return notes[rng.Intn(len(notes))].ID, true
	}

	for i := 0; i < 5000; i++ {
		switch rng.Intn(6) {
		case 0, 1:
			_, _ = s.Create(rng.Intn(total+200)-100, rng.Intn(8), rng.Intn(200)-20)
		case 2:
			if id, ok := pick(); ok {
				_, _ = s.Move(id, rng.Intn(total+200)-100, rng.Intn(10)-1)
			}
		case 3:
			if id, ok := pick(); ok {
				_, _ = s.ResizeBy(id, Edge(rng.Intn(2)), rng.Intn(200)-100)
			}
		case 4:
			if id, ok := pick(); ok {
				_, _ = s.Resize(id, Edge(rng.Intn(2)), rng.Intn(total*2)-total/2)
			}
		case 5:
			if id, ok := pick(); ok && rng.Intn(4) == 0 {
				s.Remove(id)
			}
		}
		if msg := checkInvariants(s); msg != "" {
			t.Fatalf("edit %d: %s", i, msg)
		}
	}
	assert.Positive(t, s.Len())
}
