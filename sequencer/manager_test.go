package sequencer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pianoroll/timing"
)

func drain(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func newTestManager(t *testing.T) (*Manager, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	m := NewManager(timing.DefaultResolution(), WithScheduler(sched))
	t.Cleanup(m.Close)
	return m, sched
}

func TestManagerNotifiesOnEdit(t *testing.T) {
	m, _ := newTestManager(t)
	drain(m.UpdateChan)

	m.HandleKey("enter")
	assert.True(t, drain(m.UpdateChan))
	assert.Equal(t, 1, m.Store().Len())
	assert.False(t, drain(m.UpdateChan), "updates coalesce")
}

func TestManagerTracksTicks(t *testing.T) {
	m, sched := newTestManager(t)
	m.TogglePlay()
	require.True(t, m.GetState().Playing)

	clock := sched.active()[0]
	sched.fire(clock, 192)
	assert.Equal(t, 192, m.LastTick().Tick)
	assert.Equal(t, "00:01:00", m.LastTick().Elapsed)

	m.Stop()
	assert.Equal(t, 0, m.LastTick().Tick)
	assert.False(t, m.LastTick().Playing)
}

func TestManagerTempoHook(t *testing.T) {
	m, _ := newTestManager(t)
	var saved []float64
	m.SetOnTempo(func(bpm float64) { saved = append(saved, bpm) })

	m.SetTempo(90)
	m.SetTempo(math.NaN())
	m.NudgeTempo(-500)
	m.NudgeTempo(1000)

	assert.Equal(t, []float64{90, 120, 20, 300}, saved)
}

func TestManagerMetronome(t *testing.T) {
	m, _ := newTestManager(t)
	assert.True(t, m.ToggleMetronome())
	assert.True(t, m.GetState().Metronome)
	assert.False(t, m.ToggleMetronome())
}

func TestManagerFlashesTriggeredNotes(t *testing.T) {
	m, _ := newTestManager(t)
	_, row := m.Editor().Cursor()
	n, err := m.Store().Create(0, row, 24)
	require.NoError(t, err)

	m.TogglePlay()
	assert.True(t, m.Editor().flashing(n.ID, time.Now()))
}
