package timing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResolution(t *testing.T) {
	r := DefaultResolution()
	require.NoError(t, r.Validate())

	assert.Equal(t, 384, r.TicksPerBar())
	assert.Equal(t, 24, r.TicksPerStep())
	assert.Equal(t, 1536, r.TotalTicks())
	assert.Equal(t, 95, r.RowToMidi(0))
	assert.Equal(t, 36, r.RowToMidi(r.Rows-1))
	assert.Equal(t, 35, r.MidiToRow(60))
}

func TestValidateRejectsBrokenGrids(t *testing.T) {
	cases := map[string]func(r *Resolution){
		"zero ticks":        func(r *Resolution) { r.TicksPerBeat = 0 },
		"snap not divisor":  func(r *Resolution) { r.SnapTicks = 7 },
		"min not multiple":  func(r *Resolution) { r.MinNoteTicks = 18 },
		"default too short": func(r *Resolution) { r.DefaultNoteTicks = 6 },
		"no bars":           func(r *Resolution) { r.Bars = 0 },
		"rows below zero":   func(r *Resolution) { r.Rows = 200 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := DefaultResolution()
			mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestTickDuration(t *testing.T) {
	assert.InDelta(t, 1000.0/96, TickDurationMs(60, 96), 1e-12)
	assert.InDelta(t, 500.0/96, TickDurationMs(120, 96), 1e-12)

	d, ok := TickDuration(120, 96)
	require.True(t, ok)
	assert.Equal(t, int64(5208333), d.Nanoseconds())

	beat, ok := BeatDuration(120)
	require.True(t, ok)
	assert.Equal(t, int64(500), beat.Milliseconds())
}

func TestTickDurationRejectsNonPositiveTempo(t *testing.T) {
	for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		assert.True(t, math.IsInf(TickDurationMs(bpm, 96), 1), "bpm %v", bpm)
		_, ok := TickDuration(bpm, 96)
		assert.False(t, ok, "bpm %v", bpm)
	}
	_, ok := TickDuration(120, 0)
	assert.False(t, ok)
}

func TestTickDurationPositiveAndElapsedMonotonic(t *testing.T) {
	for _, bpm := range []float64{1, 37.5, 60, 99, 120, 171, 300, 999} {
		assert.Greater(t, TickDurationMs(bpm, 96), 0.0)
		prev := ElapsedMs(0, bpm, 96)
		for tick := 1; tick < 2000; tick++ {
			cur := ElapsedMs(tick, bpm, 96)
			require.Greater(t, cur, prev, "bpm %v tick %d", bpm, tick)
			prev = cur
		}
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:01:00", FormatClock(ElapsedMs(96, 60, 96)))
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "00:00:09", FormatClock(99.9))
	assert.Equal(t, "01:02:34", FormatClock(62345))
	assert.Equal(t, "75:00:00", FormatClock(75*60000))
	assert.Equal(t, "00:00:00", FormatClock(-5))
	assert.Equal(t, "00:00:00", FormatClock(math.Inf(1)))
}

func TestParseBPM(t *testing.T) {
	assert.Equal(t, 140.0, ParseBPM("140"))
	assert.Equal(t, 92.5, ParseBPM(" 92.5 "))
	assert.Equal(t, DefaultBPM, ParseBPM(""))
	assert.Equal(t, DefaultBPM, ParseBPM("fast"))
	assert.Equal(t, DefaultBPM, ParseBPM("0"))
	assert.Equal(t, -20.0, ParseBPM("-20"))
}

func TestSnap(t *testing.T) {
	r := DefaultResolution()
	tests := []struct {
		tick int
		mode SnapMode
		want int
	}{
		{0, SnapRound, 0},
		{5, SnapRound, 0},
		{6, SnapRound, 12},
		{17, SnapRound, 12},
		{18, SnapRound, 24},
		{5, SnapFloor, 0},
		{23, SnapFloor, 12},
		{1, SnapCeil, 12},
		{24, SnapCeil, 24},
		{-5, SnapRound, 0},
		{-7, SnapRound, -12},
		{-1, SnapFloor, -12},
		{-11, SnapCeil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Snap(tt.tick, tt.mode), "snap(%d, %d)", tt.tick, tt.mode)
	}
}

func TestSnapRoundIsIdempotent(t *testing.T) {
	r := DefaultResolution()
	for tick := -500; tick <= 2000; tick++ {
		once := r.Snap(tick, SnapRound)
		assert.Equal(t, once, r.Snap(once, SnapRound))
		assert.Zero(t, once%r.SnapTicks)
	}
}

func TestSnapLength(t *testing.T) {
	r := DefaultResolution()
	assert.Equal(t, 12, r.SnapLength(0))
	assert.Equal(t, 12, r.SnapLength(-30))
	assert.Equal(t, 12, r.SnapLength(13))
	assert.Equal(t, 24, r.SnapLength(20))
	assert.Equal(t, 96, r.SnapLength(96))
}

func TestBarBeat(t *testing.T) {
	r := DefaultResolution()
	bar, beat, rem := r.BarBeat(0)
	assert.Equal(t, []int{1, 1, 0}, []int{bar, beat, rem})

	bar, beat, rem = r.BarBeat(384 + 96*2 + 5)
	assert.Equal(t, []int{2, 3, 5}, []int{bar, beat, rem})
}
