package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultBPM is used whenever tempo input is missing or unusable
const DefaultBPM = 120.0

// ValidBPM reports whether bpm can drive a clock
func ValidBPM(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0) && !math.IsNaN(bpm)
}

// ParseBPM reads a tempo typed by the user. Empty, non-numeric and zero input fall
// back to DefaultBPM; negative values pass through so the caller can suspend clocks.
func ParseBPM(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultBPM
	}
	return v
}

// TickDurationMs returns (60000/bpm)/ticksPerBeat. For a tempo that cannot drive a
// clock it returns +Inf, which callers must treat as "do not schedule".
func TickDurationMs(bpm float64, ticksPerBeat int) float64 {
	if !ValidBPM(bpm) || ticksPerBeat <= 0 {
		return math.Inf(1)
	}
	return (60000 / bpm) / float64(ticksPerBeat)
}

// TickDuration is TickDurationMs as a time.Duration; ok is false when nothing should be scheduled
func TickDuration(bpm float64, ticksPerBeat int) (d time.Duration, ok bool) {
	ms := TickDurationMs(bpm, ticksPerBeat)
	if math.IsInf(ms, 0) {
		return 0, false
	}
	return msToDuration(ms), true
}

// BeatDuration returns one beat at bpm (metronome cadence)
func BeatDuration(bpm float64) (d time.Duration, ok bool) {
	return TickDuration(bpm, 1)
}

// ElapsedMs returns wall-clock milliseconds from tick 0 to tick.
// Single division so whole beats at whole tempos land on exact milliseconds.
func ElapsedMs(tick int, bpm float64, ticksPerBeat int) float64 {
	if !ValidBPM(bpm) || ticksPerBeat <= 0 {
		return math.Inf(1)
	}
	return float64(tick) * 60000 / (bpm * float64(ticksPerBeat))
}

// FormatClock renders ms as MM:SS:CC (centiseconds truncated, minutes unbounded)
func FormatClock(ms float64) string {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return "00:00:00"
	}
	total := int64(ms)
	minutes := total / 60000
	seconds := (total % 60000) / 1000
	cs := (total % 1000) / 10
	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, cs)
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
