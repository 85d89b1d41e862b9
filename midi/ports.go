package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// Port listing can hang on a wedged CoreMIDI
const portTimeout = 3 * time.Second

var (
	ErrPortTimeout  = errors.New("midi: timed out listing ports")
	ErrPortNotFound = errors.New("midi: output port not found")
)

// outPorts lists output ports, giving up after portTimeout
func outPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(portTimeout):
		return nil, ErrPortTimeout
	}
}

// OutPorts returns the names of all MIDI output ports
func OutPorts() ([]string, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

// FindOutPort opens nothing; it picks the port named exactly name, or the
// first whose name contains it (case-insensitive)
func FindOutPort(name string) (drivers.Out, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	idx := MatchPort(portNames(outs), name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, name)
	}
	return outs[idx], nil
}

func portNames(outs []drivers.Out) []string {
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names
}

// MatchPort returns the index of the port matching name, or -1
func MatchPort(names []string, name string) int {
	if name == "" {
		return -1
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	want := strings.ToLower(name)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}
