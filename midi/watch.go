package midi

import (
	"context"
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-pianoroll/debug"
)

// PortEvent is emitted when the watched output port appears or goes away
type PortEvent struct {
	Type PortEventType
	Name string // actual port name
	Err  error  // open failure
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
	PortFailed
)

// Watcher keeps an Out connected to a named port across unplug/replug
type Watcher struct {
	want     string
	out      *Out
	events   chan PortEvent
	pollRate time.Duration

	list func() ([]string, error)
	open func(name string) (func(gomidi.Message) error, error)

	current string // connected port name
}

// NewWatcher watches for a port matching name and feeds it to out
func NewWatcher(name string, out *Out) *Watcher {
	return &Watcher{
		want:     name,
		out:      out,
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		list:     OutPorts,
		open:     openSender,
	}
}

// Events returns a channel of connect/disconnect events
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run polls until ctx is done (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan
	w.scan()

	for {
		select {
		case <-ctx.Done():
			w.out.Disconnect()
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) emit(ev PortEvent) {
	select {
	case w.events <- ev:
	default:
	}
}

func (w *Watcher) scan() {
	names, err := w.list()
	if err != nil {
		// hung driver - skip this scan
		debug.Log("midi", "scan: %v", err)
		return
	}

	idx := MatchPort(names, w.want)

	if w.current != "" {
		if idx >= 0 && names[idx] == w.current {
			return
		}
		debug.Log("midi", "port gone: %s", w.current)
		w.out.Disconnect()
		w.emit(PortEvent{Type: PortDisconnected, Name: w.current})
		w.current = ""
	}
	if idx < 0 {
		return
	}

	send, err := w.open(names[idx])
	if err != nil {
		w.emit(PortEvent{Type: PortFailed, Name: names[idx], Err: err})
		return
	}
	w.current = names[idx]
	w.out.Connect(send)
	debug.Log("midi", "port connected: %s", w.current)
	w.emit(PortEvent{Type: PortConnected, Name: w.current})
}

func openSender(name string) (func(gomidi.Message) error, error) {
	port, err := FindOutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port.String(), err)
	}
	return send, nil
}
