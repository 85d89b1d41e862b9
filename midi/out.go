package midi

import (
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-pianoroll/debug"
	"go-pianoroll/sequencer"
)

// DefaultVelocity is used for every note-on
const DefaultVelocity = 100

// Out sends note onsets to a MIDI port: note-on at the trigger, note-off
// after the trigger's duration
type Out struct {
	send     func(gomidi.Message) error
	channel  uint8 // 0-based
	velocity uint8

	mu      sync.Mutex
	pending map[uint8]*time.Timer // key -> scheduled note-off
	closed  bool
}

// NewOut wraps a sender (nil until a port connects). channel is 1-16.
func NewOut(send func(gomidi.Message) error, channel int) *Out {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	return &Out{
		send:     send,
		channel:  uint8(channel - 1),
		velocity: DefaultVelocity,
		pending:  make(map[uint8]*time.Timer),
	}
}

// Connect swaps in a new sender (port replugged)
func (o *Out) Connect(send func(gomidi.Message) error) {
	o.mu.Lock()
	o.send = send
	o.mu.Unlock()
}

// Disconnect drops sounding notes and the sender; triggers become no-ops
func (o *Out) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, t := range o.pending {
		t.Stop()
		delete(o.pending, key)
	}
	o.send = nil
}

// Trigger plays a note onset
func (o *Out) Trigger(ev sequencer.Trigger) {
	if ev.Midi < 0 || ev.Midi > 127 {
		return
	}
	key := uint8(ev.Midi)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.send == nil {
		return
	}

	// retrigger: end the sounding note first so its late note-off can't cut this one
	if t, ok := o.pending[key]; ok {
		t.Stop()
		o.sendLocked(gomidi.NoteOff(o.channel, key))
	}

	o.sendLocked(gomidi.NoteOn(o.channel, key, o.velocity))
	var timer *time.Timer
	timer = time.AfterFunc(ev.Duration, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.pending[key] != timer {
			return
		}
		delete(o.pending, key)
		o.sendLocked(gomidi.NoteOff(o.channel, key))
	})
	o.pending[key] = timer
}

func (o *Out) sendLocked(msg gomidi.Message) {
	if o.send == nil {
		return
	}
	if err := o.send(msg); err != nil {
		debug.Log("midi", "send %s: %v", msg, err)
	}
}

// AllOff releases every sounding note
func (o *Out) AllOff() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, t := range o.pending {
		t.Stop()
		o.sendLocked(gomidi.NoteOff(o.channel, key))
		delete(o.pending, key)
	}
}

// Close releases sounding notes and stops sending
func (o *Out) Close() {
	o.AllOff()
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}
