package instance

import (
	"context"
	"sync"
)

var _ Channel = &Loopback{}

// Loopback is an in-memory Channel. Inbound frames are injected with
// Deliver and dispatched synchronously; outbound events are recorded and
// optionally forwarded to OnSend.
type Loopback struct {
	*registry

	// OnSend, if set, is called with every outbound event.
	OnSend func(ev Event)

	mu     sync.Mutex
	sent   []Event
	closed bool
}

func NewLoopback() *Loopback {
	return &Loopback{registry: newRegistry()}
}

func (l *Loopback) RegisterEventCallback(channel string, h Handler) {
	l.add(channel, h)
}

func (l *Loopback) SendEvent(_ context.Context, ev Event) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	msgs := make([]string, len(ev.Messages))
	copy(msgs, ev.Messages)
	l.sent = append(l.sent, Event{Channel: ev.Channel, Messages: msgs})
	onSend := l.OnSend
	l.mu.Unlock()

	if onSend != nil {
		onSend(ev)
	}
	return nil
}

// Deliver injects an inbound "<channel> <payload>" frame.
func (l *Loopback) Deliver(frame string) {
	l.dispatchFrame(frame)
}

// DeliverTo injects a payload on a named channel.
func (l *Loopback) DeliverTo(channel, payload string) {
	l.dispatch(channel, payload)
}

// Sent returns a copy of every event sent so far.
func (l *Loopback) Sent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ret := make([]Event, len(l.sent))
	copy(ret, l.sent)
	return ret
}

// Reset forgets recorded events.
func (l *Loopback) Reset() {
	l.mu.Lock()
	l.sent = nil
	l.mu.Unlock()
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}
