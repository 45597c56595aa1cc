package instance

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// registry maps channel names to their handlers. It is shared by every
// transport.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

func (r *registry) add(channel string, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[channel] = append(r.handlers[channel], h)
	r.mu.Unlock()
}

// dispatch delivers payload to every handler of channel. Messages for
// channels nobody listens on are dropped.
func (r *registry) dispatch(channel, payload string) {
	r.mu.RLock()
	hs := r.handlers[channel]
	r.mu.RUnlock()

	if len(hs) == 0 {
		logrus.WithField("channel", channel).Trace("no handler for inbound message, dropped")
		return
	}
	for _, h := range hs {
		h(payload)
	}
}

// dispatchFrame splits a raw "<channel> <payload>" frame and dispatches it.
func (r *registry) dispatchFrame(frame string) {
	channel, payload, ok := SplitFrame(frame)
	if !ok {
		logrus.WithField("frame", frame).Trace("malformed inbound frame, dropped")
		return
	}
	r.dispatch(channel, payload)
}
