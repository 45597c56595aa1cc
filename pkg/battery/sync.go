package battery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/instance"
)

// ErrInvalidLevel is returned when a user-supplied level is not a number.
var ErrInvalidLevel = errors.New("level must be a number")

const sendTimeout = 5 * time.Second

// Charge modes reported by the instance.
const (
	ModeCharging    = "charging"
	ModeDischarging = "discharging"
	ModeFull        = "full"
)

// View is what the sync logic drives. Implementations must not call back
// into Sync.
type View interface {
	// SetLevel updates the slider, the numeric input and the fill indicator.
	SetLevel(level int, fillPercent float64)
	// SetChargingVisual updates the charging switch and its label.
	SetChargingVisual(charging bool)
}

// State is the mirrored battery state.
type State struct {
	Level int `json:"level"`
	// IsCharging is nil until the first valid message from the instance.
	IsCharging *bool `json:"isCharging"`
}

type Options struct {
	DefaultLevel int
	// Throttle coalesces outbound sends triggered within this window into
	// one trailing send. Zero sends once per trigger.
	Throttle time.Duration
}

// Sync keeps a View and a device instance in agreement about the battery
// level and charging state.
//
// Inbound messages only update the view. Outbound commands are only sent
// in response to CommitLevel and SetCharging.
type Sync struct {
	ch   instance.Channel
	view View

	mu       sync.Mutex
	state    State
	throttle time.Duration
	timer    *time.Timer
	closed   bool

	// sendMu keeps outbound events in trigger order without holding mu
	// across network writes.
	sendMu sync.Mutex
}

// New creates a Sync, renders the default level and starts listening on
// the battery channel.
func New(ch instance.Channel, view View, opts Options) *Sync {
	level, ok := ClampLevel(float64(opts.DefaultLevel))
	if !ok {
		level = MinLevel
	}

	s := &Sync{
		ch:       ch,
		view:     view,
		state:    State{Level: level},
		throttle: opts.Throttle,
	}

	view.SetLevel(level, FillPercent(level))
	ch.RegisterEventCallback(instance.BatteryChannel, s.HandleMessage)

	return s
}

// HandleMessage handles "<ignored...> <mode> <level>" from the instance.
// Messages with fewer than two tokens are dropped.
func (s *Sync) HandleMessage(message string) {
	fields := strings.Fields(message)
	if len(fields) < 2 {
		logrus.WithField("message", message).Trace("short battery message, dropped")
		return
	}
	mode, value := fields[len(fields)-2], fields[len(fields)-1]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsCharging == nil {
		charging := mode != ModeDischarging
		s.state.IsCharging = &charging
		s.view.SetChargingVisual(charging)
	}

	if !s.applyLevelLocked(value) {
		logrus.WithField("value", value).Trace("non-numeric battery level, ignored")
	}
}

// PreviewLevel reflects a level while the user is still dragging or
// typing. Nothing is sent.
func (s *Sync) PreviewLevel(value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.applyLevelLocked(value) {
		return s.state.Level, ErrInvalidLevel
	}
	return s.state.Level, nil
}

// CommitLevel applies a level the user has settled on and sends the
// resulting state. A rejected value is neither applied nor sent.
func (s *Sync) CommitLevel(value string) (int, error) {
	s.mu.Lock()
	if !s.applyLevelLocked(value) {
		level := s.state.Level
		s.mu.Unlock()
		return level, ErrInvalidLevel
	}
	level := s.state.Level
	ev := s.propagateLocked()
	s.mu.Unlock()

	s.deliver(ev)
	return level, nil
}

// SetCharging is the only way the charging flag changes after the first
// inbound message. It reports whether the value actually changed; only
// a change updates the view and sends.
func (s *Sync) SetCharging(charging bool) bool {
	s.mu.Lock()
	old := s.state.IsCharging
	if old != nil && *old == charging {
		s.mu.Unlock()
		return false
	}
	s.state.IsCharging = &charging
	s.view.SetChargingVisual(charging)
	ev := s.propagateLocked()
	s.mu.Unlock()

	s.deliver(ev)
	return true
}

// State returns a copy of the current state.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := State{Level: s.state.Level}
	if s.state.IsCharging != nil {
		c := *s.state.IsCharging
		ret.IsCharging = &c
	}
	return ret
}

// SetThrottle changes the outbound throttle window for later triggers.
func (s *Sync) SetThrottle(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.throttle = d
	s.mu.Unlock()
}

// Close drops any pending throttled send.
func (s *Sync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sync) applyLevelLocked(value string) bool {
	level, ok := ReconcileLevel(value)
	if !ok {
		return false
	}
	s.state.Level = level
	s.view.SetLevel(level, FillPercent(level))
	return true
}

// propagateLocked returns the event to send now, or nil if the send is
// deferred to the throttle timer.
func (s *Sync) propagateLocked() *instance.Event {
	if s.closed {
		return nil
	}
	if s.throttle <= 0 {
		ev := s.eventLocked()
		return &ev
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.throttle, s.flush)
	}
	return nil
}

func (s *Sync) flush() {
	s.mu.Lock()
	s.timer = nil
	if s.closed {
		s.mu.Unlock()
		return
	}
	ev := s.eventLocked()
	s.mu.Unlock()

	s.deliver(&ev)
}

func (s *Sync) eventLocked() instance.Event {
	charging := s.state.IsCharging != nil && *s.state.IsCharging
	return Command(s.state.Level, charging)
}

func (s *Sync) deliver(ev *instance.Event) {
	if ev == nil {
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := s.ch.SendEvent(ctx, *ev); err != nil {
		logrus.WithError(err).WithField("messages", ev.Messages).Warn("failed to send battery state to instance")
		return
	}
	logrus.WithField("messages", ev.Messages).Debug("sent battery state to instance")
}

// Command builds the outbound event setting both level and status.
func Command(level int, charging bool) instance.Event {
	status := ModeDischarging
	if charging {
		status = ModeCharging
	}
	return instance.Event{
		Channel: instance.BatteryChannel,
		Messages: []string{
			fmt.Sprintf("set state level %d", level),
			"set state status " + status,
		},
	}
}
