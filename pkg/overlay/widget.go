package overlay

import (
	"errors"
	"sync"
	"time"

	"github.com/charlie0129/battoverlay/pkg/battery"
	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/events"
)

// ErrNoToolbar is returned by Toggle when the host console has no toolbar
// to hold the widget button.
var ErrNoToolbar = errors.New("no toolbar to attach the battery button to")

var _ battery.View = &Widget{}

// Snapshot is what the host console renders.
type Snapshot struct {
	Title         string            `json:"title"`
	Level         int               `json:"level"`
	SliderValue   int               `json:"sliderValue"`
	InputValue    int               `json:"inputValue"`
	FillPercent   float64           `json:"fillPercent"`
	Charging      *bool             `json:"charging"`
	ChargingLabel string            `json:"chargingLabel"`
	Visible       bool              `json:"visible"`
	ToolbarButton bool              `json:"toolbarButton"`
	Labels        map[string]string `json:"labels"`
}

// Widget is the view model of the battery overlay: a toolbar button and a
// modal with a level slider, a numeric input and a charging switch.
type Widget struct {
	hub *events.Hub

	mu       sync.RWMutex
	labels   map[string]string
	toolbar  bool
	visible  bool
	slider   int
	input    int
	fill     float64
	charging *bool
}

// New creates the widget. The toolbar button is only created when the
// host has a toolbar.
func New(hub *events.Hub, labels map[string]string, toolbar bool) *Widget {
	return &Widget{
		hub:     hub,
		labels:  copyLabels(labels),
		toolbar: toolbar,
	}
}

func (w *Widget) SetLevel(level int, fill float64) {
	w.mu.Lock()
	w.slider = level
	w.input = level
	w.fill = fill
	w.mu.Unlock()

	w.hub.Publish(events.BatteryLevel, events.BatteryLevelEvent{
		Level:       level,
		FillPercent: fill,
		Ts:          time.Now().Unix(),
	})
}

func (w *Widget) SetChargingVisual(charging bool) {
	w.mu.Lock()
	w.charging = &charging
	label := w.chargingLabelLocked()
	w.mu.Unlock()

	w.hub.Publish(events.BatteryCharging, events.BatteryChargingEvent{
		Charging: charging,
		Label:    label,
		Ts:       time.Now().Unix(),
	})
}

// Toggle shows or hides the modal, as the toolbar button does.
func (w *Widget) Toggle() (bool, error) {
	w.mu.Lock()
	if !w.toolbar {
		w.mu.Unlock()
		return false, ErrNoToolbar
	}
	w.visible = !w.visible
	visible := w.visible
	w.mu.Unlock()

	w.hub.Publish(events.WidgetVisibility, events.WidgetVisibilityEvent{
		Visible: visible,
		Ts:      time.Now().Unix(),
	})
	return visible, nil
}

// SetLabels replaces the translated labels, e.g. after a config reload.
func (w *Widget) SetLabels(labels map[string]string) {
	w.mu.Lock()
	w.labels = copyLabels(labels)
	w.mu.Unlock()
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		Title:         w.label(config.LabelTitle, "Battery"),
		Level:         w.input,
		SliderValue:   w.slider,
		InputValue:    w.input,
		FillPercent:   w.fill,
		ChargingLabel: w.chargingLabelLocked(),
		Visible:       w.visible,
		ToolbarButton: w.toolbar,
		Labels:        copyLabels(w.labels),
	}
	if w.charging != nil {
		c := *w.charging
		s.Charging = &c
	}
	return s
}

// An unknown charging state reads as discharging, like the switch's
// initial "off" position.
func (w *Widget) chargingLabelLocked() string {
	if w.charging != nil && *w.charging {
		return w.label(config.LabelCharging, "Charging")
	}
	return w.label(config.LabelDischarging, "Discharging")
}

func (w *Widget) label(key, def string) string {
	if v, ok := w.labels[key]; ok && v != "" {
		return v
	}
	return def
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
