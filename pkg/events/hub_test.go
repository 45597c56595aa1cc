package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(BatteryLevel, BatteryLevelEvent{Level: 77, FillPercent: 58.4})

	select {
	case ev := <-ch:
		if ev.Name != BatteryLevel {
			t.Fatalf("event name = %q", ev.Name)
		}
		payload, err := DecodeAs[BatteryLevelEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if payload.Level != 77 {
			t.Errorf("level = %d, want 77", payload.Level)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHubDropsWhenSlow(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	for i := 0; i < subscriberQueueLen+5; i++ {
		h.Publish(WidgetVisibility, WidgetVisibilityEvent{Visible: i%2 == 0})
	}
	if len(ch) != subscriberQueueLen {
		t.Errorf("queued %d events, want %d", len(ch), subscriberQueueLen)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", h.Subscribers())
	}

	h.Close()
	if _, ok := <-ch; ok {
		t.Errorf("subscription still open after Close")
	}
	if _, ok := <-h.Subscribe(); ok {
		t.Errorf("subscription after Close is open")
	}

	// Publishing after close is a no-op.
	h.Publish(BatteryLevel, BatteryLevelEvent{})
}

func TestDecodeAsEmpty(t *testing.T) {
	v, err := DecodeAs[BatteryChargingEvent](Event{Name: BatteryCharging})
	if err != nil || v.Charging || v.Label != "" {
		t.Errorf("DecodeAs(empty) = (%+v, %v)", v, err)
	}
}
