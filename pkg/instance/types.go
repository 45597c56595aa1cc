package instance

import (
	"context"
	"errors"
	"strings"
)

// BatteryChannel is the name of the channel carrying battery state.
const BatteryChannel = "battery"

// ErrClosed is returned when sending on a channel that has been closed.
var ErrClosed = errors.New("instance channel closed")

// Event is the outbound envelope delivered to an instance.
type Event struct {
	Channel  string   `json:"channel"`
	Messages []string `json:"messages"`
}

// Handler receives the text payload of an inbound message.
type Handler func(message string)

// Channel is a bidirectional message transport to a device instance.
//
// Handlers registered for a channel are invoked in delivery order, one
// message at a time.
type Channel interface {
	RegisterEventCallback(channel string, h Handler)
	SendEvent(ctx context.Context, ev Event) error
	Close() error
}

// SplitFrame separates an inbound text frame "<channel> <payload>" into
// its channel name and payload. ok is false when the frame has no payload.
func SplitFrame(frame string) (channel, payload string, ok bool) {
	frame = strings.TrimLeft(frame, " \t\r\n")
	channel, payload, found := strings.Cut(frame, " ")
	if !found || channel == "" {
		return "", "", false
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", "", false
	}
	return channel, payload, true
}
