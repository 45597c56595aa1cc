package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Transport kinds understood by instance.New.
const (
	TransportLoopback  = "loopback"
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
)

// Label keys for the overlay widget.
const (
	LabelTitle       = "BATTERY_TITLE"
	LabelChargeLevel = "BATTERY_CHARGE_LEVEL"
	LabelChargeState = "BATTERY_CHARGE_STATE"
	LabelCharging    = "BATTERY_CHARGING"
	LabelDischarging = "BATTERY_DISCHARGING"
)

// Transport describes how to reach the device instance.
type Transport struct {
	Kind       string `json:"kind,omitempty"`
	URL        string `json:"url,omitempty"`
	Broker     string `json:"broker,omitempty"`
	ClientID   string `json:"clientID,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	TopicRoot  string `json:"topicRoot,omitempty"`
	InstanceID string `json:"instanceID,omitempty"`
}

type Config interface {
	DefaultLevel() int
	SendThrottle() time.Duration
	Toolbar() bool
	Transport() Transport
	Labels() map[string]string
	ListenAddr() string

	SetDefaultLevel(int)
	SetSendThrottle(time.Duration)
	SetToolbar(bool)
	SetTransport(Transport)
	SetLabel(key, value string)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
