package instance

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttDisconnectMs   = 1000
)

// MQTTOptions configures an MQTT channel.
type MQTTOptions struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	TopicRoot  string // e.g. "instances"
	InstanceID string
}

// EventsTopic is the wildcard subscription for inbound channel messages.
func (o MQTTOptions) EventsTopic() string {
	return o.TopicRoot + "/" + o.InstanceID + "/events/#"
}

// CommandsTopic is where outbound envelopes are published.
func (o MQTTOptions) CommandsTopic() string {
	return o.TopicRoot + "/" + o.InstanceID + "/commands"
}

var _ Channel = &MQTT{}

// MQTT is a Channel carried over an MQTT broker. The last level of an
// inbound topic names the channel and the payload is the message text.
type MQTT struct {
	*registry

	opts   MQTTOptions
	client mqtt.Client

	mu     sync.Mutex
	closed bool
}

// NewMQTT builds the client without connecting. Call Connect afterwards.
func NewMQTT(o MQTTOptions) *MQTT {
	m := &MQTT{
		registry: newRegistry(),
		opts:     o,
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(o.Broker)
	co.SetClientID(o.ClientID)
	if o.Username != "" {
		co.SetUsername(o.Username)
		co.SetPassword(o.Password)
	}
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)
	co.SetKeepAlive(30 * time.Second)
	co.SetOrderMatters(true)

	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logrus.WithError(err).WithField("broker", o.Broker).Warn("mqtt connection lost")
	})
	// Resubscribe on every (re)connect since the session is clean.
	co.SetOnConnectHandler(func(c mqtt.Client) {
		logrus.WithField("broker", o.Broker).Info("connected to mqtt broker")
		topic := o.EventsTopic()
		if token := c.Subscribe(topic, mqttQoS, m.onMessage); token.Wait() && token.Error() != nil {
			logrus.WithError(token.Error()).Errorf("failed to subscribe to %s", topic)
			return
		}
		logrus.Debugf("subscribed to %s", topic)
	})

	m.client = mqtt.NewClient(co)
	return m
}

// Connect connects to the broker.
func (m *MQTT) Connect() error {
	token := m.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return pkgerrors.Errorf("timed out connecting to mqtt broker %s", m.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return pkgerrors.Wrapf(err, "failed to connect to mqtt broker %s", m.opts.Broker)
	}
	return nil
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	channel := channelFromTopic(msg.Topic())
	if channel == "" {
		return
	}
	m.dispatch(channel, strings.TrimSpace(string(msg.Payload())))
}

func channelFromTopic(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	return topic[i+1:]
}

func (m *MQTT) RegisterEventCallback(channel string, h Handler) {
	m.add(channel, h)
}

func (m *MQTT) SendEvent(ctx context.Context, ev Event) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal event")
	}

	token := m.client.Publish(m.opts.CommandsTopic(), mqttQoS, false, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return pkgerrors.Wrapf(err, "failed to publish event on channel %s", ev.Channel)
	}
	return nil
}

func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.client.IsConnected() {
		m.client.Disconnect(mqttDisconnectMs)
	}
	return nil
}
