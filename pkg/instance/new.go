package instance

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battoverlay/pkg/config"
)

// New builds and starts the channel described by t.
func New(t config.Transport) (Channel, error) {
	switch t.Kind {
	case config.TransportLoopback:
		return NewLoopback(), nil
	case config.TransportWebSocket:
		if t.URL == "" {
			return nil, pkgerrors.New("websocket transport requires a url")
		}
		ws := NewWebSocket(t.URL, nil)
		ws.Start()
		return ws, nil
	case config.TransportMQTT:
		if t.Broker == "" {
			return nil, pkgerrors.New("mqtt transport requires a broker")
		}
		m := NewMQTT(MQTTOptions{
			Broker:     t.Broker,
			ClientID:   t.ClientID,
			Username:   t.Username,
			Password:   t.Password,
			TopicRoot:  t.TopicRoot,
			InstanceID: t.InstanceID,
		})
		if err := m.Connect(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, pkgerrors.Errorf("unknown transport kind %q", t.Kind)
	}
}
