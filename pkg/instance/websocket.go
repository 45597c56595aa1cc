package instance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned when sending while the websocket is down.
var ErrNotConnected = errors.New("instance channel not connected")

const (
	defaultReconnectInterval = 3 * time.Second
	writeTimeout             = 5 * time.Second
)

var _ Channel = &WebSocket{}

// WebSocket is a Channel backed by a websocket connection to the instance.
// Inbound text frames are "<channel> <payload>"; outbound events are JSON.
type WebSocket struct {
	*registry

	url               string
	header            http.Header
	dialer            *websocket.Dialer
	reconnectInterval time.Duration

	mu     sync.Mutex // guards conn and writes
	conn   *websocket.Conn
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWebSocket returns a websocket channel for url. Call Start to connect.
func NewWebSocket(url string, header http.Header) *WebSocket {
	return &WebSocket{
		registry:          newRegistry(),
		url:               url,
		header:            header,
		dialer:            websocket.DefaultDialer,
		reconnectInterval: defaultReconnectInterval,
		stopCh:            make(chan struct{}),
		doneCh:            make(chan struct{}),
	}
}

func (w *WebSocket) RegisterEventCallback(channel string, h Handler) {
	w.add(channel, h)
}

// Start connects in the background and keeps reconnecting until Close.
func (w *WebSocket) Start() {
	go w.run()
}

func (w *WebSocket) run() {
	defer close(w.doneCh)

	for {
		err := w.connectAndRead()
		if err != nil {
			logrus.WithError(err).WithField("url", w.url).Warn("instance websocket disconnected")
		}

		select {
		case <-w.stopCh:
			return
		case <-time.After(w.reconnectInterval):
		}
	}
}

func (w *WebSocket) connectAndRead() error {
	conn, _, err := w.dialer.Dial(w.url, w.header)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to dial %s", w.url)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	w.conn = conn
	w.mu.Unlock()

	logrus.WithField("url", w.url).Info("instance websocket connected")

	defer func() {
		w.mu.Lock()
		if w.conn == conn {
			w.conn = nil
		}
		w.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopCh:
				return nil
			default:
			}
			return pkgerrors.Wrap(err, "failed to read from instance")
		}
		if typ != websocket.TextMessage {
			continue
		}
		w.dispatchFrame(string(data))
	}
}

func (w *WebSocket) SendEvent(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal event")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.conn == nil {
		return ErrNotConnected
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return pkgerrors.Wrapf(err, "failed to send event on channel %s", ev.Channel)
	}
	return nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	conn := w.conn
	w.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	return nil
}

// Done is closed once the loop started by Start has exited after Close.
func (w *WebSocket) Done() <-chan struct{} {
	return w.doneCh
}
