package simulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/instance"
)

const DefaultReportSchedule = "@every 10s"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // device players connect from any console origin
	},
}

// Server exposes a simulated instance over websocket. Clients receive
// "battery <report>" frames and send JSON instance.Event envelopes.
type Server struct {
	battery *Battery
	cron    *cron.Cron

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]*sync.Mutex // per-connection write lock
}

// NewServer creates a simulator reporting on schedule (a cron expression
// or descriptor such as "@every 10s"). An empty schedule disables
// periodic reports.
func NewServer(b *Battery, schedule string) (*Server, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	s := &Server{
		battery: b,
		cron:    cron.New(cron.WithParser(parser)),
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}

	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, s.Broadcast); err != nil {
			return nil, pkgerrors.Wrapf(err, "invalid report schedule %q", schedule)
		}
	}

	return s, nil
}

// Handler returns the HTTP handler serving the websocket on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start starts periodic reports.
func (s *Server) Start() {
	s.cron.Start()
}

// Stop stops periodic reports and disconnects every client.
func (s *Server) Stop() {
	<-s.cron.Stop().Done()

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		_ = conn.Close()
		delete(s.clients, conn)
	}
}

// Broadcast pushes the current report to every client.
func (s *Server) Broadcast() {
	frame := []byte(instance.BatteryChannel + " " + s.battery.Report())

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for conn, wmu := range s.clients {
		if err := writeFrame(conn, wmu, frame); err != nil {
			logrus.WithError(err).Debug("dropping simulator client")
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}

func writeFrame(conn *websocket.Conn, wmu *sync.Mutex, frame []byte) error {
	wmu.Lock()
	defer wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}
	defer conn.Close()

	wmu := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = wmu
	s.clientsMu.Unlock()

	logrus.WithField("remote", r.RemoteAddr).Info("simulator client connected")

	// Send initial state
	frame := []byte(instance.BatteryChannel + " " + s.battery.Report())
	if err := writeFrame(conn, wmu, frame); err != nil {
		logrus.WithError(err).Warn("failed to send initial report")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleEnvelope(data)
	}

	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()

	logrus.WithField("remote", r.RemoteAddr).Info("simulator client disconnected")
}

func (s *Server) handleEnvelope(data []byte) {
	var ev instance.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		logrus.WithError(err).Warn("ignoring malformed envelope")
		return
	}
	if !s.ApplyEvent(ev) {
		return
	}
	s.Broadcast()
}

// ApplyEvent applies every directive of a battery event and reports
// whether anything was applied.
func (s *Server) ApplyEvent(ev instance.Event) bool {
	if ev.Channel != instance.BatteryChannel {
		logrus.WithField("channel", ev.Channel).Debug("ignoring event for other channel")
		return false
	}

	applied := false
	for _, m := range ev.Messages {
		if err := s.battery.Apply(m); err != nil {
			logrus.WithError(err).Warn("ignoring directive")
			continue
		}
		applied = true
	}

	if applied {
		logrus.WithFields(logrus.Fields{
			"level": s.battery.Level(),
			"mode":  s.battery.Mode(),
		}).Info("simulated battery updated")
	}
	return applied
}

// Attach makes a loopback channel talk to this simulator: every sent
// event is applied and answered with a report.
func (s *Server) Attach(l *instance.Loopback) {
	l.OnSend = func(ev instance.Event) {
		if s.ApplyEvent(ev) {
			l.DeliverTo(instance.BatteryChannel, s.battery.Report())
		}
	}
}
