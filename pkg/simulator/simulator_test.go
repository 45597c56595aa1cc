package simulator

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charlie0129/battoverlay/pkg/battery"
	"github.com/charlie0129/battoverlay/pkg/instance"
)

func TestBatteryApply(t *testing.T) {
	tests := []struct {
		name         string
		directive    string
		wantErr      bool
		wantLevel    int
		wantCharging bool
	}{
		{"level", "set state level 80", false, 80, false},
		{"level clamped", "set state level 140", false, 100, false},
		{"negative clamped", "set state level -3", false, 0, false},
		{"charging", "set state status charging", false, 50, true},
		{"discharging", "set state status discharging", false, 50, false},
		{"bad level", "set state level abc", true, 50, false},
		{"bad status", "set state status idle", true, 50, false},
		{"unknown state", "set state volume 3", true, 50, false},
		{"garbage", "hello", true, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBattery(50, false)
			err := b.Apply(tt.directive)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply(%q) error = %v, wantErr %v", tt.directive, err, tt.wantErr)
			}
			if b.Level() != tt.wantLevel || b.Charging() != tt.wantCharging {
				t.Errorf("after Apply(%q) = (%d, %v), want (%d, %v)",
					tt.directive, b.Level(), b.Charging(), tt.wantLevel, tt.wantCharging)
			}
		})
	}
}

func TestBatteryReport(t *testing.T) {
	tests := []struct {
		level    int
		charging bool
		want     string
	}{
		{40, false, "state mode discharging 40"},
		{40, true, "state mode charging 40"},
		{100, true, "state mode full 100"},
		{100, false, "state mode discharging 100"},
	}
	for _, tt := range tests {
		if got := NewBattery(tt.level, tt.charging).Report(); got != tt.want {
			t.Errorf("Report(%d, %v) = %q, want %q", tt.level, tt.charging, got, tt.want)
		}
	}
}

func TestNewServerRejectsBadSchedule(t *testing.T) {
	if _, err := NewServer(NewBattery(50, false), "definitely not cron"); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewServer(NewBattery(50, false), ""); err != nil {
		t.Errorf("empty schedule: %v", err)
	}
}

type nopView struct{}

func (nopView) SetLevel(int, float64) {}
func (nopView) SetChargingVisual(bool) {}

func TestAttachLoopback(t *testing.T) {
	srv, err := NewServer(NewBattery(30, false), "")
	if err != nil {
		t.Fatal(err)
	}

	lb := instance.NewLoopback()
	srv.Attach(lb)
	s := battery.New(lb, nopView{}, battery.Options{DefaultLevel: 50})
	defer s.Close()

	lb.DeliverTo(instance.BatteryChannel, srv.battery.Report())
	if st := s.State(); st.Level != 30 || st.IsCharging == nil || *st.IsCharging {
		t.Fatalf("state after report = %+v", st)
	}

	if _, err := s.CommitLevel("100"); err != nil {
		t.Fatal(err)
	}
	if !s.SetCharging(true) {
		t.Fatal("SetCharging(true) not sent")
	}

	if srv.battery.Level() != 100 || srv.battery.Mode() != battery.ModeFull {
		t.Errorf("simulator = (%d, %s), want (100, full)", srv.battery.Level(), srv.battery.Mode())
	}
	if st := s.State(); st.Level != 100 || !*st.IsCharging {
		t.Errorf("sync state = %+v", st)
	}
}

func TestServerWebSocket(t *testing.T) {
	srv, err := NewServer(NewBattery(25, true), "")
	if err != nil {
		t.Fatal(err)
	}
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()
	defer srv.Stop()

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	read := func() string {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	if got, want := read(), "battery state mode charging 25"; got != want {
		t.Fatalf("initial frame = %q, want %q", got, want)
	}

	if err := conn.WriteJSON(battery.Command(60, false)); err != nil {
		t.Fatal(err)
	}
	if got, want := read(), "battery state mode discharging 60"; got != want {
		t.Errorf("frame after command = %q, want %q", got, want)
	}

	// Other channels are ignored and produce no report.
	if err := conn.WriteJSON(instance.Event{Channel: "audio", Messages: []string{"set state level 1"}}); err != nil {
		t.Fatal(err)
	}
	srv.Broadcast()
	if got, want := read(), "battery state mode discharging 60"; got != want {
		t.Errorf("frame after foreign event = %q, want %q", got, want)
	}
}

func TestServerWithWebSocketChannel(t *testing.T) {
	srv, err := NewServer(NewBattery(70, false), "")
	if err != nil {
		t.Fatal(err)
	}
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()
	defer srv.Stop()

	ws := instance.NewWebSocket("ws"+strings.TrimPrefix(hs.URL, "http")+"/ws", nil)
	got := make(chan string, 4)
	ws.RegisterEventCallback(instance.BatteryChannel, func(msg string) { got <- msg })
	ws.Start()
	defer ws.Close()

	select {
	case msg := <-got:
		if msg != "state mode discharging 70" {
			t.Fatalf("first report = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report received")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := ws.SendEvent(ctx, battery.Command(12, true)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-got:
		if msg != "state mode charging 12" {
			t.Errorf("report after command = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report after command")
	}
}
