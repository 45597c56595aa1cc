package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/instance"
	"github.com/charlie0129/battoverlay/pkg/overlay"
)

func newTestDaemon(t *testing.T, toolbar bool) (*Daemon, *gin.Engine, *instance.Loopback) {
	t.Helper()
	conf := config.NewFileFromConfig(nil, "")
	conf.SetToolbar(toolbar)
	ch := instance.NewLoopback()
	d := New(conf, ch)
	t.Cleanup(func() { _ = d.Close() })
	return d, d.setupRoutes(), ch
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) overlay.Snapshot {
	t.Helper()
	var s overlay.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("failed to decode snapshot %q: %v", w.Body.String(), err)
	}
	return s
}

func TestGetStateDefault(t *testing.T) {
	_, r, _ := newTestDaemon(t, true)

	w := do(t, r, http.MethodGet, "/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	s := decodeSnapshot(t, w)
	if s.Level != 50 || s.Charging != nil || s.ChargingLabel != "Discharging" || s.Title != "Battery" {
		t.Errorf("unexpected default snapshot %+v", s)
	}
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantLevel int
		wantSent  int
	}{
		{name: "number", body: "30", wantCode: http.StatusCreated, wantLevel: 30, wantSent: 1},
		{name: "string", body: `"42"`, wantCode: http.StatusCreated, wantLevel: 42, wantSent: 1},
		{name: "clamped", body: "150", wantCode: http.StatusCreated, wantLevel: 100, wantSent: 1},
		{name: "not a number", body: `"abc"`, wantCode: http.StatusBadRequest, wantLevel: 50, wantSent: 0},
		{name: "broken string", body: `"abc`, wantCode: http.StatusBadRequest, wantLevel: 50, wantSent: 0},
		{name: "empty", body: "", wantCode: http.StatusBadRequest, wantLevel: 50, wantSent: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, r, ch := newTestDaemon(t, true)

			w := do(t, r, http.MethodPut, "/level", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := d.widget.Snapshot().Level; got != tt.wantLevel {
				t.Errorf("level = %d, want %d", got, tt.wantLevel)
			}
			if got := len(ch.Sent()); got != tt.wantSent {
				t.Errorf("sent %d events, want %d", got, tt.wantSent)
			}
		})
	}
}

func TestPreviewLevelDoesNotSend(t *testing.T) {
	_, r, ch := newTestDaemon(t, true)

	w := do(t, r, http.MethodPut, "/level/preview", "65")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if s := decodeSnapshot(t, w); s.InputValue != 65 {
		t.Errorf("input value = %d, want 65", s.InputValue)
	}
	if len(ch.Sent()) != 0 {
		t.Errorf("preview sent an event")
	}

	if w := do(t, r, http.MethodPut, "/level/preview", `"x"`); w.Code != http.StatusBadRequest {
		t.Errorf("bad preview status = %d", w.Code)
	}
}

func TestSetCharging(t *testing.T) {
	_, r, ch := newTestDaemon(t, true)
	ch.Deliver("battery state mode charging 77")

	w := do(t, r, http.MethodPut, "/charging", "true")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if len(ch.Sent()) != 0 {
		t.Fatalf("toggle to current value sent an event")
	}

	w = do(t, r, http.MethodPut, "/charging", "false")
	s := decodeSnapshot(t, w)
	if s.Charging == nil || *s.Charging {
		t.Errorf("charging = %v, want false", s.Charging)
	}
	sent := ch.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d events, want 1", len(sent))
	}
	if sent[0].Messages[0] != "set state level 77" || sent[0].Messages[1] != "set state status discharging" {
		t.Errorf("messages = %q", sent[0].Messages)
	}

	if w := do(t, r, http.MethodPut, "/charging", "maybe"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", w.Code)
	}
}

func TestToggleWidget(t *testing.T) {
	_, r, _ := newTestDaemon(t, true)
	w := do(t, r, http.MethodPost, "/widget/toggle", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "true" {
		t.Errorf("toggle = %d %s", w.Code, w.Body.String())
	}

	_, r, _ = newTestDaemon(t, false)
	if w := do(t, r, http.MethodPost, "/widget/toggle", ""); w.Code != http.StatusConflict {
		t.Errorf("toggle without toolbar = %d, want 409", w.Code)
	}
}

func TestTelemetryCountsInbound(t *testing.T) {
	_, r, ch := newTestDaemon(t, true)
	ch.Deliver("battery state mode charging 1")
	ch.Deliver("battery state mode charging 2")

	w := do(t, r, http.MethodGet, "/telemetry", "")
	var tel Telemetry
	if err := json.Unmarshal(w.Body.Bytes(), &tel); err != nil {
		t.Fatal(err)
	}
	if tel.TotalMessages != 2 || tel.MessagesLastMin != 2 || !tel.Live {
		t.Errorf("telemetry = %+v", tel)
	}
}

func TestGetConfig(t *testing.T) {
	_, r, _ := newTestDaemon(t, true)
	w := do(t, r, http.MethodGet, "/config", "")
	var raw config.RawFileConfig
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.DefaultLevel == nil || *raw.DefaultLevel != 50 {
		t.Errorf("defaultLevel = %v", raw.DefaultLevel)
	}
}

func TestReloadAppliesLabels(t *testing.T) {
	d, _, _ := newTestDaemon(t, true)
	d.conf.SetLabel(config.LabelTitle, "Batterie")
	// The config has no backing file, so Load resets it to empty.
	if err := d.Reload(); err != nil {
		t.Fatal(err)
	}
	if got := d.widget.Snapshot().Title; got != "Battery" {
		t.Errorf("Title = %q after reload", got)
	}
}

func TestStreamEvents(t *testing.T) {
	_, r, ch := newTestDaemon(t, true)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, sc.Err())
		return ""
	}

	waitFor("event:snapshot")
	ch.Deliver("battery state mode discharging 12")
	waitFor("event:battery.charging")
	data := waitFor("data:")
	if !strings.Contains(data, `"charging":false`) {
		t.Errorf("charging event data = %q", data)
	}
}
