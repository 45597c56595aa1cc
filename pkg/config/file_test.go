package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile on missing file: %v", err)
	}

	if got := f.DefaultLevel(); got != 50 {
		t.Errorf("DefaultLevel() = %d, want 50", got)
	}
	if got := f.SendThrottle(); got != 0 {
		t.Errorf("SendThrottle() = %v, want 0", got)
	}
	if !f.Toolbar() {
		t.Errorf("Toolbar() = false, want true")
	}
	if got := f.Transport().Kind; got != TransportWebSocket {
		t.Errorf("Transport().Kind = %q, want %q", got, TransportWebSocket)
	}
	if got := f.Labels()[LabelDischarging]; got != "Discharging" {
		t.Errorf("discharging label = %q", got)
	}
}

func TestFileLoadEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(p, []byte("  \n"), 0600); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile on empty file: %v", err)
	}
	if got := f.DefaultLevel(); got != 50 {
		t.Errorf("DefaultLevel() = %d, want 50", got)
	}
}

func TestFileLoadInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFile(p); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestFileSaveAndReload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "conf.json")
	f := NewFileFromConfig(nil, p)

	f.SetDefaultLevel(20)
	f.SetSendThrottle(250 * time.Millisecond)
	f.SetToolbar(false)
	f.SetTransport(Transport{Kind: TransportMQTT, Broker: "tcp://broker:1883", InstanceID: "dev-1"})
	f.SetLabel(LabelCharging, "En charge")

	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if got := g.DefaultLevel(); got != 20 {
		t.Errorf("DefaultLevel() = %d, want 20", got)
	}
	if got := g.SendThrottle(); got != 250*time.Millisecond {
		t.Errorf("SendThrottle() = %v, want 250ms", got)
	}
	if g.Toolbar() {
		t.Errorf("Toolbar() = true, want false")
	}

	tr := g.Transport()
	if tr.Kind != TransportMQTT || tr.Broker != "tcp://broker:1883" || tr.InstanceID != "dev-1" {
		t.Errorf("unexpected transport %+v", tr)
	}
	if tr.TopicRoot != "instances" {
		t.Errorf("TopicRoot = %q, want default", tr.TopicRoot)
	}

	labels := g.Labels()
	if labels[LabelCharging] != "En charge" {
		t.Errorf("charging label = %q", labels[LabelCharging])
	}
	if labels[LabelTitle] != "Battery" {
		t.Errorf("title label = %q, want default", labels[LabelTitle])
	}
}

func TestDefaultLevelClamped(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "below range", in: -5, want: 0},
		{name: "in range", in: 42, want: 42},
		{name: "above range", in: 150, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			f := NewFileFromConfig(&RawFileConfig{DefaultLevel: &in}, "")
			if got := f.DefaultLevel(); got != tt.want {
				t.Errorf("DefaultLevel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewRawFileConfigHidesPassword(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	f.SetTransport(Transport{Kind: TransportMQTT, Password: "secret"})

	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Transport.Password != "" {
		t.Errorf("password leaked: %q", raw.Transport.Password)
	}
	if f.Transport().Password != "secret" {
		t.Errorf("source config was modified")
	}
}
