package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		// The numeric input is what gets sent, so its default wins.
		DefaultLevel:       ptr.To(50),
		SendThrottleMillis: ptr.To(0),
		Toolbar:            ptr.To(true),
		ListenAddr:         ptr.To(""),
		Transport: &Transport{
			Kind:       TransportWebSocket,
			URL:        "ws://127.0.0.1:8765/ws",
			TopicRoot:  "instances",
			InstanceID: "default",
			ClientID:   "battoverlay",
		},
	}

	defaultLabels = map[string]string{
		LabelTitle:       "Battery",
		LabelChargeLevel: "Charge level",
		LabelChargeState: "State of charge",
		LabelCharging:    "Charging",
		LabelDischarging: "Discharging",
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// NewFileFromConfig wraps an existing raw config. A nil c starts from an
// empty config so every getter falls back to the defaults.
func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	DefaultLevel       *int              `json:"defaultLevel,omitempty"`
	SendThrottleMillis *int              `json:"sendThrottleMillis,omitempty"`
	Toolbar            *bool             `json:"toolbar,omitempty"`
	ListenAddr         *string           `json:"listenAddr,omitempty"`
	Transport          *Transport        `json:"transport,omitempty"`
	Labels             map[string]string `json:"labels,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	t := c.Transport()
	t.Password = ""

	rawConfig := &RawFileConfig{
		DefaultLevel:       ptr.To(c.DefaultLevel()),
		SendThrottleMillis: ptr.To(int(c.SendThrottle() / time.Millisecond)),
		Toolbar:            ptr.To(c.Toolbar()),
		ListenAddr:         ptr.To(c.ListenAddr()),
		Transport:          &t,
		Labels:             c.Labels(),
	}

	return rawConfig, nil
}

func (f *File) DefaultLevel() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	level := ptr.Deref(f.c.DefaultLevel, *defaultFileConfig.DefaultLevel)
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

func (f *File) SendThrottle() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ms := ptr.Deref(f.c.SendThrottleMillis, *defaultFileConfig.SendThrottleMillis)
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *File) Toolbar() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Toolbar, *defaultFileConfig.Toolbar)
}

func (f *File) ListenAddr() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ListenAddr, *defaultFileConfig.ListenAddr)
}

// Transport returns the configured transport, with empty fields filled
// from the defaults.
func (f *File) Transport() Transport {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	def := *defaultFileConfig.Transport
	if f.c.Transport == nil {
		return def
	}

	t := *f.c.Transport
	if t.Kind == "" {
		t.Kind = def.Kind
	}
	if t.URL == "" && t.Kind == TransportWebSocket {
		t.URL = def.URL
	}
	if t.TopicRoot == "" {
		t.TopicRoot = def.TopicRoot
	}
	if t.InstanceID == "" {
		t.InstanceID = def.InstanceID
	}
	if t.ClientID == "" {
		t.ClientID = def.ClientID
	}
	return t
}

// Labels returns the widget labels merged over the built-in defaults.
func (f *File) Labels() map[string]string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ret := make(map[string]string, len(defaultLabels))
	for k, v := range defaultLabels {
		ret[k] = v
	}
	for k, v := range f.c.Labels {
		if v != "" {
			ret[k] = v
		}
	}
	return ret
}

func (f *File) SetDefaultLevel(i int) {
	if f.c == nil {
		panic("config is nil")
	}

	if i < 0 || i > 100 {
		panic("default level must be between 0 and 100")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DefaultLevel = &i
}

func (f *File) SetSendThrottle(d time.Duration) {
	if f.c == nil {
		panic("config is nil")
	}

	ms := int(d / time.Millisecond)
	if ms < 0 {
		ms = 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SendThrottleMillis = &ms
}

func (f *File) SetToolbar(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Toolbar = &b
}

func (f *File) SetTransport(t Transport) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Transport = &t
}

func (f *File) SetLabel(key, value string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.c.Labels == nil {
		f.c.Labels = make(map[string]string)
	}
	f.c.Labels[key] = value
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	t := f.Transport()

	return logrus.Fields{
		"defaultLevel":  f.DefaultLevel(),
		"sendThrottle":  f.SendThrottle().String(),
		"toolbar":       f.Toolbar(),
		"listenAddr":    f.ListenAddr(),
		"transportKind": t.Kind,
		"transportURL":  t.URL,
		"broker":        t.Broker,
		"instanceID":    t.InstanceID,
	}
}
