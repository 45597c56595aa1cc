package client

import (
	"encoding/json"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/overlay"
)

// Telemetry mirrors the daemon's /telemetry response.
type Telemetry struct {
	Live              bool      `json:"live"`
	TotalMessages     uint64    `json:"totalMessages"`
	MessagesLastMin   int       `json:"messagesLastMinute"`
	ContinuousLastMin int       `json:"continuousLastMinute"`
	LastMessageAt     time.Time `json:"lastMessageAt"`
	Subscribers       int       `json:"subscribers"`
}

func (c *Client) GetState() (*overlay.Snapshot, error) {
	ret, err := c.Get("/state")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery state")
	}
	return parseSnapshot(ret)
}

// SetLevel commits a level, as releasing the slider or committing the
// numeric input does. value is passed through as typed.
func (c *Client) SetLevel(value string) (*overlay.Snapshot, error) {
	ret, err := c.Put("/level", strconv.Quote(value))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set battery level")
	}
	return parseSnapshot(ret)
}

// PreviewLevel shows a level without sending it to the instance.
func (c *Client) PreviewLevel(value string) (*overlay.Snapshot, error) {
	ret, err := c.Put("/level/preview", strconv.Quote(value))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to preview battery level")
	}
	return parseSnapshot(ret)
}

func (c *Client) SetCharging(charging bool) (*overlay.Snapshot, error) {
	ret, err := c.Put("/charging", strconv.FormatBool(charging))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set charging state")
	}
	return parseSnapshot(ret)
}

// ToggleWidget clicks the toolbar button and returns the new visibility.
func (c *Client) ToggleWidget() (bool, error) {
	ret, err := c.Post("/widget/toggle", "")
	if err != nil {
		return false, pkgerrors.Wrapf(err, "failed to toggle widget")
	}
	return parseBoolResponse(ret)
}

func (c *Client) GetTelemetry() (*Telemetry, error) {
	ret, err := c.Get("/telemetry")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get telemetry")
	}

	var t Telemetry
	if err := json.Unmarshal([]byte(ret), &t); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal telemetry")
	}
	return &t, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

func parseSnapshot(resp string) (*overlay.Snapshot, error) {
	var s overlay.Snapshot
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery state")
	}
	return &s, nil
}

func parseBoolResponse(resp string) (bool, error) {
	switch resp {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, pkgerrors.Errorf("unexpected response: %s", resp)
	}
}
