package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/battery"
	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/overlay"
	"github.com/charlie0129/battoverlay/pkg/version"
)

// Telemetry describes the inbound battery message stream.
type Telemetry struct {
	Live              bool      `json:"live"`
	TotalMessages     uint64    `json:"totalMessages"`
	MessagesLastMin   int       `json:"messagesLastMinute"`
	ContinuousLastMin int       `json:"continuousLastMinute"`
	LastMessageAt     time.Time `json:"lastMessageAt"`
	Subscribers       int       `json:"subscribers"`
}

func (d *Daemon) getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.widget.Snapshot())
}

// readLevel accepts a JSON number or a JSON string, the way a numeric
// input hands over its raw text.
func readLevel(c *gin.Context) (string, error) {
	b, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	raw := strings.TrimSpace(string(b))

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return "", fmt.Errorf("invalid level %s: %w", raw, err)
		}
		return s, nil
	}
	return raw, nil
}

func (d *Daemon) setLevel(c *gin.Context) {
	v, err := readLevel(c)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	level, err := d.sync.CommitLevel(v)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, battery.ErrInvalidLevel) {
			status = http.StatusBadRequest
		}
		err = fmt.Errorf("%w, got %q", err, v)
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	logrus.Infof("set battery level to %d%%", level)

	c.IndentedJSON(http.StatusCreated, d.widget.Snapshot())
}

func (d *Daemon) previewLevel(c *gin.Context) {
	v, err := readLevel(c)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if _, err := d.sync.PreviewLevel(v); err != nil {
		err = fmt.Errorf("%w, got %q", err, v)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusOK, d.widget.Snapshot())
}

func (d *Daemon) setCharging(c *gin.Context) {
	var charging bool
	if err := c.BindJSON(&charging); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if d.sync.SetCharging(charging) {
		logrus.Infof("set charging to %t", charging)
	} else {
		logrus.Debugf("charging already %t, nothing sent", charging)
	}

	c.IndentedJSON(http.StatusCreated, d.widget.Snapshot())
}

func (d *Daemon) toggleWidget(c *gin.Context) {
	visible, err := d.widget.Toggle()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, overlay.ErrNoToolbar) {
			status = http.StatusConflict
		}
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	c.IndentedJSON(http.StatusOK, visible)
}

func (d *Daemon) streamEvents(c *gin.Context) {
	ch := d.hub.Subscribe()
	defer d.hub.Unsubscribe(ch)

	// Start every stream with the full picture.
	snapshot, err := json.Marshal(d.widget.Snapshot())
	if err == nil {
		c.SSEvent("snapshot", string(snapshot))
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (d *Daemon) getTelemetry(c *gin.Context) {
	t := Telemetry{
		Live:              d.recorder.Live(),
		TotalMessages:     d.recorder.Total(),
		MessagesLastMin:   d.recorder.CountIn(time.Minute),
		ContinuousLastMin: d.recorder.GetContinuousRecordsIn(time.Minute),
		LastMessageAt:     d.recorder.Last(),
		Subscribers:       d.hub.Subscribers(),
	}
	c.IndentedJSON(http.StatusOK, t)
}

func (d *Daemon) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(d.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
