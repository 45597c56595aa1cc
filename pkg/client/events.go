package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/events"
)

const resubscribeInterval = 2 * time.Second

// SubscribeEvents streams daemon events until ctx is done, reconnecting
// when the stream drops. The returned channel is closed when ctx is done.
func (c *Client) SubscribeEvents(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, 16)

	go func() {
		defer close(out)
		for {
			if err := c.readEvents(ctx, out); err != nil {
				logrus.WithError(err).Debug("event stream ended")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeInterval):
			}
		}
	}()

	return out
}

func (c *Client) readEvents(ctx context.Context, out chan<- events.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streams never finish, so the client-wide timeout must not apply.
	hc := *c.httpClient
	hc.Timeout = 0

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return parseSSE(ctx, bufio.NewScanner(resp.Body), out)
}

// parseSSE reads "event:" / "data:" blocks separated by blank lines.
func parseSSE(ctx context.Context, sc *bufio.Scanner, out chan<- events.Event) error {
	var name string
	var data []string

	flush := func() bool {
		if name == "" && len(data) == 0 {
			return true
		}
		ev := events.Event{Name: name, Data: json.RawMessage(strings.Join(data, "\n"))}
		name, data = "", nil
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if !flush() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()
	return sc.Err()
}
