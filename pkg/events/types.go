package events

import "encoding/json"

// Event name constants
const (
	BatteryLevel     = "battery.level"
	BatteryCharging  = "battery.charging"
	WidgetVisibility = "widget.visibility"
)

// Event is a generic SSE event from the daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// BatteryLevelEvent is the typed payload for battery.level.
type BatteryLevelEvent struct {
	Level       int     `json:"level"`
	FillPercent float64 `json:"fillPercent"`
	Ts          int64   `json:"ts"`
}

// BatteryChargingEvent is the typed payload for battery.charging.
type BatteryChargingEvent struct {
	Charging bool   `json:"charging"`
	Label    string `json:"label"`
	Ts       int64  `json:"ts"`
}

// WidgetVisibilityEvent is the typed payload for widget.visibility.
type WidgetVisibilityEvent struct {
	Visible bool  `json:"visible"`
	Ts      int64 `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.BatteryLevelEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Level)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
