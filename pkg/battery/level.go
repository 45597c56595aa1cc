package battery

import (
	"math"
	"strconv"
	"strings"
)

const (
	MinLevel = 0
	MaxLevel = 100
)

// The battery icon artwork is not filled linearly: an empty battery still
// shows a sliver and a full one stops short of the cap.
const (
	fillScale  = 0.7
	fillOffset = 4.5
)

// ReconcileLevel parses a numeric string and clamps it to [0,100].
// Fractional values are rounded. ok is false for anything that is not a
// finite number, in which case level is meaningless.
func ReconcileLevel(v string) (level int, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return ClampLevel(f)
}

// ClampLevel is ReconcileLevel for values that are already numbers.
func ClampLevel(f float64) (level int, ok bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Min(math.Max(MinLevel, f), MaxLevel)
	return int(math.Round(f)), true
}

// FillPercent maps a level to the height of the icon's fill indicator.
func FillPercent(level int) float64 {
	return float64(level)*fillScale + fillOffset
}
