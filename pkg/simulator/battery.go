package simulator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
)

// Battery is the simulated battery of a device instance.
type Battery struct {
	mu       sync.Mutex
	level    int
	charging bool
}

func NewBattery(level int, charging bool) *Battery {
	return &Battery{level: clamp(level), charging: charging}
}

// FromHost seeds a simulated battery from the first battery of this
// machine.
func FromHost() (*Battery, error) {
	batteries, err := battery.GetAll()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read host batteries")
	}
	if len(batteries) == 0 {
		return nil, pkgerrors.New("no batteries found")
	}

	bat := batteries[0]
	level := 0
	if bat.Full > 0 {
		level = int(bat.Current / bat.Full * 100)
	}
	charging := bat.State == battery.Charging || bat.State == battery.Full

	return NewBattery(level, charging), nil
}

// Apply executes one "set state ..." directive.
func (b *Battery) Apply(directive string) error {
	fields := strings.Fields(directive)
	if len(fields) != 4 || fields[0] != "set" || fields[1] != "state" {
		return pkgerrors.Errorf("unknown directive %q", directive)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch fields[2] {
	case "level":
		l, err := strconv.Atoi(fields[3])
		if err != nil {
			return pkgerrors.Wrapf(err, "invalid level in %q", directive)
		}
		b.level = clamp(l)
	case "status":
		switch fields[3] {
		case "charging":
			b.charging = true
		case "discharging":
			b.charging = false
		default:
			return pkgerrors.Errorf("invalid status in %q", directive)
		}
	default:
		return pkgerrors.Errorf("unknown state %q", fields[2])
	}
	return nil
}

// Mode is "full", "charging" or "discharging".
func (b *Battery) Mode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modeLocked()
}

func (b *Battery) modeLocked() string {
	switch {
	case b.charging && b.level >= 100:
		return "full"
	case b.charging:
		return "charging"
	default:
		return "discharging"
	}
}

// Report is the status line pushed on the battery channel.
func (b *Battery) Report() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("state mode %s %d", b.modeLocked(), b.level)
}

// Level returns the current level.
func (b *Battery) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}

// Charging reports whether the battery is charging.
func (b *Battery) Charging() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.charging
}

func clamp(l int) int {
	if l < 0 {
		return 0
	}
	if l > 100 {
		return 100
	}
	return l
}
