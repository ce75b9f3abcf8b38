// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/regbridge/internal/config"
)

// Build constructs a Poller for one configured device.
// The source owns the bus; the poller only drives the clock.
func Build(d cfg.DeviceConfig, source Source) (*Poller, error) {
	return New(
		Config{
			UnitID:   d.ID,
			Interval: time.Duration(d.Poll.IntervalMs) * time.Millisecond,
		},
		source,
	)
}
