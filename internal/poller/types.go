// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/regbridge/internal/device"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// Snapshot is always set. Registers that could not be read are missing
	// from Snapshot.Registers and their fields are in Snapshot.Errors.
	Snapshot *device.Snapshot

	Err error // non-nil means the poll cycle read nothing
}

// Failed returns the number of fields the poll could not read.
func (r PollResult) Failed() int {
	if r.Snapshot == nil {
		return 0
	}
	return r.Snapshot.Failed()
}
