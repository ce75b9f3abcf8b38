// internal/writer/types.go
package writer

import "github.com/tamzrod/regbridge/internal/poller"

// Target is one Modbus TCP mirror of a device's registers.
type Target struct {
	Endpoint string
	UnitID   uint8
	Offset   uint16 // holding register of command code 0
}

// StatusPlan places one device status block on one endpoint.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one device.
type Plan struct {
	UnitID  string
	Targets []Target
	Status  []StatusPlan // empty: status disabled
}

// Writer writes poll snapshots into targets.
type Writer interface {
	Write(res poller.PollResult) error
}
