// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/regbridge/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no state, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter delivers one device's status block to one endpoint.
type deviceStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
}

// multiStatusWriter fans a snapshot out to every target of a device.
type multiStatusWriter []*deviceStatusWriter

// NewDeviceStatusWriter builds a status writer if status is enabled for the
// device. If plan.Status is empty, status is disabled.
func NewDeviceStatusWriter(plan Plan, clients map[string]endpointClient) (StatusWriter, bool) {
	if len(plan.Status) == 0 {
		return nil, false
	}

	var m multiStatusWriter
	for _, sp := range plan.Status {
		m = append(m, &deviceStatusWriter{
			plan:     sp,
			cli:      clients[sp.Endpoint],
			needFull: true, // full re-assert on first successful write
		})
	}
	return m, true
}

func (m multiStatusWriter) WriteStatus(s status.Snapshot) error {
	var errs []string
	for _, sw := range m {
		if err := sw.WriteStatus(s); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)

		if err := sw.cli.WriteRegisters(unitID, baseAddr, regs); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: ep=%s full block write failed: %w", sw.plan.Endpoint, err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	slots := []struct {
		slot     uint16
		name     string
		old, now *uint16
	}{
		{status.SlotHealthCode, "health", &sw.last.Health, &s.Health},
		{status.SlotLastErrorCode, "last_error", &sw.last.LastErrorCode, &s.LastErrorCode},
		{status.SlotSecondsInError, "seconds", &sw.last.SecondsInError, &s.SecondsInError},
		{status.SlotFailedFields, "failed_fields", &sw.last.FailedFields, &s.FailedFields},
	}
	for _, sl := range slots {
		if *sl.old == *sl.now {
			continue
		}
		if err := sw.cli.WriteRegisters(unitID, baseAddr+sl.slot, []uint16{*sl.now}); err != nil {
			errs = append(errs, fmt.Sprintf("ep=%s slot%d %s write failed: %v", sw.plan.Endpoint, sl.slot, sl.name, err))
			continue
		}
		*sl.old = *sl.now
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
