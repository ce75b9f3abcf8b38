// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
)

// mirrorSpan is the number of holding registers a device may occupy on a
// target: one per possible command code.
const mirrorSpan = 256

// statusBlockSlots is the size of one device status block.
const statusBlockSlots = 20

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: empty configuration")
	}

	if err := validateBridge(cfg.Bridge); err != nil {
		return err
	}
	if len(cfg.Devices) == 0 {
		return errors.New("config: at least one device is required")
	}

	ids := make(map[string]bool)
	for _, d := range cfg.Devices {
		if d.ID == "" {
			return errors.New("config: device id is required")
		}
		if ids[d.ID] {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if err := validateDevice(d); err != nil {
			return err
		}
	}

	if err := validateSharedMaps(cfg.Devices); err != nil {
		return err
	}
	if err := validateStatusSlots(cfg.Devices); err != nil {
		return err
	}
	return validateMirrors(cfg.Devices)
}

func validateBridge(b BridgeConfig) error {
	switch b.Kind {
	case "", BridgeDC590:
		if b.Port == "" {
			return errors.New("bridge: port is required")
		}
	case BridgeI2C:
		if b.TraceFile != "" {
			return errors.New("bridge: trace_file is only supported with kind dc590")
		}
	default:
		return fmt.Errorf("bridge: unknown kind %q", b.Kind)
	}
	if b.BaudRate < 0 {
		return fmt.Errorf("bridge: invalid baud_rate %d", b.BaudRate)
	}
	if b.TimeoutMs < 0 || b.BootDelayMs < 0 || b.SettleMs < 0 {
		return errors.New("bridge: durations must not be negative")
	}
	return nil
}

func validateDevice(d DeviceConfig) error {
	if d.Address != nil && *d.Address > 0x7F {
		return fmt.Errorf("device %q: address 0x%02X does not fit in 7 bits", d.ID, *d.Address)
	}
	if d.Poll.IntervalMs < 0 {
		return fmt.Errorf("device %q: poll interval must not be negative", d.ID)
	}

	// device_name sanity (ASCII only); the id stands in for an empty name
	name := d.DeviceName
	if name == "" && d.StatusSlot != nil {
		name = d.ID
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7F {
			return fmt.Errorf("device %q: device_name must contain ASCII characters only", d.ID)
		}
	}

	for field, f := range d.Formats {
		if field == "" || f == "" {
			return fmt.Errorf("device %q: format override needs a field and a format", d.ID)
		}
	}

	for _, t := range d.Targets {
		if t.Endpoint == "" {
			return fmt.Errorf("device %q: target endpoint is required", d.ID)
		}
		if t.TimeoutMs < 0 {
			return fmt.Errorf("device %q: target %q: timeout must not be negative", d.ID, t.Endpoint)
		}
		if int(t.Offset)+mirrorSpan > 0x10000 {
			return fmt.Errorf("device %q: target %q: offset %d leaves no room for %d registers",
				d.ID, t.Endpoint, t.Offset, mirrorSpan)
		}
	}
	return nil
}

// validateSharedMaps rejects devices that share a register map but disagree
// on how it is administered.
func validateSharedMaps(devices []DeviceConfig) error {
	type owner struct {
		id  string
		cfg DeviceConfig
	}
	first := make(map[string]owner)

	for _, d := range devices {
		key := MapKey(d.RegisterMap)
		prev, ok := first[key]
		if !ok {
			first[key] = owner{id: d.ID, cfg: d}
			continue
		}

		for name, v := range d.Constants {
			if pv, set := prev.cfg.Constants[name]; set && pv != v {
				return fmt.Errorf(
					"device %q: constant %s=%g conflicts with %g set by device %q on shared register map %q",
					d.ID, name, v, pv, prev.id, key,
				)
			}
		}
		for field, f := range d.Formats {
			if pf, set := prev.cfg.Formats[field]; set && pf != f {
				return fmt.Errorf(
					"device %q: format %q for field %q conflicts with %q set by device %q on shared register map %q",
					d.ID, f, field, pf, prev.id, key,
				)
			}
		}

		// later devices add to what the first one set
		merged := prev.cfg
		merged.Constants = mergeMap(prev.cfg.Constants, d.Constants)
		merged.Formats = mergeMap(prev.cfg.Formats, d.Formats)
		first[key] = owner{id: prev.id, cfg: merged}
	}
	return nil
}

func mergeMap[V any](a, b map[string]V) map[string]V {
	out := make(map[string]V, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func validateStatusSlots(devices []DeviceConfig) error {
	// key = endpoint | status_unit_id | status_slot
	statusOwner := make(map[string]string)

	for _, d := range devices {
		// status is opt-in
		if d.StatusSlot == nil {
			continue
		}

		// status requires at least one target
		if len(d.Targets) == 0 {
			return fmt.Errorf("device %q: status_slot is set but no targets are defined", d.ID)
		}

		slot := *d.StatusSlot
		if (int(slot)+1)*statusBlockSlots > 0x10000 {
			return fmt.Errorf("device %q: status_slot %d out of range", d.ID, slot)
		}

		for _, t := range d.Targets {
			// each target must declare status_unit_id
			if t.StatusUnitID == nil {
				return fmt.Errorf(
					"device %q: status_slot is set but target %q has no status_unit_id",
					d.ID,
					t.Endpoint,
				)
			}

			key := fmt.Sprintf("%s|%d|%d", t.Endpoint, *t.StatusUnitID, slot)
			if prev, exists := statusOwner[key]; exists {
				return fmt.Errorf(
					"status_slot collision: endpoint=%s status_unit_id=%d slot=%d used by devices %q and %q",
					t.Endpoint,
					*t.StatusUnitID,
					slot,
					prev,
					d.ID,
				)
			}
			statusOwner[key] = d.ID
		}
	}
	return nil
}

// validateMirrors rejects targets whose register windows overlap.
func validateMirrors(devices []DeviceConfig) error {
	type span struct {
		start  int
		end    int
		device string
	}

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, d := range devices {
		for _, t := range d.Targets {
			start := int(t.Offset)
			end := start + mirrorSpan - 1
			key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)

			for _, s := range spans[key] {
				// overlap check (inclusive)
				if !(end < s.start || start > s.end) {
					return fmt.Errorf(
						"mirror overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with device=%s range=%d-%d",
						t.Endpoint,
						t.UnitID,
						start,
						end,
						s.device,
						s.start,
						s.end,
					)
				}
			}
			spans[key] = append(spans[key], span{start: start, end: end, device: d.ID})
		}
	}
	return nil
}
