// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultBaudRate        = 115200
	DefaultTimeoutMs       = 1000
	DefaultBootDelayMs     = 2500
	DefaultSettleMs        = 100
	DefaultPollIntervalMs  = 1000
	DefaultTargetTimeoutMs = 1000

	// Bridge kinds.
	BridgeDC590 = "dc590"
	BridgeI2C   = "i2c"

	// BuiltinLTC3351 names the embedded LTC3351 register map.
	BuiltinLTC3351 = "ltc3351"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	b := &cfg.Bridge
	if b.Kind == "" {
		b.Kind = BridgeDC590
	}
	if b.BaudRate == 0 {
		b.BaudRate = DefaultBaudRate
	}
	if b.TimeoutMs == 0 {
		b.TimeoutMs = DefaultTimeoutMs
	}
	if b.BootDelayMs == 0 {
		b.BootDelayMs = DefaultBootDelayMs
	}
	if b.SettleMs == 0 {
		b.SettleMs = DefaultSettleMs
	}

	for di := range cfg.Devices {
		d := &cfg.Devices[di]

		d.RegisterMap = MapKey(d.RegisterMap)
		if d.Poll.IntervalMs == 0 {
			d.Poll.IntervalMs = DefaultPollIntervalMs
		}
		for ti := range d.Targets {
			if d.Targets[ti].TimeoutMs == 0 {
				d.Targets[ti].TimeoutMs = DefaultTargetTimeoutMs
			}
		}

		// Skip devices that did not opt in
		if d.StatusSlot == nil {
			continue
		}

		// Normalize device_name:
		// - ASCII already validated
		// - Defaults to the device id
		// - Truncate to max 16 characters
		if d.DeviceName == "" {
			d.DeviceName = d.ID
		}
		if len(d.DeviceName) > 16 {
			d.DeviceName = d.DeviceName[:16]
		}
	}
}

// MapKey returns the name under which a register map is shared: built-in
// names are case-insensitive and an empty name selects the LTC3351 map.
func MapKey(name string) string {
	if name == "" || strings.EqualFold(name, BuiltinLTC3351) {
		return BuiltinLTC3351
	}
	return name
}

// Builtin reports whether name selects an embedded register map.
func Builtin(name string) bool { return MapKey(name) == BuiltinLTC3351 }
