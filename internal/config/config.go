// internal/config/config.go
package config

type Config struct {
	Bridge  BridgeConfig   `yaml:"bridge"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- BRIDGE ----

type BridgeConfig struct {
	// Kind selects the bus: "dc590" (serial bridge, default) or "i2c"
	// (native adapter).
	Kind string `yaml:"kind"`

	// I2CBus names the native adapter ("1", "/dev/i2c-1", ...). Empty picks
	// the first one found. Used with kind i2c only.
	I2CBus string `yaml:"i2c_bus"`

	Port        string `yaml:"port"`
	BaudRate    int    `yaml:"baud_rate"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	BootDelayMs int    `yaml:"boot_delay_ms"`
	SettleMs    int    `yaml:"settle_ms"`
	PEC         bool   `yaml:"pec"`
	SkipInit    bool   `yaml:"skip_init"`

	// Optional CBOR transaction trace.
	TraceFile string `yaml:"trace_file"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID string `yaml:"id"`

	// Address overrides the register map's default address.
	Address *uint8 `yaml:"address"`

	// RegisterMap is a built-in map name ("ltc3351") or a description file.
	RegisterMap string `yaml:"register_map"`

	// Map administration. Devices naming the same register map share it,
	// so their overrides must agree.
	Constants            map[string]float64 `yaml:"constants"`
	Formats              map[string]string  `yaml:"formats"` // field -> format
	DisablePresets       []string           `yaml:"disable_presets"`
	DisableBinaryPresets bool               `yaml:"disable_binary_presets"`

	Poll PollConfig `yaml:"poll"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
	DeviceName string  `yaml:"device_name"`

	Targets []TargetConfig `yaml:"targets"`
}

// ---- TARGET ----

// TargetConfig is one Modbus TCP mirror. Register words land in holding
// registers at Offset + command code.
type TargetConfig struct {
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`        // data memory
	Offset       uint16 `yaml:"offset"`         // first holding register
	StatusUnitID *uint8 `yaml:"status_unit_id"` // per-target status memory (optional)
	TimeoutMs    int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
