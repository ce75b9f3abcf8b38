// Package device binds a register map to a bus and an address and exposes
// the map's fields as accessors.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tamzrod/regbridge/internal/bitfield"
	"github.com/tamzrod/regbridge/internal/format"
	"github.com/tamzrod/regbridge/internal/regmap"
	"github.com/tamzrod/regbridge/internal/smbus"
)

// Device is one chip on a bus. It holds no state of its own besides the
// address: presets, formats and constants live in the shared Map.
//
// A Device is safe for concurrent use only if its bus is (see
// smbus.Serialize), and even then concurrent writes to fields of one register
// may lose updates. SetAddress may be called while other goroutines use the
// device; a transaction already started keeps the old address.
type Device struct {
	bus  smbus.Bus
	m    *regmap.Map
	eng  *bitfield.Engine
	log  *slog.Logger
	addr atomic.Uint32

	accessors map[string]*Accessor
}

// Option configures a Device.
type Option func(*Device)

// WithAddress overrides the map's default bus address.
func WithAddress(addr uint8) Option {
	return func(d *Device) { d.addr.Store(uint32(addr)) }
}

// WithLogger sets the logger for the device and its bit-field engine.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

// New binds m to bus. The accessor table is built once here; fields cannot
// be added later.
func New(bus smbus.Bus, m *regmap.Map, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, errors.New("device: bus is required")
	}
	if m == nil {
		return nil, errors.New("device: register map is required")
	}

	d := &Device{bus: bus, m: m, log: slog.Default()}
	d.addr.Store(uint32(m.Address()))
	for _, opt := range opts {
		opt(d)
	}
	if err := smbus.ValidAddr(d.Address()); err != nil {
		return nil, err
	}
	d.log = d.log.With("device", m.Device())
	d.eng = bitfield.New(bus, m, d.log)

	d.accessors = make(map[string]*Accessor, m.Len())
	for _, name := range m.Names() {
		d.accessors[name] = &Accessor{d: d, name: name}
	}
	return d, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("%s@0x%02X", d.m.Device(), d.Address())
}

// Map returns the shared register map.
func (d *Device) Map() *regmap.Map { return d.m }

func (d *Device) Address() uint8 { return uint8(d.addr.Load()) }

// SetAddress changes the bus address used by later transactions.
func (d *Device) SetAddress(addr uint8) error {
	if err := smbus.ValidAddr(addr); err != nil {
		return err
	}
	d.addr.Store(uint32(addr))
	d.log.Info("device address changed", "addr", fmt.Sprintf("0x%02X", addr))
	return nil
}

// Fields returns the field names in map order.
func (d *Device) Fields() []string { return d.m.Names() }

// Len returns the number of fields.
func (d *Device) Len() int { return len(d.accessors) }

// Field returns the accessor for name. Unknown names are a
// *bitfield.FieldError wrapping regmap.ErrUnknownField.
func (d *Device) Field(name string) (*Accessor, error) {
	a, ok := d.accessors[name]
	if !ok {
		return nil, &bitfield.FieldError{Field: name, Reason: "no such field", Err: regmap.ErrUnknownField}
	}
	return a, nil
}

// Get reads and decodes one field.
func (d *Device) Get(name string) (bitfield.Value, error) {
	a, err := d.Field(name)
	if err != nil {
		return bitfield.Value{}, err
	}
	return a.Get()
}

// Set encodes v and writes it to one field.
func (d *Device) Set(name string, v bitfield.Value) error {
	a, err := d.Field(name)
	if err != nil {
		return err
	}
	return a.Set(v)
}

// AlertResponse reads the alert response address. ok is false when no
// device answered; mine reports whether the answer came from this device.
func (d *Device) AlertResponse() (addr uint8, ok, mine bool, err error) {
	addr, ok, err = d.bus.AlertResponse()
	if err != nil || !ok {
		return 0, false, false, err
	}
	return addr, true, addr == d.Address(), nil
}

// The administrative calls below change the shared Map and are seen by every
// Device built from it.

func (d *Device) ActiveFormat(field string) (string, error) { return d.m.ActiveFormat(field) }

// SetActiveFormat selects the format for field. force skips the check
// against the field's allowed formats.
func (d *Device) SetActiveFormat(field, name string, force bool) error {
	if err := d.m.SetActiveFormat(field, name, force); err != nil {
		return err
	}
	d.log.Info("active format changed", "field", field, "format", name, "forced", force)
	return nil
}

// Formats returns the formats allowed for field.
func (d *Device) Formats(field string) ([]string, error) { return d.m.AllowedFormats(field) }

func (d *Device) EnablePresets(field string, on bool) error { return d.m.EnablePresets(field, on) }

func (d *Device) DisableBinaryPresets() { d.m.DisableBinaryPresets() }

func (d *Device) DisablePresetsAndFormats() {
	d.m.DisablePresetsAndFormats()
	d.log.Info("presets and formats disabled")
}

func (d *Device) Constant(name string) (float64, bool) { return d.m.Constant(name) }

func (d *Device) Constants() map[string]float64 { return d.m.Constants() }

func (d *Device) SetConstant(name string, value float64) error {
	if err := d.m.SetConstant(name, value); err != nil {
		return err
	}
	d.log.Info("constant changed", "constant", name, "value", value)
	return nil
}

func (d *Device) RegisterFormat(f *format.Format) error { return d.m.RegisterFormat(f) }
