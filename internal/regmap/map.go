// Package regmap holds the static description of a device's registers: the
// named bit-fields, the formats they may be shown in and the device's default
// bus address.
//
// A Map is meant to be shared. Every device bound to the same Map sees the
// administrative changes made through any of them (active formats, presets,
// constants, custom formats).
package regmap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ansel1/merry"

	"github.com/tamzrod/regbridge/internal/format"
	"github.com/tamzrod/regbridge/internal/smbus"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrFormatNotAllowed = errors.New("format not allowed for field")
)

// Map is an ordered table of fields plus the format registry they use.
type Map struct {
	device  string
	address uint8
	formats *format.Registry

	mu     sync.RWMutex
	order  []string
	fields map[string]*Field
}

// New validates fields and builds a Map. Fields keep their order and an
// empty active format means format.NoneName. A nil registry holds only None.
func New(device string, address uint8, formats *format.Registry, fields []Field) (*Map, error) {
	if err := smbus.ValidAddr(address); err != nil {
		return nil, merry.Prependf(err, "device %q", device)
	}
	if formats == nil {
		var err error
		if formats, err = format.NewRegistry(nil, nil); err != nil {
			return nil, err
		}
	}

	m := &Map{
		device:  device,
		address: address,
		formats: formats,
		fields:  make(map[string]*Field, len(fields)),
	}
	for i := range fields {
		f := fields[i].clone()
		if err := validateField(&f, formats); err != nil {
			return nil, err
		}
		if _, dup := m.fields[f.Name]; dup {
			return nil, merry.Errorf("field %q: defined twice", f.Name)
		}
		m.fields[f.Name] = &f
		m.order = append(m.order, f.Name)
	}
	return m, nil
}

func (m *Map) Device() string { return m.device }

// Address is the device's default 7-bit address.
func (m *Map) Address() uint8 { return m.address }

// Formats returns the registry shared by every field of the map.
func (m *Map) Formats() *format.Registry { return m.formats }

func (m *Map) Len() int { return len(m.order) }

// Names returns field names in declaration order.
func (m *Map) Names() []string { return slices.Clone(m.order) }

// Lookup returns a copy of the named field.
func (m *Map) Lookup(name string) (Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	return f.clone(), nil
}

// Fields returns copies of every field in declaration order.
func (m *Map) Fields() []Field {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Field, len(m.order))
	for i, name := range m.order {
		out[i] = m.fields[name].clone()
	}
	return out
}

// Commands returns the distinct command codes used by the map, ascending.
func (m *Map) Commands() []uint8 {
	var out []uint8
	for _, f := range m.fields {
		out = append(out, f.Command)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ByCommand returns the fields stored in register cmd, in declaration order.
func (m *Map) ByCommand(cmd uint8) []Field {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Field
	for _, name := range m.order {
		if f := m.fields[name]; f.Command == cmd {
			out = append(out, f.clone())
		}
	}
	return out
}

func (m *Map) field(name string) (*Field, error) {
	f, ok := m.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	return f, nil
}

// ActiveFormat returns the name of the format applied to field.
func (m *Map) ActiveFormat(field string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.field(field)
	if err != nil {
		return "", err
	}
	return f.ActiveFormat, nil
}

// AllowedFormats returns the formats declared for field.
func (m *Map) AllowedFormats(field string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.field(field)
	if err != nil {
		return nil, err
	}
	return slices.Clone(f.Formats), nil
}

// SetActiveFormat selects the format applied to field. "none" in any case
// selects the identity format. Any other name must be registered and, unless
// force is set, among the field's allowed formats.
func (m *Map) SetActiveFormat(field, name string, force bool) error {
	if strings.EqualFold(name, format.NoneName) || name == "" {
		name = format.NoneName
	} else if !m.formats.Has(name) {
		return fmt.Errorf("field %q: %w %q", field, format.ErrUnknown, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.field(field)
	if err != nil {
		return err
	}
	if name != format.NoneName && !force && !f.Allows(name) {
		return fmt.Errorf("field %q: %w: %q", field, ErrFormatNotAllowed, name)
	}
	f.ActiveFormat = name
	return nil
}

// EnablePresets switches read presets of one field on or off. Writes accept
// preset labels either way.
func (m *Map) EnablePresets(field string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.field(field)
	if err != nil {
		return err
	}
	f.PresetsEnabled = on
	return nil
}

// DisableBinaryPresets switches read presets off for every single-bit field.
func (m *Map) DisableBinaryPresets() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.fields {
		if f.Width == 1 {
			f.PresetsEnabled = false
		}
	}
}

// DisablePresetsAndFormats removes every preset and resets every field to
// the identity format. Values then pass through unchanged apart from masking
// and shifting. There is no way back short of building a new Map.
func (m *Map) DisablePresetsAndFormats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.fields {
		f.Presets = nil
		f.ActiveFormat = format.NoneName
	}
}

// SetConstant changes a calibration constant and rebuilds every calibrated
// format. A change that leaves any format invalid is rejected.
func (m *Map) SetConstant(name string, value float64) error {
	return m.formats.SetConstant(name, value)
}

func (m *Map) Constant(name string) (float64, bool) { return m.formats.Constant(name) }

func (m *Map) Constants() map[string]float64 { return m.formats.Constants() }

// RegisterFormat adds a custom format. Use SetActiveFormat with force to
// apply it to a field that does not list it.
func (m *Map) RegisterFormat(f *format.Format) error {
	return m.formats.Register(f)
}
