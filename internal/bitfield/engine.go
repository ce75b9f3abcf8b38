package bitfield

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamzrod/regbridge/internal/format"
	"github.com/tamzrod/regbridge/internal/regmap"
	"github.com/tamzrod/regbridge/internal/smbus"
)

// Engine performs field-level reads and writes against one register map.
//
// Writes to fields narrower than a register are a read followed by a write.
// The pair is not atomic: concurrent writers to fields of the same register
// must be serialized by the caller, or go through the whole-register field.
type Engine struct {
	bus smbus.WordBus
	m   *regmap.Map
	log *slog.Logger
}

// New returns an Engine. A nil logger selects slog.Default().
func New(bus smbus.WordBus, m *regmap.Map, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{bus: bus, m: m, log: log}
}

// Map returns the register map the engine works on.
func (e *Engine) Map() *regmap.Map { return e.m }

func (e *Engine) lookup(name string) (regmap.Field, error) {
	f, err := e.m.Lookup(name)
	if err != nil {
		return regmap.Field{}, &FieldError{Field: name, Reason: "no such field", Err: err}
	}
	return f, nil
}

func (e *Engine) readable(name string) (regmap.Field, error) {
	f, err := e.lookup(name)
	if err != nil {
		return f, err
	}
	if !f.Access.Readable() {
		return f, &FieldError{Field: name, Reason: "field is write-only"}
	}
	return f, nil
}

func (e *Engine) writable(name string) (regmap.Field, error) {
	f, err := e.lookup(name)
	if err != nil {
		return f, err
	}
	if !f.Access.Writable() {
		return f, &FieldError{Field: name, Reason: "field is read-only"}
	}
	return f, nil
}

// Read reads the register holding the field and decodes the field from it.
func (e *Engine) Read(addr uint8, name string) (Value, error) {
	f, err := e.readable(name)
	if err != nil {
		return Value{}, err
	}
	reg, err := e.bus.ReadWordData(addr, f.Command)
	if err != nil {
		return Value{}, err
	}
	return e.Decode(f, reg)
}

// ReadRaw returns the field's bits without presets or formats.
func (e *Engine) ReadRaw(addr uint8, name string) (uint16, error) {
	f, err := e.readable(name)
	if err != nil {
		return 0, err
	}
	reg, err := e.bus.ReadWordData(addr, f.Command)
	if err != nil {
		return 0, err
	}
	return Extract(reg, f.Offset, f.Width), nil
}

// Write encodes v and stores it in the field.
func (e *Engine) Write(addr uint8, name string, v Value) error {
	f, err := e.writable(name)
	if err != nil {
		return err
	}
	data, err := e.Encode(f, v)
	if err != nil {
		return err
	}
	return e.store(addr, f, int64(data))
}

// WriteRaw stores data in the field unconverted. Unlike Write it does not
// clamp: data outside the field's range is a *RangeError. When the active
// format is signed, negative data down to -2^(width-1) is stored as two's
// complement.
func (e *Engine) WriteRaw(addr uint8, name string, data int64) error {
	f, err := e.writable(name)
	if err != nil {
		return err
	}
	fm, err := e.format(f)
	if err != nil {
		return err
	}
	var lo int64
	if fm.Signed {
		lo = -(int64(1) << (f.Width - 1))
	}
	if data < lo || data > int64(f.Max()) {
		return &RangeError{Field: f.Name, Value: data, Width: f.Width, Signed: fm.Signed}
	}
	if data < 0 {
		raw, _ := ToTwos(data, f.Width)
		data = int64(raw)
	}
	return e.store(addr, f, data)
}

func (e *Engine) store(addr uint8, f regmap.Field, data int64) error {
	if f.Whole() {
		e.log.Debug("bitfield write", "field", f.Name, "cmd", f.Command, "value", fmt.Sprintf("%#04x", data))
		return e.bus.WriteWordData(addr, f.Command, uint16(data))
	}

	old, err := e.bus.ReadWordData(addr, f.Command)
	if err != nil {
		return err
	}
	reg, err := Pack(data, f.Offset, f.Width, old)
	if err != nil {
		var re *RangeError
		if errors.As(err, &re) {
			re.Field = f.Name
		}
		return err
	}
	e.log.Debug("bitfield pack",
		"field", f.Name,
		"data", fmt.Sprintf("%#b", data),
		"offset", f.Offset,
		"width", f.Width,
		"mask", fmt.Sprintf("%#018b", Mask(f.Offset, f.Width)),
		"old", fmt.Sprintf("%#018b", old),
		"new", fmt.Sprintf("%#018b", reg),
	)
	return e.bus.WriteWordData(addr, f.Command, reg)
}

func (e *Engine) format(f regmap.Field) (*format.Format, error) {
	fm, err := e.m.Formats().Lookup(f.ActiveFormat)
	if err != nil {
		return nil, &FieldError{Field: f.Name, Reason: "active format unavailable", Err: err}
	}
	return fm, nil
}

// Decode turns the content of f's register into the field's value: the
// first preset matching the field bits when presets are enabled, otherwise
// the active format applied to them.
func (e *Engine) Decode(f regmap.Field, reg uint16) (Value, error) {
	data := Extract(reg, f.Offset, f.Width)
	e.log.Debug("bitfield extract",
		"field", f.Name,
		"reg", fmt.Sprintf("%#018b", reg),
		"offset", f.Offset,
		"width", f.Width,
		"data", fmt.Sprintf("%#b", data),
	)

	if f.PresetsEnabled {
		for _, p := range f.Presets {
			if p.Raw == data {
				e.log.Debug("bitfield preset matched", "field", f.Name, "preset", p.Label, "raw", p.Raw)
				return Label(p.Label), nil
			}
		}
	}

	fm, err := e.format(f)
	if err != nil {
		return Value{}, err
	}
	raw := int64(data)
	if fm.Signed {
		raw = FromTwos(data, f.Width)
	}
	v := fm.ToReal(raw)
	e.log.Debug("bitfield format", "field", f.Name, "format", fm.Name, "raw", raw, "value", v)
	return Number(v), nil
}

// Encode turns v into the field's raw bits. A label must name one of the
// field's presets and is used as is, whether read presets are enabled or
// not. A number goes through the active format; a result outside the field's
// range is clamped to the nearest bound with a warning.
func (e *Engine) Encode(f regmap.Field, v Value) (uint16, error) {
	if label, ok := v.Preset(); ok {
		raw, found := f.Preset(label)
		if !found {
			return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("no preset %q", label)}
		}
		e.log.Debug("bitfield preset matched", "field", f.Name, "preset", label, "raw", raw)
		return raw, nil
	}

	fm, err := e.format(f)
	if err != nil {
		return 0, err
	}
	raw, err := fm.ToRaw(v.Float())
	if err != nil {
		return 0, &FieldError{Field: f.Name, Reason: "cannot convert " + v.String(), Err: err}
	}
	e.log.Debug("bitfield unformat", "field", f.Name, "format", fm.Name, "value", v.Float(), "raw", raw)

	if fm.Signed {
		data, clamped := ToTwos(raw, f.Width)
		if clamped {
			e.warnClamp(f, v, raw, FromTwos(data, f.Width))
		}
		return data, nil
	}

	switch hi := int64(f.Max()); {
	case raw < 0:
		e.warnClamp(f, v, raw, 0)
		raw = 0
	case raw > hi:
		e.warnClamp(f, v, raw, hi)
		raw = hi
	}
	return uint16(raw), nil
}

func (e *Engine) warnClamp(f regmap.Field, v Value, raw, to int64) {
	e.log.Warn("value clamped to fit field",
		"field", f.Name,
		"value", v.String(),
		"raw", raw,
		"clamped", to,
		"width", f.Width,
	)
}
