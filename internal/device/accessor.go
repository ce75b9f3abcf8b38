package device

import (
	"github.com/tamzrod/regbridge/internal/bitfield"
	"github.com/tamzrod/regbridge/internal/regmap"
)

// Accessor reads and writes one field of a Device.
type Accessor struct {
	d    *Device
	name string
}

func (a *Accessor) Name() string { return a.name }

// Field returns the field's current description.
func (a *Accessor) Field() regmap.Field {
	f, _ := a.d.m.Lookup(a.name)
	return f
}

func (a *Accessor) Get() (bitfield.Value, error) { return a.d.eng.Read(a.d.Address(), a.name) }

func (a *Accessor) Set(v bitfield.Value) error { return a.d.eng.Write(a.d.Address(), a.name, v) }

// GetRaw returns the field bits without presets or formats.
func (a *Accessor) GetRaw() (uint16, error) { return a.d.eng.ReadRaw(a.d.Address(), a.name) }

// SetRaw writes the field bits unconverted. Values that do not fit are a
// *bitfield.RangeError.
func (a *Accessor) SetRaw(data int64) error { return a.d.eng.WriteRaw(a.d.Address(), a.name, data) }
