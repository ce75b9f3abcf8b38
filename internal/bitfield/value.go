package bitfield

import "strconv"

// Value is what a field reads as or is written with: either a preset label
// or a number in the units of the field's active format.
type Value struct {
	label   string
	num     float64
	isLabel bool
}

// Label returns a preset label value.
func Label(s string) Value { return Value{label: s, isLabel: true} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{num: f} }

// Preset returns the label and true for a label value.
func (v Value) Preset() (string, bool) { return v.label, v.isLabel }

// Float returns the number; zero for a label value.
func (v Value) Float() float64 { return v.num }

func (v Value) IsLabel() bool { return v.isLabel }

func (v Value) String() string {
	if v.isLabel {
		return v.label
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}
