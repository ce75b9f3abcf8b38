package regmap

import (
	"github.com/ansel1/merry"

	"github.com/tamzrod/regbridge/internal/format"
)

// validateField checks one field against the register geometry and the
// format registry. The field name is prefixed to any error.
func validateField(f *Field, reg *format.Registry) error {
	if err := checkField(f, reg); err != nil {
		return merry.Prependf(err, "field %q", f.Name)
	}
	return nil
}

func checkField(f *Field, reg *format.Registry) error {
	if f.Name == "" {
		return merry.Errorf("name is required")
	}
	if f.Width < 1 || f.Width > RegisterWidth {
		return merry.Errorf("width %d: must be between 1 and %d", f.Width, RegisterWidth)
	}
	if int(f.Offset)+int(f.Width) > RegisterWidth {
		return merry.Errorf("offset %d + width %d exceeds the %d-bit register", f.Offset, f.Width, RegisterWidth)
	}
	if f.Access > WriteOnly {
		return merry.Errorf("invalid access %v", f.Access)
	}

	seen := make(map[string]bool, len(f.Presets))
	for _, p := range f.Presets {
		if p.Label == "" {
			return merry.Errorf("preset with raw value %d has no label", p.Raw)
		}
		if seen[p.Label] {
			return merry.Errorf("duplicate preset %q", p.Label)
		}
		seen[p.Label] = true
		if p.Raw > f.Max() {
			return merry.Errorf("preset %q value %d does not fit in %d bits", p.Label, p.Raw, f.Width)
		}
	}

	for _, name := range f.Formats {
		if !reg.Has(name) {
			return merry.Errorf("allowed format %q is not defined", name)
		}
	}

	if f.ActiveFormat == "" {
		f.ActiveFormat = format.NoneName
	}
	if f.ActiveFormat != format.NoneName && !f.Allows(f.ActiveFormat) {
		return merry.Errorf("active format %q is not among the allowed formats %v", f.ActiveFormat, f.Formats)
	}
	return nil
}
