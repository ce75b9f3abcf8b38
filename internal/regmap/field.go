package regmap

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// RegisterWidth is the width of every device register in bits.
const RegisterWidth = 16

// Access says which directions a field may be transferred in.
type Access uint8

const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

func (a Access) Readable() bool { return a != WriteOnly }
func (a Access) Writable() bool { return a != ReadOnly }

func (a Access) String() string {
	switch a {
	case ReadWrite:
		return "rw"
	case ReadOnly:
		return "r"
	case WriteOnly:
		return "w"
	default:
		return fmt.Sprintf("Access(%d)", uint8(a))
	}
}

// ParseAccess accepts rw, r and w.
func ParseAccess(s string) (Access, error) {
	switch s {
	case "rw", "":
		return ReadWrite, nil
	case "r":
		return ReadOnly, nil
	case "w":
		return WriteOnly, nil
	default:
		return 0, fmt.Errorf("unknown access %q (want rw, r or w)", s)
	}
}

func (a *Access) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := ParseAccess(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*a = v
	return nil
}

func (a Access) MarshalYAML() (any, error) { return a.String(), nil }

// Preset binds a symbolic label to one raw field value.
type Preset struct {
	Label string `yaml:"label"`
	Raw   uint16 `yaml:"raw"`
}

// Field describes one named bit-field inside a 16-bit register.
type Field struct {
	Name        string
	Command     uint8
	Offset      uint8
	Width       uint8
	Access      Access
	Description string

	// Presets are matched in declaration order on read.
	Presets        []Preset
	PresetsEnabled bool

	// Formats lists the formats allowed for the field; ActiveFormat is the
	// one applied, format.NoneName when no conversion is wanted.
	Formats      []string
	ActiveFormat string
}

// Whole reports whether the field spans the entire register.
func (f Field) Whole() bool { return f.Width == RegisterWidth }

// Max is the largest raw value the field holds.
func (f Field) Max() uint16 { return uint16(uint32(1)<<f.Width - 1) }

// Preset returns the raw value bound to label.
func (f Field) Preset(label string) (uint16, bool) {
	for _, p := range f.Presets {
		if p.Label == label {
			return p.Raw, true
		}
	}
	return 0, false
}

// Allows reports whether format name is in the allowed list.
func (f Field) Allows(name string) bool {
	return slices.Contains(f.Formats, name)
}

func (f Field) String() string {
	return fmt.Sprintf("%s (cmd 0x%02X, bits %d..%d, %s)", f.Name, f.Command, f.Offset, f.Offset+f.Width-1, f.Access)
}

func (f Field) clone() Field {
	f.Presets = slices.Clone(f.Presets)
	f.Formats = slices.Clone(f.Formats)
	return f
}
