package regmap

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/ansel1/merry"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/regbridge/internal/format"
)

//go:embed ltc3351.yaml
var ltc3351YAML []byte

// document is the YAML layout of a register description.
type document struct {
	Device    string                        `yaml:"device"`
	Address   uint8                         `yaml:"address"`
	Constants map[string]float64            `yaml:"constants"`
	Formats   map[string]format.Calibration `yaml:"formats"`
	Fields    []fieldDoc                    `yaml:"fields"`
}

type fieldDoc struct {
	Name         string   `yaml:"name"`
	Command      uint8    `yaml:"command"`
	Offset       uint8    `yaml:"offset"`
	Width        uint8    `yaml:"width"`
	Access       Access   `yaml:"access"`
	Description  string   `yaml:"description"`
	Presets      []Preset `yaml:"presets"`
	Formats      []string `yaml:"formats"`
	ActiveFormat string   `yaml:"active_format"`
}

// Load decodes a register description. Unknown keys are rejected.
func Load(r io.Reader) (*Map, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, merry.Prepend(err, "register description")
	}

	reg, err := format.NewRegistry(doc.Constants, doc.Formats)
	if err != nil {
		return nil, merry.Prependf(err, "device %q", doc.Device)
	}

	fields := make([]Field, len(doc.Fields))
	for i, fd := range doc.Fields {
		fields[i] = Field{
			Name:           fd.Name,
			Command:        fd.Command,
			Offset:         fd.Offset,
			Width:          fd.Width,
			Access:         fd.Access,
			Description:    fd.Description,
			Presets:        fd.Presets,
			PresetsEnabled: true,
			Formats:        fd.Formats,
			ActiveFormat:   fd.ActiveFormat,
		}
	}

	m, err := New(doc.Device, doc.Address, reg, fields)
	if err != nil {
		return nil, merry.Prependf(err, "device %q", doc.Device)
	}
	return m, nil
}

// LoadFile decodes the register description at path.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, merry.Prependf(err, "%s", path)
	}
	return m, nil
}

// LTC3351 returns a new Map for the LTC3351 super capacitor backup
// controller. Each call returns an independent Map.
func LTC3351() (*Map, error) {
	return Load(bytes.NewReader(ltc3351YAML))
}
