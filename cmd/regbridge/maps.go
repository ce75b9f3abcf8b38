// cmd/regbridge/maps.go
package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/regmap"
)

// buildMaps decodes each register map once and applies every device's
// administrative overrides to it. Devices naming the same map get the same
// *regmap.Map.
func buildMaps(devices []config.DeviceConfig) (map[string]*regmap.Map, error) {
	byName := make(map[string]*regmap.Map)

	for _, d := range devices {
		m, ok := byName[d.RegisterMap]
		if !ok {
			var err error
			if config.Builtin(d.RegisterMap) {
				m, err = regmap.LTC3351()
			} else {
				m, err = regmap.LoadFile(d.RegisterMap)
			}
			if err != nil {
				return nil, fmt.Errorf("device %q: register map %q: %w", d.ID, d.RegisterMap, err)
			}
			byName[d.RegisterMap] = m
		}

		if err := administer(m, d); err != nil {
			return nil, fmt.Errorf("device %q: %w", d.ID, err)
		}
	}
	return byName, nil
}

func administer(m *regmap.Map, d config.DeviceConfig) error {
	for _, name := range slices.Sorted(maps.Keys(d.Constants)) {
		if _, ok := m.Constant(name); !ok {
			return fmt.Errorf("unknown constant %q", name)
		}
		if err := m.SetConstant(name, d.Constants[name]); err != nil {
			return err
		}
	}

	for _, field := range slices.Sorted(maps.Keys(d.Formats)) {
		if err := m.SetActiveFormat(field, d.Formats[field], false); err != nil {
			return err
		}
	}

	if d.DisableBinaryPresets {
		m.DisableBinaryPresets()
	}
	for _, field := range d.DisablePresets {
		if err := m.EnablePresets(field, false); err != nil {
			return err
		}
	}
	return nil
}
