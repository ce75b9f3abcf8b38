package regmap

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/regbridge/internal/format"
)

func ltc(t *testing.T) *Map {
	t.Helper()
	m, err := LTC3351()
	require.NoError(t, err)
	return m
}

func TestLTC3351(t *testing.T) {
	m := ltc(t)

	assert.Equal(t, "LTC3351", m.Device())
	assert.Equal(t, uint8(0x09), m.Address())
	assert.Equal(t, 182, m.Len())
	assert.Len(t, m.Commands(), 76)
	assert.Equal(t, "ctl_start_cap_esr_meas", m.Names()[0])

	f, err := m.Lookup("ctl_cap_scale")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x00), f.Command)
	assert.Equal(t, uint8(3), f.Offset)
	assert.Equal(t, uint8(1), f.Width)
	assert.Equal(t, ReadWrite, f.Access)
	assert.True(t, f.PresetsEnabled)
	assert.Equal(t, []Preset{{Label: "large_cap", Raw: 0}, {Label: "small_cap", Raw: 1}}, f.Presets)
	assert.Equal(t, format.NoneName, f.ActiveFormat)

	f, err = m.Lookup("meas_cap")
	require.NoError(t, err)
	assert.Equal(t, ReadOnly, f.Access)
	assert.True(t, f.Whole())
	assert.Equal(t, "cap_format", f.ActiveFormat)
	assert.Equal(t, []string{"cap_format", "cap_zs_format"}, f.Formats)

	assert.Len(t, m.ByCommand(0xEE), 11)

	for _, name := range m.Formats().Names() {
		_, err := m.Formats().Lookup(name)
		assert.NoError(t, err, name)
	}
}

func TestLTC3351Independent(t *testing.T) {
	a, b := ltc(t), ltc(t)
	a.DisablePresetsAndFormats()

	f, err := b.Lookup("ctl_cap_scale")
	require.NoError(t, err)
	assert.Len(t, f.Presets, 2)
}

func TestLookupReturnsCopy(t *testing.T) {
	m := ltc(t)

	f, err := m.Lookup("ctl_cap_scale")
	require.NoError(t, err)
	f.Presets[0].Label = "changed"
	f.ActiveFormat = "esr_format"

	again, _ := m.Lookup("ctl_cap_scale")
	assert.Equal(t, "large_cap", again.Presets[0].Label)
	assert.Equal(t, format.NoneName, again.ActiveFormat)

	_, err = m.Lookup("ctl_nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

const header = `
device: TEST
address: 0x10
constants: {K: 2}
formats:
  double:
    description: twice the raw value
    points: [["0", "0"], ["1", "K"]]
fields:
`

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		header string
		want   string
	}{
		{name: "width zero", fields: "  - {name: a, command: 0x01, width: 0}", want: `field "a"`},
		{name: "too wide", fields: "  - {name: a, command: 0x01, offset: 12, width: 5}", want: "exceeds"},
		{name: "preset does not fit", fields: "  - {name: a, command: 0x01, width: 1, presets: [{label: two, raw: 2}]}", want: "does not fit"},
		{name: "duplicate preset", fields: "  - {name: a, command: 0x01, width: 2, presets: [{label: x, raw: 1}, {label: x, raw: 2}]}", want: "duplicate preset"},
		{name: "duplicate field", fields: "  - {name: a, command: 0x01, width: 1}\n  - {name: a, command: 0x02, width: 1}", want: "defined twice"},
		{name: "unknown format", fields: "  - {name: a, command: 0x01, width: 16, formats: [triple]}", want: "not defined"},
		{name: "active not allowed", fields: "  - {name: a, command: 0x01, width: 16, active_format: double}", want: "not among"},
		{name: "bad access", fields: "  - {name: a, command: 0x01, width: 1, access: x}", want: "unknown access"},
		{name: "unknown key", fields: "  - {name: a, command: 0x01, width: 1, colour: red}", want: "colour"},
		{name: "missing name", fields: "  - {command: 0x01, width: 1}", want: "name is required"},
		{name: "bad address", header: strings.Replace(header, "0x10", "0x80", 1), fields: "  - {name: a, command: 0x01, width: 1}", want: "7 bits"},
		{name: "bad format", header: strings.Replace(header, `"K"`, `"0"`, 1), fields: "  - {name: a, command: 0x01, width: 1}", want: "double"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := header
			if tt.header != "" {
				h = tt.header
			}
			_, err := Load(strings.NewReader(h + tt.fields + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	doc := header + "  - {name: a, command: 0x01, width: 16, access: r, formats: [double], active_format: double}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x10), m.Address())

	f, err := m.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, ReadOnly, f.Access)
	assert.False(t, f.Access.Writable())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetActiveFormat(t *testing.T) {
	m := ltc(t)

	require.NoError(t, m.SetActiveFormat("meas_cap", "cap_zs_format", false))
	name, err := m.ActiveFormat("meas_cap")
	require.NoError(t, err)
	assert.Equal(t, "cap_zs_format", name)

	err = m.SetActiveFormat("meas_cap", "vin_format", false)
	assert.ErrorIs(t, err, ErrFormatNotAllowed)

	require.NoError(t, m.SetActiveFormat("meas_cap", "vin_format", true))
	name, _ = m.ActiveFormat("meas_cap")
	assert.Equal(t, "vin_format", name)

	require.NoError(t, m.SetActiveFormat("meas_cap", "NONE", false))
	name, _ = m.ActiveFormat("meas_cap")
	assert.Equal(t, format.NoneName, name)

	assert.ErrorIs(t, m.SetActiveFormat("meas_cap", "bogus", true), format.ErrUnknown)
	assert.ErrorIs(t, m.SetActiveFormat("bogus", "None", false), ErrUnknownField)

	allowed, err := m.AllowedFormats("meas_cap")
	require.NoError(t, err)
	assert.Equal(t, []string{"cap_format", "cap_zs_format"}, allowed)
}

func TestPresetAdministration(t *testing.T) {
	m := ltc(t)

	require.NoError(t, m.EnablePresets("ctl_cap_scale", false))
	f, _ := m.Lookup("ctl_cap_scale")
	assert.False(t, f.PresetsEnabled)
	assert.Len(t, f.Presets, 2, "disabling read presets keeps them for writes")
	assert.ErrorIs(t, m.EnablePresets("nope", true), ErrUnknownField)

	require.NoError(t, m.EnablePresets("ctl_cap_scale", true))
	m.DisableBinaryPresets()
	for _, f := range m.Fields() {
		if f.Width == 1 {
			assert.False(t, f.PresetsEnabled, f.Name)
		} else {
			assert.True(t, f.PresetsEnabled, f.Name)
		}
	}

	m.DisablePresetsAndFormats()
	for _, f := range m.Fields() {
		assert.Empty(t, f.Presets, f.Name)
		assert.Equal(t, format.NoneName, f.ActiveFormat, f.Name)
	}
}

func TestConstantsThroughMap(t *testing.T) {
	m := ltc(t)

	v, ok := m.Constant("RT")
	require.True(t, ok)
	assert.Equal(t, 71500.0, v)

	require.NoError(t, m.SetConstant("RT", 80000))
	assert.Equal(t, 80000.0, m.Constants()["RT"])

	assert.Error(t, m.SetConstant("RSNSC", 0))
	assert.Equal(t, 0.012, m.Constants()["RSNSC"])
}

func TestConcurrentAdministration(t *testing.T) {
	m := ltc(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.EnablePresets("ctl_cap_scale", j%2 == 0)
				_ = m.SetActiveFormat("meas_cap", "cap_zs_format", false)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = m.Lookup("ctl_cap_scale")
				_ = m.Fields()
			}
		}()
	}
	wg.Wait()
}

func TestAccess(t *testing.T) {
	for _, s := range []string{"rw", "r", "w"} {
		a, err := ParseAccess(s)
		require.NoError(t, err)
		assert.Equal(t, s, a.String())
	}
	assert.True(t, WriteOnly.Writable())
	assert.False(t, WriteOnly.Readable())
}
