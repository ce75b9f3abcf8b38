package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ltcConstants() map[string]float64 {
	return map[string]float64{
		"RSNSI":               0.018,
		"RSNSC":               0.012,
		"RTST":                121,
		"RT":                  71500,
		"CTL_CAP_SCALE_VALUE": 1,
	}
}

func ltcCalibrations() map[string]Calibration {
	lin := func(signed bool, real0, real1 string) Calibration {
		return Calibration{Signed: signed, Points: pts([2]string{"0", real0}, [2]string{"1", real1})}
	}
	return map[string]Calibration{
		"cap_format":        lin(false, "0", "(3.36e-6 + 332.64e-6 * (1 - CTL_CAP_SCALE_VALUE)) * RT / RTST"),
		"vcapfb_dac_format": lin(false, "0.6375", "0.6375 + 0.0375"),
		"cell_format":       lin(true, "0", "182.8e-6"),
		"vin_format":        lin(true, "0", "2.19e-3"),
		"vcap_format":       lin(true, "0", "1.46e-3"),
		"iin_format":        lin(true, "0", "1.955e-6 / RSNSI"),
		"dtemp_format":      lin(true, "-274", "-274 + 0.0296"),
		"esr_format":        lin(false, "0", "RSNSC / 64"),
		"icharge_format":    lin(true, "0", "1.955e-6 / RSNSC"),
	}
}

func newLTC(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(ltcConstants(), ltcCalibrations())
	require.NoError(t, err)
	return r
}

func TestRoundTripLaw(t *testing.T) {
	r := newLTC(t)

	for _, name := range r.Names() {
		f, err := r.Lookup(name)
		require.NoError(t, err)

		lo, hi := int64(0), int64(0xFFFF)
		if f.Signed {
			lo, hi = -0x8000, 0x7FFF
		}
		for raw := lo; raw <= hi; raw++ {
			got, err := f.ToRaw(f.ToReal(raw))
			require.NoError(t, err)
			if got != raw {
				t.Fatalf("%s: ToRaw(ToReal(%d)) = %d", name, raw, got)
			}
		}
	}
}

func TestRegistryLookup(t *testing.T) {
	r := newLTC(t)

	f, err := r.Lookup("None")
	require.NoError(t, err)
	assert.Same(t, None, f)

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknown)

	names := r.Names()
	assert.Contains(t, names, "None")
	assert.Contains(t, names, "esr_format")
	assert.IsIncreasing(t, names)
	assert.True(t, r.Has("vin_format"))
}

func TestSetConstantRegenerates(t *testing.T) {
	r := newLTC(t)

	before, err := r.Lookup("cap_format")
	require.NoError(t, err)
	small := before.ToReal(1)

	require.NoError(t, r.SetConstant("CTL_CAP_SCALE_VALUE", 0))

	after, err := r.Lookup("cap_format")
	require.NoError(t, err)
	assert.InDelta(t, small*100, after.ToReal(1), 1e-12)

	v, ok := r.Constant("CTL_CAP_SCALE_VALUE")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestSetConstantRejectsInvalid(t *testing.T) {
	r := newLTC(t)
	before, _ := r.Lookup("esr_format")

	// esr_format collapses to two points with the same real value.
	err := r.SetConstant("RSNSC", 0)
	require.Error(t, err)

	v, _ := r.Constant("RSNSC")
	assert.Equal(t, 0.012, v)
	after, _ := r.Lookup("esr_format")
	assert.Same(t, before, after)
}

func TestConstantsIsACopy(t *testing.T) {
	r := newLTC(t)
	c := r.Constants()
	c["RT"] = 1
	v, _ := r.Constant("RT")
	assert.Equal(t, 71500.0, v)
}

func TestRegisterCustom(t *testing.T) {
	r := newLTC(t)

	percent := &Format{
		Name:   "percent",
		ToReal: func(raw int64) float64 { return float64(raw) * 100 / 0xFFFF },
		ToRaw:  func(v float64) (int64, error) { return int64(v * 0xFFFF / 100), nil },
	}
	require.NoError(t, r.Register(percent))

	f, err := r.Lookup("percent")
	require.NoError(t, err)
	assert.Same(t, percent, f)

	assert.Error(t, r.Register(&Format{Name: "None", ToReal: None.ToReal, ToRaw: None.ToRaw}))
	assert.Error(t, r.Register(&Format{Name: "half"}))
	assert.Error(t, r.Register(nil))

	// custom formats survive a constant change
	require.NoError(t, r.SetConstant("RT", 80000))
	f, err = r.Lookup("percent")
	require.NoError(t, err)
	assert.Same(t, percent, f)
}

func TestDefine(t *testing.T) {
	r := newLTC(t)

	require.NoError(t, r.Define("scaled_rt", Calibration{Points: pts([2]string{"0", "0"}, [2]string{"1", "RT"})}))
	f, err := r.Lookup("scaled_rt")
	require.NoError(t, err)
	assert.Equal(t, 71500.0, f.ToReal(1))

	require.NoError(t, r.SetConstant("RT", 1000))
	f, _ = r.Lookup("scaled_rt")
	assert.Equal(t, 1000.0, f.ToReal(1))

	assert.Error(t, r.Define("None", Calibration{}))
	assert.Error(t, r.Define("bad", Calibration{Points: pts([2]string{"0", "0"})}))
}

func TestNewRegistryRejectsNoneSpec(t *testing.T) {
	_, err := NewRegistry(nil, map[string]Calibration{"None": {}})
	assert.Error(t, err)
}
