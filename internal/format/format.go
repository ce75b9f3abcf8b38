// Package format holds the named raw↔real converters applied to bit-field
// values, including calibrated piecewise-linear transforms whose calibration
// points are expressions over named constants.
package format

import (
	"errors"
	"fmt"
	"math"
)

// NoneName names the identity format.
const NoneName = "None"

// ErrUnknown is returned for a format name that is not registered.
var ErrUnknown = errors.New("unknown format")

// Format converts raw register values to engineering units and back.
//
// For signed formats raw values are two's-complement decoded before ToReal and
// ToRaw may return negative values; the bit-field engine handles the encoding.
// A Format is immutable once registered.
type Format struct {
	Name        string
	Description string
	Signed      bool

	ToReal func(raw int64) float64
	ToRaw  func(real float64) (int64, error)
}

func (f *Format) String() string { return f.Name }

func (f *Format) validate() error {
	if f == nil {
		return errors.New("format: nil format")
	}
	if f.Name == "" {
		return errors.New("format: empty name")
	}
	if f.ToReal == nil || f.ToRaw == nil {
		return fmt.Errorf("format %q: both conversion functions are required", f.Name)
	}
	return nil
}

// None passes raw values through unchanged. ToRaw rejects values that are
// not whole numbers.
var None = &Format{
	Name:        NoneName,
	Description: "No formatting applied to data.",
	ToReal:      func(raw int64) float64 { return float64(raw) },
	ToRaw: func(v float64) (int64, error) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("format %s: %v is not an integer", NoneName, v)
		}
		return toInt(v)
	},
}

// toInt converts an integral float to int64, failing outside the int64 range.
func toInt(v float64) (int64, error) {
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("format: %v out of range", v)
	}
	return int64(v), nil
}
