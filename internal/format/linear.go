package format

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"
)

// Point is one calibration point. Both coordinates are arithmetic
// expressions over numeric literals and constant names.
type Point struct {
	Raw  string
	Real string
}

// UnmarshalYAML accepts a two-element sequence: [raw, real].
func (p *Point) UnmarshalYAML(n *yaml.Node) error {
	var pair []string
	if err := n.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: calibration point needs [raw, real], got %d values", n.Line, len(pair))
	}
	p.Raw, p.Real = pair[0], pair[1]
	return nil
}

// Calibration describes a calibrated piecewise-linear format.
type Calibration struct {
	Description string  `yaml:"description"`
	Signed      bool    `yaml:"signed"`
	Points      []Point `yaml:"points"`
}

type xy struct{ x, y float64 }

// NewLinear evaluates cal against constants and builds the format.
//
// ToReal interpolates linearly between the points sorted by raw value and
// extrapolates from the end segments. ToRaw does the same with the points
// sorted by real value and rounds half away from zero.
func NewLinear(name string, cal Calibration, constants map[string]float64) (*Format, error) {
	if len(cal.Points) < 2 {
		return nil, fmt.Errorf("format %q: need at least two calibration points, got %d", name, len(cal.Points))
	}

	env := make(map[string]any, len(constants))
	for k, v := range constants {
		env[k] = v
	}

	pts := make([]xy, len(cal.Points))
	for i, p := range cal.Points {
		raw, err := Eval(p.Raw, env)
		if err != nil {
			return nil, fmt.Errorf("format %q point %d raw: %w", name, i, err)
		}
		real, err := Eval(p.Real, env)
		if err != nil {
			return nil, fmt.Errorf("format %q point %d real: %w", name, i, err)
		}
		pts[i] = xy{raw, real}
	}

	forward, err := curve(pts, func(p xy) (float64, float64) { return p.x, p.y })
	if err != nil {
		return nil, fmt.Errorf("format %q: raw values: %w", name, err)
	}
	inverse, err := curve(pts, func(p xy) (float64, float64) { return p.y, p.x })
	if err != nil {
		return nil, fmt.Errorf("format %q: real values: %w", name, err)
	}

	return &Format{
		Name:        name,
		Description: cal.Description,
		Signed:      cal.Signed,
		ToReal: func(raw int64) float64 {
			return forward(float64(raw))
		},
		ToRaw: func(v float64) (int64, error) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("format %q: cannot convert %v", name, v)
			}
			return toInt(math.Round(inverse(v)))
		},
	}, nil
}

// curve returns the piecewise-linear function through pts, with pick
// choosing which coordinate is the input.
func curve(pts []xy, pick func(xy) (float64, float64)) (func(float64) float64, error) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	order := make([]int, len(pts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		xa, _ := pick(pts[order[a]])
		xb, _ := pick(pts[order[b]])
		return xa < xb
	})
	for i, j := range order {
		xs[i], ys[i] = pick(pts[j])
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) || math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return nil, errors.New("calibration point is not finite")
		}
		if i > 0 && xs[i] == xs[i-1] {
			return nil, fmt.Errorf("duplicate calibration value %v", xs[i])
		}
	}
	return func(x float64) float64 { return interpolate(xs, ys, x) }, nil
}

// interpolate evaluates the polyline through (xs, ys) at x. xs is strictly
// increasing with at least two entries.
func interpolate(xs, ys []float64, x float64) float64 {
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i < 1:
		i = 1
	case i > len(xs)-1:
		i = len(xs) - 1
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	if x == x0 {
		return y0
	}
	if x == x1 {
		return y1
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// Eval evaluates an arithmetic expression against env and returns a float.
func Eval(src string, env map[string]any) (float64, error) {
	out, err := expr.Eval(src, env)
	if err != nil {
		return 0, err
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expression %q yields %T, not a number", src, out)
	}
}
