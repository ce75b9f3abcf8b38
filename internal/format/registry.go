package format

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry owns the named formats of one register map together with the
// constants their calibration points refer to.
//
// Calibrated formats are rebuilt whenever a constant changes. Formats added
// with Register are kept as they are.
type Registry struct {
	mu         sync.RWMutex
	constants  map[string]float64
	cals       map[string]Calibration
	calibrated map[string]*Format
	custom     map[string]*Format
}

// NewRegistry builds every calibrated format in cals against constants.
func NewRegistry(constants map[string]float64, cals map[string]Calibration) (*Registry, error) {
	r := &Registry{
		constants: maps.Clone(constants),
		cals:      maps.Clone(cals),
		custom:    make(map[string]*Format),
	}
	if r.constants == nil {
		r.constants = make(map[string]float64)
	}
	if r.cals == nil {
		r.cals = make(map[string]Calibration)
	}
	if _, ok := r.cals[NoneName]; ok {
		return nil, fmt.Errorf("format %q is built in", NoneName)
	}

	built, err := build(r.cals, r.constants)
	if err != nil {
		return nil, err
	}
	r.calibrated = built
	return r, nil
}

func build(cals map[string]Calibration, constants map[string]float64) (map[string]*Format, error) {
	out := make(map[string]*Format, len(cals))
	for _, name := range slices.Sorted(maps.Keys(cals)) {
		f, err := NewLinear(name, cals[name], constants)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}

// Lookup returns the named format. Custom formats shadow calibrated ones of
// the same name.
func (r *Registry) Lookup(name string) (*Format, error) {
	if name == NoneName {
		return None, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.custom[name]; ok {
		return f, nil
	}
	if f, ok := r.calibrated[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknown, name)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Names lists every format, None included, in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := map[string]struct{}{NoneName: {}}
	for n := range r.calibrated {
		set[n] = struct{}{}
	}
	for n := range r.custom {
		set[n] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Register adds or replaces a custom format. None cannot be replaced.
func (r *Registry) Register(f *Format) error {
	if err := f.validate(); err != nil {
		return err
	}
	if f.Name == NoneName {
		return fmt.Errorf("format %q is built in", NoneName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom[f.Name] = f
	return nil
}

// Define adds or replaces a calibrated format built from cal.
func (r *Registry) Define(name string, cal Calibration) error {
	if name == NoneName {
		return fmt.Errorf("format %q is built in", NoneName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := NewLinear(name, cal, r.constants)
	if err != nil {
		return err
	}
	r.cals[name] = cal
	r.calibrated[name] = f
	return nil
}

// Constant returns the value of a named constant.
func (r *Registry) Constant(name string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.constants[name]
	return v, ok
}

// Constants returns a copy of all constants.
func (r *Registry) Constants() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.constants)
}

// SetConstant changes one constant and rebuilds every calibrated format.
// If any format fails to build the change is rejected and nothing changes.
func (r *Registry) SetConstant(name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.constants)
	next[name] = value

	built, err := build(r.cals, next)
	if err != nil {
		return fmt.Errorf("set constant %s=%v: %w", name, value, err)
	}
	r.constants = next
	r.calibrated = built
	return nil
}
