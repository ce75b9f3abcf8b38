package bitfield

import "fmt"

// Error codes reported through Code().
const (
	CodeField uint16 = 0x20
	CodeRange uint16 = 0x21
)

// FieldError reports a request the field cannot serve: unknown name, wrong
// direction, unknown preset label or a missing format.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Code() uint16 { return CodeField }

// RangeError reports a raw value that does not fit the field.
type RangeError struct {
	Field  string
	Value  int64
	Width  uint8
	Signed bool
}

func (e *RangeError) Error() string {
	kind := "unsigned"
	if e.Signed {
		kind = "signed"
	}
	if e.Field == "" {
		return fmt.Sprintf("value %d does not fit in %d-bit %s field", e.Value, e.Width, kind)
	}
	return fmt.Sprintf("value %d does not fit in %d-bit %s field %q", e.Value, e.Width, kind, e.Field)
}

func (e *RangeError) Code() uint16 { return CodeRange }
