package smbus

import (
	"errors"
	"fmt"
	"strings"
)

// Bus failure kinds. A *BusError unwraps to exactly one of these.
var (
	ErrNotAcked    = errors.New("not acknowledged")
	ErrOffline     = errors.New("bridge offline")
	ErrPecMismatch = errors.New("packet error code mismatch")
	ErrDesync      = errors.New("response desynchronized")
	ErrTimeout     = errors.New("short response")
	ErrBusy        = errors.New("transaction already outstanding")
	ErrAdapter     = errors.New("adapter failure")
)

// Error codes reported through Code(). They end up in the health block.
const (
	CodeNotAcked    uint16 = 0x10
	CodeOffline     uint16 = 0x11
	CodePecMismatch uint16 = 0x12
	CodeDesync      uint16 = 0x13
	CodeTimeout     uint16 = 0x14
	CodeBusy        uint16 = 0x15
	CodeBus         uint16 = 0x1F
)

// BusError describes one failed bus transaction.
type BusError struct {
	Op     string // read_word, write_byte, alert_response, ...
	Addr   uint8
	Cmd    uint8
	HasCmd bool

	Kind error

	// Cause is the host adapter's own error, if any.
	Cause error

	// Response is the raw text received for the transaction. Extra is what
	// arrived after the expected length, or what was already buffered when
	// the transaction started.
	Response string
	Extra    string

	// Want and Got are set for ErrPecMismatch.
	Want, Got uint8
}

func (e *BusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "smbus %s addr=0x%02X", e.Op, e.Addr)
	if e.HasCmd {
		fmt.Fprintf(&b, " cmd=0x%02X", e.Cmd)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if errors.Is(e.Kind, ErrPecMismatch) {
		fmt.Fprintf(&b, " (want 0x%02X, got 0x%02X)", e.Want, e.Got)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	switch {
	case e.Response != "" && e.Extra != "":
		fmt.Fprintf(&b, ": response %q then %q", e.Response, e.Extra)
	case e.Response != "":
		fmt.Fprintf(&b, ": response %q", e.Response)
	case e.Extra != "":
		fmt.Fprintf(&b, ": unsolicited %q", e.Extra)
	}
	return b.String()
}

func (e *BusError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Code maps the failure kind to a stable numeric code.
func (e *BusError) Code() uint16 {
	switch {
	case errors.Is(e.Kind, ErrNotAcked):
		return CodeNotAcked
	case errors.Is(e.Kind, ErrOffline):
		return CodeOffline
	case errors.Is(e.Kind, ErrPecMismatch):
		return CodePecMismatch
	case errors.Is(e.Kind, ErrDesync):
		return CodeDesync
	case errors.Is(e.Kind, ErrTimeout):
		return CodeTimeout
	case errors.Is(e.Kind, ErrBusy):
		return CodeBusy
	default:
		return CodeBus
	}
}
