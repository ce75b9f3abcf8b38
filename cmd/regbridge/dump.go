// cmd/regbridge/dump.go
package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/tamzrod/regbridge/internal/smbus"
	"github.com/tamzrod/regbridge/internal/trace"
)

// traceFilter builds the -dump-trace filter from the command line flags.
func traceFilter(op, addr string, failedOnly bool) (trace.Filter, error) {
	f := trace.Filter{Op: op, FailedOnly: failedOnly}
	if addr == "" {
		return f, nil
	}
	v, err := strconv.ParseUint(addr, 0, 8)
	if err != nil {
		return f, fmt.Errorf("invalid -addr %q: %w", addr, err)
	}
	a := uint8(v)
	if err := smbus.ValidAddr(a); err != nil {
		return f, err
	}
	f.Addr = &a
	return f, nil
}

// dumpTrace prints every matching event of a trace file, one per line,
// followed by a summary.
func dumpTrace(path string, f trace.Filter, w io.Writer) error {
	r, err := trace.NewReader(path, f)
	if err != nil {
		return err
	}
	defer r.Close()

	sum, err := trace.Summarize(r, func(e trace.Event) error {
		_, err := fmt.Fprintln(w, e)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	_, err = sum.WriteTo(w)
	return err
}
