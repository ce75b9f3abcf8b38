package trace

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event is one bus transaction as seen by a transport session.
// CBOR encoding uses integer keys.
type Event struct {
	Time time.Time `cbor:"1,keyasint"`

	// Session identifies the transport session (UUID) that ran the transaction.
	Session string `cbor:"2,keyasint"`

	Op     string `cbor:"3,keyasint"`
	Addr   uint8  `cbor:"4,keyasint"`
	Cmd    uint8  `cbor:"5,keyasint,omitempty"`
	HasCmd bool   `cbor:"6,keyasint,omitempty"`
	PEC    bool   `cbor:"7,keyasint,omitempty"`

	// Request is the frame sent to the bridge, Response the raw text received
	// for it (including any trailing bytes that caused a desync).
	Request  string `cbor:"8,keyasint"`
	Response string `cbor:"9,keyasint,omitempty"`

	// State is the terminal transaction state (COMPLETE, NOT_ACKED, ...).
	State string `cbor:"10,keyasint"`
	Error string `cbor:"11,keyasint,omitempty"`

	Duration time.Duration `cbor:"12,keyasint,omitempty"`
}

// Failed reports whether the transaction ended in an error.
func (e Event) Failed() bool { return e.Error != "" }

// String renders e on one line:
//
//	time [session] op addr=0x09 cmd=0x1A pec STATE duration request -> response: error
func (e Event) String() string {
	var b strings.Builder
	session := e.Session
	if len(session) > 8 {
		session = session[:8]
	}
	fmt.Fprintf(&b, "%s [%s] %s addr=0x%02X",
		e.Time.UTC().Format("2006-01-02T15:04:05.000000Z"), session, e.Op, e.Addr)
	if e.HasCmd {
		fmt.Fprintf(&b, " cmd=0x%02X", e.Cmd)
	}
	if e.PEC {
		b.WriteString(" pec")
	}

	resp := e.Response
	if resp == "" || strings.ContainsAny(resp, " \r\n") {
		resp = strconv.Quote(resp)
	}
	fmt.Fprintf(&b, " %s %s %s -> %s", e.State, e.Duration, e.Request, resp)
	if e.Error != "" {
		fmt.Fprintf(&b, ": %s", e.Error)
	}
	return b.String()
}
