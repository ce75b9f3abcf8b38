package dc590

import (
	"fmt"
	"time"

	"github.com/goburrow/serial"
)

// pollInterval is the serial driver's read timeout. It only bounds how long
// the receiver blocks in one Read; transaction timeouts are handled by the
// session.
const pollInterval = 50 * time.Millisecond

// OpenPort opens a serial device configured for the bridge (8N1) and starts
// a Session on it. A zero baud selects DefaultBaudRate.
func OpenPort(path string, baud int, opts ...Option) (*Session, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(&serial.Config{
		Address:  path,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  pollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("dc590: open %s: %w", path, err)
	}

	return New(port, opts...)
}

// isPollTimeout reports whether err only means that no byte arrived within
// the driver's read timeout.
func isPollTimeout(err error) bool {
	return err == serial.ErrTimeout
}
