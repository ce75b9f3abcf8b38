package smbus

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// I2C implements Bus on top of a periph.io I²C bus, for hosts where the
// device sits on a native adapter instead of behind a serial bridge.
// PEC is computed in software with PEC.
type I2C struct {
	bus i2c.Bus
	pec bool
}

var _ Bus = (*I2C)(nil)

// NewI2C wraps b. With pec set every transaction carries a packet error code.
func NewI2C(b i2c.Bus, pec bool) *I2C {
	return &I2C{bus: b, pec: pec}
}

// SetPEC switches packet error checking for subsequent transactions.
func (c *I2C) SetPEC(on bool) { c.pec = on }

func (c *I2C) String() string {
	return fmt.Sprintf("smbus over %s (pec=%t)", c.bus, c.pec)
}

func (c *I2C) ReadWordData(addr, cmd uint8) (uint16, error) {
	r, err := c.read("read_word", addr, cmd, true, 2)
	if err != nil {
		return 0, err
	}
	return Word(r[0], r[1]), nil
}

func (c *I2C) WriteWordData(addr, cmd uint8, data uint16) error {
	return c.write("write_word", addr, cmd, true, byte(data), byte(data>>8))
}

func (c *I2C) ReadByteData(addr, cmd uint8) (uint8, error) {
	r, err := c.read("read_byte", addr, cmd, true, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (c *I2C) WriteByteData(addr, cmd uint8, data uint8) error {
	return c.write("write_byte", addr, cmd, true, data)
}

func (c *I2C) ReceiveByte(addr uint8) (uint8, error) {
	r, err := c.read("receive_byte", addr, 0, false, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (c *I2C) SendByte(addr uint8, data uint8) error {
	return c.write("send_byte", addr, 0, false, data)
}

// AlertResponse treats any failed transaction on the alert response address
// other than a PEC mismatch as "no responder": many host adapters report a
// NACK as an opaque error.
func (c *I2C) AlertResponse() (uint8, bool, error) {
	r, err := c.read("alert_response", AlertResponseAddress, 0, false, 1)
	if err != nil {
		if errors.Is(err, ErrPecMismatch) {
			return 0, false, err
		}
		return 0, false, nil
	}
	return r[0] >> 1, true, nil
}

func (c *I2C) read(op string, addr, cmd uint8, hasCmd bool, n int) ([]byte, error) {
	var w []byte
	covered := []byte{}
	if hasCmd {
		w = []byte{cmd}
		covered = append(covered, WriteAddr(addr), cmd)
	}
	covered = append(covered, ReadAddr(addr))

	want := n
	if c.pec {
		want++
	}
	r := make([]byte, want)
	if err := c.bus.Tx(uint16(addr), w, r); err != nil {
		return nil, adapterError(op, addr, cmd, hasCmd, err)
	}
	if c.pec {
		covered = append(covered, r[:n]...)
		if got, exp := r[n], PEC(covered...); got != exp {
			return nil, &BusError{
				Op: op, Addr: addr, Cmd: cmd, HasCmd: hasCmd,
				Kind: ErrPecMismatch,
				Want: exp, Got: got,
			}
		}
	}
	return r[:n], nil
}

func (c *I2C) write(op string, addr, cmd uint8, hasCmd bool, data ...byte) error {
	var w []byte
	if hasCmd {
		w = append(w, cmd)
	}
	w = append(w, data...)
	if c.pec {
		w = append(w, PEC(append([]byte{WriteAddr(addr)}, w...)...))
	}
	if err := c.bus.Tx(uint16(addr), w, nil); err != nil {
		return adapterError(op, addr, cmd, hasCmd, err)
	}
	return nil
}

// adapterError classifies a failed Tx. A NACK is only recognised when the
// adapter reports it as such; everything else is ErrAdapter.
func adapterError(op string, addr, cmd uint8, hasCmd bool, err error) *BusError {
	kind := ErrAdapter
	if isNack(err) {
		kind = ErrNotAcked
	}
	return &BusError{Op: op, Addr: addr, Cmd: cmd, HasCmd: hasCmd, Kind: kind, Cause: err}
}
