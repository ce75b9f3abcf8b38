// Package smbus defines the SMBus primitive contract shared by every
// transport, the packet error checking CRC and the bus error taxonomy.
package smbus

import (
	"fmt"
	"sync"
)

// AlertResponseAddress is the reserved 7-bit address read to find out
// which device pulled the SMBALERT line.
const AlertResponseAddress uint8 = 0x0C

// Bus is the set of SMBus protocols a transport must provide.
// Addresses are right-justified 7-bit addresses with the R/W bit omitted.
//
// Implementations block until the transaction completes or fails. They do not
// retry: re-issuing an ambiguous write may apply a side effect twice.
type Bus interface {
	ReadWordData(addr, cmd uint8) (uint16, error)
	WriteWordData(addr, cmd uint8, data uint16) error
	ReadByteData(addr, cmd uint8) (uint8, error)
	WriteByteData(addr, cmd uint8, data uint8) error
	ReceiveByte(addr uint8) (uint8, error)
	SendByte(addr uint8, data uint8) error

	// AlertResponse reports the address of the device answering the alert
	// response address. ok is false when nobody answered; that is not an error.
	AlertResponse() (addr uint8, ok bool, err error)
}

// WordBus is the subset of Bus used by register-oriented code.
type WordBus interface {
	ReadWordData(addr, cmd uint8) (uint16, error)
	WriteWordData(addr, cmd uint8, data uint16) error
}

// WriteAddr returns the 8-bit write address for a 7-bit address.
func WriteAddr(addr uint8) uint8 { return addr << 1 }

// ReadAddr returns the 8-bit read address for a 7-bit address.
func ReadAddr(addr uint8) uint8 { return addr<<1 | 1 }

// Word assembles a 16-bit SMBus word from its wire bytes (low byte first).
func Word(lo, hi uint8) uint16 { return uint16(hi)<<8 | uint16(lo) }

// ValidAddr checks that addr fits in 7 bits.
func ValidAddr(addr uint8) error {
	if addr > 0x7F {
		return fmt.Errorf("smbus: address 0x%02X does not fit in 7 bits", addr)
	}
	return nil
}

// Serialize wraps b so that each primitive holds a lock for the duration of
// one transaction. Use one wrapper per physical channel when several devices
// share it.
//
// A bit-field read-modify-write is two transactions and is not covered.
func Serialize(b Bus) Bus {
	if s, ok := b.(*serialized); ok {
		return s
	}
	return &serialized{bus: b}
}

type serialized struct {
	mu  sync.Mutex
	bus Bus
}

func (s *serialized) ReadWordData(addr, cmd uint8) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.ReadWordData(addr, cmd)
}

func (s *serialized) WriteWordData(addr, cmd uint8, data uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.WriteWordData(addr, cmd, data)
}

func (s *serialized) ReadByteData(addr, cmd uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.ReadByteData(addr, cmd)
}

func (s *serialized) WriteByteData(addr, cmd uint8, data uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.WriteByteData(addr, cmd, data)
}

func (s *serialized) ReceiveByte(addr uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.ReceiveByte(addr)
}

func (s *serialized) SendByte(addr uint8, data uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.SendByte(addr, data)
}

func (s *serialized) AlertResponse() (uint8, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.AlertResponse()
}
