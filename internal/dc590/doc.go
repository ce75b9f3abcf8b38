// Package dc590 implements smbus.Bus over the ASCII token protocol spoken by
// DC590B-compatible USB/serial I²C bridges (and Linduino boards running the
// DC590 emulator sketch).
//
// Every SMBus transaction is sent as one frame of single-letter tokens:
//
//	s      start or repeated start
//	Sxx    send byte xx (two upper-case hex digits)
//	Q      read byte, ACK
//	R      read byte, NACK (last byte)
//	p      stop
//
// The bridge answers each read byte with two hex digits, 'N' in place of data
// when the target did not acknowledge, or 'X' when its EEPROM self-check
// failed and it refuses further communication.
//
// A Session allows one outstanding transaction at a time. Devices sharing a
// bridge must be serialized by the caller, typically with smbus.Serialize.
package dc590
