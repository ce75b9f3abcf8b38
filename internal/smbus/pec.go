package smbus

// PEC polynomial x^8 + x^2 + x^1 + 1 with the x^8 term discarded.
const PECPolynomial = 0x07

// PEC computes the SMBus packet error code over every byte of a transaction
// in wire order: address byte(s), command code, then data.
//
// CRC-8, initial value 0, MSB first, no final XOR.
func PEC(b ...byte) uint8 {
	var crc uint8
	for _, v := range b {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ PECPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
