// Package bitfield reads and writes named bit-fields of 16-bit registers:
// extraction and packing, preset labels, two's complement and the format
// conversions declared in a regmap.Map.
package bitfield

// ones returns the largest value a width-bit field holds.
func ones(width uint8) uint16 {
	return uint16(uint32(1)<<width - 1)
}

// Extract returns the width bits of reg starting at offset.
func Extract(reg uint16, offset, width uint8) uint16 {
	return reg >> offset & ones(width)
}

// Mask returns reg's bits that lie outside the field: the bits an update of
// the field must preserve.
func Mask(offset, width uint8) uint16 {
	return ^(ones(width) << offset)
}

// Pack places data into the field at offset, keeping every other bit of old.
// data must fit in width bits.
func Pack(data int64, offset, width uint8, old uint16) (uint16, error) {
	if data < 0 || data > int64(ones(width)) {
		return 0, &RangeError{Value: data, Width: width}
	}
	return uint16(data)<<offset | old&Mask(offset, width), nil
}

// ToTwos encodes v as a width-bit two's complement value. Values outside
// [-2^(width-1), 2^(width-1)-1] are clamped to the nearest bound and clamped
// is reported.
func ToTwos(v int64, width uint8) (raw uint16, clamped bool) {
	lo := -(int64(1) << (width - 1))
	hi := int64(1)<<(width-1) - 1
	switch {
	case v > hi:
		v, clamped = hi, true
	case v < lo:
		v, clamped = lo, true
	}
	if v < 0 {
		v += int64(1) << width
	}
	return uint16(v), clamped
}

// FromTwos decodes a width-bit two's complement value.
func FromTwos(raw uint16, width uint8) int64 {
	v := int64(raw & ones(width))
	if v >= int64(1)<<(width-1) {
		v -= int64(1) << width
	}
	return v
}
