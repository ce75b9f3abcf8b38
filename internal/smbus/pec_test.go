package smbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPEC(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{name: "empty", data: nil, expected: 0x00},
		{name: "zero byte", data: []byte{0x00}, expected: 0x00},
		{name: "reference pair", data: []byte{0x12, 0x34}, expected: 0xF1},
		{name: "check string", data: []byte("123456789"), expected: 0xF4},
		{name: "read word 0x09/0x00", data: []byte{0x12, 0x00, 0x13, 0x34, 0x12}, expected: 0x3A},
		{name: "write word 0x09/0x00", data: []byte{0x12, 0x00, 0x34, 0x12}, expected: 0x98},
		{name: "alert response", data: []byte{0x19}, expected: 0x4F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PEC(tt.data...), "PEC(% X)", tt.data)
		})
	}
}

func TestPECDeterministic(t *testing.T) {
	data := []byte{0x12, 0x00, 0x13, 0xFF, 0xFF}
	assert.Equal(t, PEC(data...), PEC(data...))
	assert.Equal(t, uint8(0xCD), PEC(data...))
}

func TestPECSingleBitFlip(t *testing.T) {
	base := []byte{0x12, 0x34}
	want := PEC(base...)
	for i := range base {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), base...)
			flipped[i] ^= 1 << bit
			assert.NotEqual(t, want, PEC(flipped...), "byte %d bit %d", i, bit)
		}
	}
}

func TestAddressHelpers(t *testing.T) {
	assert.Equal(t, uint8(0x12), WriteAddr(0x09))
	assert.Equal(t, uint8(0x13), ReadAddr(0x09))
	assert.Equal(t, uint16(0x1234), Word(0x34, 0x12))
	assert.NoError(t, ValidAddr(0x7F))
	assert.Error(t, ValidAddr(0x80))
}

func BenchmarkPEC(b *testing.B) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		PEC(data...)
	}
}
