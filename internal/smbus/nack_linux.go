package smbus

import (
	"errors"
	"syscall"
)

// i2c-dev reports a NACK as ENXIO or, for some bus drivers, EREMOTEIO.
func isNack(err error) bool {
	return errors.Is(err, syscall.ENXIO) || errors.Is(err, syscall.EREMOTEIO)
}
