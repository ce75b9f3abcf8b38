// cmd/regbridge/bus.go
package main

import (
	"fmt"
	"log"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/dc590"
	"github.com/tamzrod/regbridge/internal/smbus"
	"github.com/tamzrod/regbridge/internal/trace"
)

// openBus opens the configured bus. All devices share it, so it comes back
// serialized.
func openBus(b config.BridgeConfig, logger *slog.Logger, tracer trace.Logger) (smbus.Bus, func(), error) {
	switch b.Kind {
	case config.BridgeI2C:
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("i2c host init: %w", err)
		}
		bc, err := i2creg.Open(b.I2CBus)
		if err != nil {
			return nil, nil, fmt.Errorf("i2c bus %q: %w", b.I2CBus, err)
		}
		c := smbus.NewI2C(bc, b.PEC)
		logger.Info("native i2c bus opened", "bus", bc.String(), "pec", b.PEC)
		closeFn := func() {
			if err := bc.Close(); err != nil {
				log.Printf("i2c bus close failed: %v", err)
			}
		}
		return smbus.Serialize(c), closeFn, nil

	default:
		sess, err := dc590.OpenPort(b.Port, b.BaudRate, sessionOptions(b, logger, tracer)...)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := sess.Close(); err != nil {
				log.Printf("bridge close failed: %v", err)
			}
		}
		return smbus.Serialize(sess), closeFn, nil
	}
}

func sessionOptions(b config.BridgeConfig, logger *slog.Logger, tracer trace.Logger) []dc590.Option {
	opts := []dc590.Option{
		dc590.WithPEC(b.PEC),
		dc590.WithReadTimeout(time.Duration(b.TimeoutMs) * time.Millisecond),
		dc590.WithBootDelay(time.Duration(b.BootDelayMs) * time.Millisecond),
		dc590.WithSettle(time.Duration(b.SettleMs) * time.Millisecond),
		dc590.WithLogger(logger),
		dc590.WithTrace(tracer),
	}
	if b.SkipInit {
		opts = append(opts, dc590.WithoutInit())
	}
	return opts
}
