package dc590

import (
	"log/slog"
	"time"

	"github.com/tamzrod/regbridge/internal/trace"
)

// Defaults match the bridge firmware's expectations.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = time.Second
	DefaultBootDelay   = 2500 * time.Millisecond
	DefaultSettle      = 100 * time.Millisecond
)

// Config holds the session configuration.
type Config struct {
	// PEC enables packet error checking on every primitive.
	PEC bool

	// ReadTimeout bounds the wait for the expected response characters.
	ReadTimeout time.Duration

	// BootDelay is waited twice during start-up: Linduino boards sit in
	// their bootloader for a while after the port opens.
	BootDelay time.Duration

	// Settle is the pause before draining trailing bytes after an error,
	// and after the start-up commands.
	Settle time.Duration

	// WriteCheck is how long a write waits for an unsolicited response
	// before the transaction is considered complete.
	WriteCheck time.Duration

	// SkipInit suppresses the start-up handshake, for bridges that are
	// already in isolated I²C mode.
	SkipInit bool

	Logger *slog.Logger
	Trace  trace.Logger
}

func defaultConfig() Config {
	return Config{
		ReadTimeout: DefaultReadTimeout,
		BootDelay:   DefaultBootDelay,
		Settle:      DefaultSettle,
		Logger:      slog.Default(),
		Trace:       trace.NoopLogger{},
	}
}

// Option configures a Session.
type Option func(*Config)

func WithPEC(on bool) Option {
	return func(c *Config) { c.PEC = on }
}

func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReadTimeout = d }
}

func WithBootDelay(d time.Duration) Option {
	return func(c *Config) { c.BootDelay = d }
}

func WithSettle(d time.Duration) Option {
	return func(c *Config) { c.Settle = d }
}

// WithWriteCheck makes writes wait d for a NACK or offline report from the
// bridge. With the default of zero only bytes already pending are seen, and a
// late report surfaces as a desync on the next transaction.
func WithWriteCheck(d time.Duration) Option {
	return func(c *Config) { c.WriteCheck = d }
}

// WithoutInit skips the start-up handshake.
func WithoutInit() Option {
	return func(c *Config) { c.SkipInit = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithTrace records one event per transaction.
func WithTrace(l trace.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Trace = l
		}
	}
}
