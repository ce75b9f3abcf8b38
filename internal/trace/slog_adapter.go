package trace

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level, or Warn for
// failed transactions.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.Session),
		slog.String("op", event.Op),
		slog.String("addr", fmt.Sprintf("0x%02X", event.Addr)),
	}
	if event.HasCmd {
		attrs = append(attrs, slog.String("cmd", fmt.Sprintf("0x%02X", event.Cmd)))
	}
	attrs = append(attrs,
		slog.String("request", event.Request),
		slog.String("response", event.Response),
		slog.String("state", event.State),
		slog.Duration("took", event.Duration),
	)

	level := slog.LevelDebug
	if event.Failed() {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Error))
	}
	a.logger.LogAttrs(context.Background(), level, "smbus", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
