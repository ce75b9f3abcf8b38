// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/regbridge/internal/device"
)

// Source abstracts the device operation needed by the poller.
type Source interface {
	Snapshot(ctx context.Context) *device.Snapshot
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	source Source
}

// New creates a poller with immutable config.
func New(cfg Config, source Source) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if source == nil {
		return nil, errors.New("poller: source required")
	}
	return &Poller{cfg: cfg, source: source}, nil
}

// PollOnce performs exactly one poll cycle.
// Field failures stay in the snapshot; Err is set only when no register
// could be read at all.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	snap := p.source.Snapshot(ctx)

	res := PollResult{
		UnitID:   p.cfg.UnitID,
		At:       snap.At,
		Snapshot: snap,
	}
	if snap.Failed() > 0 && len(snap.Registers) == 0 {
		res.Err = snap.FirstError()
	}
	return res
}
