// cmd/regbridge/orchestrator.go
package main

import (
	"context"
	"log"
	"time"

	"github.com/tamzrod/regbridge/internal/poller"
	"github.com/tamzrod/regbridge/internal/status"
	"github.com/tamzrod/regbridge/internal/writer"
)

// orchestrator owns one device's delivery: data writes for every poll and
// the status block on change and on the 1 Hz tick.
type orchestrator struct {
	unitID        string
	data          writer.Writer
	status        writer.StatusWriter
	statusEnabled bool
	tracker       *status.Tracker
}

func (o *orchestrator) run(ctx context.Context, in <-chan poller.PollResult) {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	o.writeStatus("on start")

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			o.handle(res)

		case now := <-secTicker.C:
			if o.tracker.Tick(now) {
				o.writeStatus("on tick")
			}
		}
	}
}

func (o *orchestrator) handle(res poller.PollResult) {
	// --- data delivery ---
	if err := o.data.Write(res); err != nil {
		log.Printf("writer error (unit=%s): %v", o.unitID, err)
	}

	var fieldErr error
	switch {
	case res.Err != nil:
		log.Printf("poll failed (unit=%s): %v", o.unitID, res.Err)
	case res.Failed() > 0:
		fieldErr = res.Snapshot.FirstError()
		log.Printf("poll partial (unit=%s): %d fields failed, first: %v", o.unitID, res.Failed(), fieldErr)
	}

	// --- status update (device-level truth) ---
	if o.tracker.Observe(res.At, res.Err, res.Failed(), fieldErr) {
		o.writeStatus("")
	}
}

func (o *orchestrator) writeStatus(when string) {
	if !o.statusEnabled {
		return
	}
	if err := o.status.WriteStatus(o.tracker.Snapshot()); err != nil {
		if when != "" {
			when += " "
		}
		log.Printf("status write failed %s(unit=%s): %v", when, o.unitID, err)
	}
}
