// cmd/regbridge/main.go
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/device"
	"github.com/tamzrod/regbridge/internal/poller"
	"github.com/tamzrod/regbridge/internal/smbus"
	"github.com/tamzrod/regbridge/internal/status"
	"github.com/tamzrod/regbridge/internal/trace"
	"github.com/tamzrod/regbridge/internal/writer"
)

// staleFactor is the number of missed poll intervals after which a device
// is reported stale.
const staleFactor = 3

func main() {
	verbose := flag.Bool("v", false, "log every bus transaction and bit-field step")
	dumpPath := flag.String("dump-trace", "", "print a transaction trace file and exit")
	dumpOp := flag.String("op", "", "with -dump-trace: only this operation (read_word, write_byte, ...)")
	dumpAddr := flag.String("addr", "", "with -dump-trace: only this device address (e.g. 0x09)")
	dumpFailed := flag.Bool("failed", false, "with -dump-trace: only failed transactions")
	flag.Parse()

	if *dumpPath != "" {
		f, err := traceFilter(*dumpOp, *dumpAddr, *dumpFailed)
		if err != nil {
			log.Fatalf("trace dump: %v", err)
		}
		if err := dumpTrace(*dumpPath, f, os.Stdout); err != nil {
			log.Fatalf("trace dump: %v", err)
		}
		return
	}

	if flag.NArg() < 1 {
		log.Fatal("usage: regbridge [-v] <config.yaml> | regbridge -dump-trace <file> [-op op] [-addr addr] [-failed]")
	}

	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Bus
	// --------------------

	tracer, closeTrace, err := openTrace(cfg.Bridge, logger)
	if err != nil {
		log.Fatalf("trace open failed: %v", err)
	}
	defer closeTrace()

	bus, closeBus, err := openBus(cfg.Bridge, logger, tracer)
	if err != nil {
		log.Fatalf("bridge open failed: %v", err)
	}
	defer closeBus()

	maps, err := buildMaps(cfg.Devices)
	if err != nil {
		log.Fatalf("register map setup failed: %v", err)
	}

	// ---- writer clients (DATA + STATUS), shared by all devices ----
	clients, closeWriters, err := writer.BuildEndpointClients(cfg.Devices)
	if err != nil {
		log.Fatalf("writer clients failed: %v", err)
	}
	defer closeWriters()

	// --------------------
	// Build per-device pipelines
	// --------------------

	var wg sync.WaitGroup

	for _, d := range cfg.Devices {
		opts := []device.Option{device.WithLogger(logger.With("unit", d.ID))}
		if d.Address != nil {
			opts = append(opts, device.WithAddress(*d.Address))
		}
		dev, err := device.New(bus, maps[d.RegisterMap], opts...)
		if err != nil {
			log.Fatalf("device setup failed (unit=%s): %v", d.ID, err)
		}

		// ---- poller ----
		p, err := poller.Build(d, dev)
		if err != nil {
			log.Fatalf("poller build failed (unit=%s): %v", d.ID, err)
		}

		// ---- writer plan ----
		plan, err := writer.BuildPlan(d)
		if err != nil {
			log.Fatalf("writer plan failed (unit=%s): %v", d.ID, err)
		}

		dataWriter := writer.New(plan, clients)

		// Status writer (optional per device)
		statusWriter, statusEnabled := writer.NewDeviceStatusWriter(plan, clients)

		tracker := status.NewTracker(staleFactor * time.Duration(d.Poll.IntervalMs) * time.Millisecond)
		tracker.Disabling = status.IsAny(smbus.ErrOffline)

		// ---- channel between poller and writer ----
		out := make(chan poller.PollResult)

		log.Printf("unit %s: %s polling every %dms, %d targets", d.ID, dev, d.Poll.IntervalMs, len(plan.Targets))

		wg.Add(2)
		go func() {
			defer wg.Done()
			o := &orchestrator{
				unitID:        d.ID,
				data:          dataWriter,
				status:        statusWriter,
				statusEnabled: statusEnabled,
				tracker:       tracker,
			}
			o.run(ctx, out)
		}()

		// poller producer
		go func() {
			defer wg.Done()
			p.Run(ctx, out)
		}()
	}

	<-ctx.Done()
	log.Printf("shutting down")
	wg.Wait()
}

// openTrace sends transaction events to the debug log and, when configured,
// to a CBOR trace file.
func openTrace(b config.BridgeConfig, logger *slog.Logger) (trace.Logger, func(), error) {
	adapter := trace.NewSlogAdapter(logger)
	if b.TraceFile == "" {
		return adapter, func() {}, nil
	}

	f, err := trace.NewFileLogger(b.TraceFile)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := f.Close(); err != nil {
			log.Printf("trace close failed: %v", err)
		}
	}
	return trace.NewMultiLogger(adapter, f), closeFn, nil
}
