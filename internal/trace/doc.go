// Package trace records one machine-readable event per bus transaction.
//
// It is separate from operational logging (slog): a trace is the complete
// request/response record of a session, suitable for replaying a failure
// after the fact.
//
//	// console while developing
//	logger := trace.NewSlogAdapter(slog.Default())
//
//	// CBOR file in production
//	file, _ := trace.NewFileLogger("/var/log/regbridge/bus.trace")
//
//	// both
//	logger = trace.NewMultiLogger(logger, file)
package trace
