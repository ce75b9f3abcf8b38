package trace

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

// Summary aggregates the events read from a trace.
type Summary struct {
	Events   int
	Failed   int
	ByState  map[string]int
	ByAddr   map[uint8]int
	Sessions int

	First, Last time.Time
	Slowest     Event
}

// Summarize reads r to the end, calling each (if not nil) for every event.
func Summarize(r *Reader, each func(Event) error) (Summary, error) {
	s := Summary{ByState: map[string]int{}, ByAddr: map[uint8]int{}}
	sessions := map[string]struct{}{}

	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("trace: event %d: %w", s.Events+1, err)
		}
		if each != nil {
			if err := each(e); err != nil {
				return s, err
			}
		}

		s.Events++
		if e.Failed() {
			s.Failed++
		}
		s.ByState[e.State]++
		s.ByAddr[e.Addr]++
		sessions[e.Session] = struct{}{}
		if s.First.IsZero() || e.Time.Before(s.First) {
			s.First = e.Time
		}
		if e.Time.After(s.Last) {
			s.Last = e.Time
		}
		if e.Duration > s.Slowest.Duration {
			s.Slowest = e
		}
	}
	s.Sessions = len(sessions)
	return s, nil
}

// WriteTo prints s as an indented report.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	fmt.Fprintf(cw, "events:   %d (%d failed) in %d session(s)\n", s.Events, s.Failed, s.Sessions)
	if s.Events == 0 {
		return cw.n, cw.err
	}
	fmt.Fprintf(cw, "span:     %s .. %s\n",
		s.First.UTC().Format(time.RFC3339), s.Last.UTC().Format(time.RFC3339))
	for _, st := range slices.Sorted(maps.Keys(s.ByState)) {
		fmt.Fprintf(cw, "state:    %-18s %d\n", st, s.ByState[st])
	}
	for _, a := range slices.Sorted(maps.Keys(s.ByAddr)) {
		fmt.Fprintf(cw, "addr:     0x%02X %d\n", a, s.ByAddr[a])
	}
	if s.Slowest.Duration > 0 {
		fmt.Fprintf(cw, "slowest:  %s\n", s.Slowest)
	}
	return cw.n, cw.err
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
