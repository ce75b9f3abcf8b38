package dc590

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/regbridge/internal/smbus"
)

// Session owns the serial channel to one bridge.
//
// A receiver goroutine moves every byte arriving on the port into an
// in-memory buffer, so the session can tell bytes that are already pending
// apart from bytes that have not arrived yet.
type Session struct {
	cfg  Config
	port io.ReadWriteCloser
	id   string
	log  *slog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	buf     []byte
	rxErr   error
	pec     bool
	offline bool
	state   State

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ smbus.Bus = (*Session)(nil)

// New starts a session on port and, unless WithoutInit is given, runs the
// bridge start-up handshake. The session owns port from here on: it is
// closed by Close, or by New itself when the handshake fails.
func New(port io.ReadWriteCloser, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ReadTimeout <= 0 {
		port.Close()
		return nil, errors.New("dc590: read timeout must be positive")
	}

	id := uuid.NewString()
	s := &Session{
		cfg:    cfg,
		port:   port,
		id:     id,
		log:    cfg.Logger.With("session", id),
		pec:    cfg.PEC,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.receive()

	if !cfg.SkipInit {
		if err := s.handshake(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// handshake wakes the bridge out of its bootloader and switches it to
// isolated I²C mode with isolated power on. Whatever the bridge prints in
// the meantime is discarded.
func (s *Session) handshake() error {
	time.Sleep(s.cfg.BootDelay)
	if _, err := io.WriteString(s.port, strings.Repeat("\n", 10)); err != nil {
		return fmt.Errorf("dc590: wake bridge: %w", err)
	}
	time.Sleep(s.cfg.BootDelay)
	for _, cmd := range []string{"MI", "O"} {
		if _, err := io.WriteString(s.port, cmd); err != nil {
			return fmt.Errorf("dc590: send %q: %w", cmd, err)
		}
	}
	time.Sleep(s.cfg.Settle)

	banner := s.take(-1)
	s.log.Info("dc590 bridge ready", "banner", strings.TrimSpace(banner), "pec", s.PEC())
	return nil
}

func (s *Session) receive() {
	defer close(s.done)

	chunk := make([]byte, 64)
	for {
		n, err := s.port.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf = append(s.buf, chunk[:n]...)
			s.mu.Unlock()
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			if isPollTimeout(err) {
				continue
			}
			s.mu.Lock()
			s.rxErr = err
			s.mu.Unlock()
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Warn("dc590 receiver stopped", "err", err)
			}
			return
		}
	}
}

// ID identifies the session in traces and logs.
func (s *Session) ID() string { return s.id }

// PEC reports whether packet error checking is on.
func (s *Session) PEC() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pec
}

// SetPEC switches packet error checking for subsequent transactions.
func (s *Session) SetPEC(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pec = on
}

// Offline reports whether the bridge has reported a failed self-check.
// Once set, every transaction fails with smbus.ErrOffline without touching
// the port.
func (s *Session) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// LastState returns the state of the most recent transaction.
func (s *Session) LastState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) String() string {
	return fmt.Sprintf("dc590 session %s (pec=%t)", s.id, s.PEC())
}

// Close closes the port and waits for the receiver to stop.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
		select {
		case <-s.done:
		case <-time.After(time.Second):
			s.log.Warn("dc590 receiver did not stop after close")
		}
	})
	return s.closeErr
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) latchOffline() {
	s.mu.Lock()
	s.offline = true
	s.mu.Unlock()
	s.log.Error("dc590 bridge self-check failed, communication disabled")
}

// wait blocks until at least n bytes are buffered, d has elapsed, or the
// receiver has stopped.
func (s *Session) wait(n int, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		s.mu.Lock()
		have := len(s.buf)
		s.mu.Unlock()
		if have >= n {
			return
		}
		select {
		case <-s.notify:
		case <-s.done:
			return
		case <-timer.C:
			return
		}
	}
}

// take removes and returns up to n buffered bytes; n < 0 takes everything.
func (s *Session) take(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 || n > len(s.buf) {
		n = len(s.buf)
	}
	out := string(s.buf[:n])
	s.buf = append(s.buf[:0], s.buf[n:]...)
	return out
}

func (s *Session) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) > 0
}

// drain waits for the bridge to finish talking and returns what it said.
func (s *Session) drain() string {
	time.Sleep(s.cfg.Settle)
	return s.take(-1)
}
