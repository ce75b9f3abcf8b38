package dc590

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tamzrod/regbridge/internal/smbus"
	"github.com/tamzrod/regbridge/internal/trace"
)

// txn describes one SMBus transaction.
type txn struct {
	op     string
	addr   uint8
	cmd    uint8
	hasCmd bool
	pec    bool
	frame  string

	// n is the number of data bytes to read, zero for writes. cover holds the
	// bytes preceding the data in the PEC computation.
	n     int
	cover []byte

	// alert marks the alert response read, where a NACK is an answer.
	alert bool
}

// result is what came back for a txn.
type result struct {
	resp  string
	extra string
	data  []byte
}

func (t *txn) fail(kind error, r result) *smbus.BusError {
	return &smbus.BusError{
		Op:       t.op,
		Addr:     t.addr,
		Cmd:      t.cmd,
		HasCmd:   t.hasCmd,
		Kind:     kind,
		Response: r.resp,
		Extra:    r.extra,
	}
}

// run executes t and records its outcome. For an alert response read with no
// responder both the data and the error are nil.
func (s *Session) run(t *txn) ([]byte, error) {
	if err := smbus.ValidAddr(t.addr); err != nil {
		return nil, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		err := t.fail(smbus.ErrBusy, result{})
		s.record(t, result{}, StateBusy, err, 0)
		return nil, err
	}
	defer s.busy.Store(false)

	start := time.Now()
	r, err := s.exchange(t)
	state := stateOf(err)
	if t.alert && err == nil && r.data == nil {
		state = StateNotAcked
	}
	s.setState(state)
	s.record(t, r, state, err, time.Since(start))

	if err != nil {
		return nil, err
	}
	return r.data, nil
}

func (s *Session) record(t *txn, r result, state State, err error, took time.Duration) {
	e := trace.Event{
		Time:     time.Now(),
		Session:  s.id,
		Op:       t.op,
		Addr:     t.addr,
		Cmd:      t.cmd,
		HasCmd:   t.hasCmd,
		PEC:      t.pec,
		Request:  t.frame,
		Response: r.resp + r.extra,
		State:    state.String(),
		Duration: took,
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.cfg.Trace.Log(e)
}

func (s *Session) exchange(t *txn) (result, error) {
	if s.Offline() {
		return result{}, t.fail(smbus.ErrOffline, result{})
	}

	// Bytes buffered before the frame goes out belong to an earlier
	// transaction. The frame is not sent.
	if s.pending() {
		r := result{extra: s.drain()}
		if strings.ContainsRune(r.extra, 'X') {
			s.latchOffline()
			return r, t.fail(smbus.ErrOffline, r)
		}
		return r, t.fail(smbus.ErrDesync, r)
	}

	s.setState(StateFramed)
	if _, err := io.WriteString(s.port, t.frame); err != nil {
		return result{}, fmt.Errorf("dc590 %s addr=0x%02X: write frame: %w", t.op, t.addr, err)
	}

	s.setState(StateAwaitingResponse)
	if t.n == 0 {
		return s.finishWrite(t)
	}
	return s.finishRead(t)
}

// finishWrite checks that the bridge stayed silent.
func (s *Session) finishWrite(t *txn) (result, error) {
	if s.cfg.WriteCheck > 0 {
		s.wait(1, s.cfg.WriteCheck)
	}
	if !s.pending() {
		return result{}, nil
	}

	r := result{resp: s.drain()}
	switch {
	case strings.ContainsRune(r.resp, 'N'):
		return r, t.fail(smbus.ErrNotAcked, r)
	case strings.ContainsRune(r.resp, 'X'):
		s.latchOffline()
		return r, t.fail(smbus.ErrOffline, r)
	default:
		return r, t.fail(smbus.ErrDesync, r)
	}
}

// finishRead collects the expected characters and classifies them. Order
// matters: a short response, then PEC, then the bridge's N and X sentinels,
// then anything left over.
func (s *Session) finishRead(t *txn) (result, error) {
	want := 2 * t.n
	if t.pec {
		want += 2
	}
	s.wait(want, s.cfg.ReadTimeout)

	var r result
	r.resp = s.take(want)

	if t.alert && strings.HasPrefix(r.resp, "N") {
		if s.pending() {
			r.extra = s.drain()
		}
		return r, nil
	}

	if len(r.resp) < want {
		return r, t.fail(smbus.ErrTimeout, r)
	}

	isHex := allHex(r.resp)
	if t.pec && isHex {
		raw, _ := hex.DecodeString(r.resp)
		covered := append(append([]byte(nil), t.cover...), raw[:t.n]...)
		if exp, got := smbus.PEC(covered...), raw[t.n]; exp != got {
			e := t.fail(smbus.ErrPecMismatch, r)
			e.Want, e.Got = exp, got
			return r, e
		}
	}

	switch {
	case strings.ContainsRune(r.resp, 'N'):
		r.extra = s.drain()
		return r, t.fail(smbus.ErrNotAcked, r)
	case strings.ContainsRune(r.resp, 'X'):
		r.extra = s.drain()
		s.latchOffline()
		return r, t.fail(smbus.ErrOffline, r)
	case s.pending():
		r.extra = s.drain()
		return r, t.fail(smbus.ErrDesync, r)
	case !isHex:
		return r, t.fail(smbus.ErrDesync, r)
	}

	raw, _ := hex.DecodeString(r.resp)
	r.data = raw[:t.n]
	return r, nil
}
