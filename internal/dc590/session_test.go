package dc590

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/regbridge/internal/smbus"
	"github.com/tamzrod/regbridge/internal/trace"
)

// fakePort answers frames from a script. Replies are queued synchronously on
// Write, so they are visible to the receiver before Write returns.
type fakePort struct {
	mu     sync.Mutex
	frames []string
	script map[string]string

	// hold, when set, blocks Write until closed; entered is signalled first.
	hold    chan struct{}
	entered chan struct{}

	data   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakePort(script map[string]string) *fakePort {
	return &fakePort{
		script: script,
		data:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.frames = append(p.frames, string(b))
	reply := p.script[string(b)]
	hold, entered := p.hold, p.entered
	p.mu.Unlock()

	if hold != nil {
		entered <- struct{}{}
		<-hold
	}
	if reply != "" {
		p.data <- []byte(reply)
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk := <-p.data:
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frames...)
}

type recorder struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *recorder) Log(e trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() trace.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newSession(t *testing.T, port *fakePort, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithoutInit(),
		WithSettle(5 * time.Millisecond),
		WithReadTimeout(50 * time.Millisecond),
	}
	s, err := New(port, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadWord(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S00sS13QRp": "3412"})
	s := newSession(t, port)

	v, err := s.ReadWordData(0x09, 0x00)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
	assert.Equal(t, StateComplete, s.LastState())
	assert.Equal(t, []string{"sS12S00sS13QRp"}, port.written())
}

func TestReadWordPEC(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S00sS13QQRp": "34123A"})
	s := newSession(t, port, WithPEC(true))

	v, err := s.ReadWordData(0x09, 0x00)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestReadWordPECMismatch(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S00sS13QQRp": "341200"})
	s := newSession(t, port, WithPEC(true))

	_, err := s.ReadWordData(0x09, 0x00)
	require.ErrorIs(t, err, smbus.ErrPecMismatch)
	assert.Equal(t, StatePecMismatch, s.LastState())

	var be *smbus.BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint8(0x3A), be.Want)
	assert.Equal(t, uint8(0x00), be.Got)
	assert.Equal(t, "341200", be.Response)
}

func TestReadClassification(t *testing.T) {
	tests := []struct {
		name  string
		pec   bool
		reply string
		kind  error
		state State
		extra string
	}{
		{name: "not acked", reply: "NNNN", kind: smbus.ErrNotAcked, state: StateNotAcked},
		{name: "not acked with pec", pec: true, reply: "NNNNNN", kind: smbus.ErrNotAcked, state: StateNotAcked},
		{name: "not acked then trailing", reply: "NN12\r\n", kind: smbus.ErrNotAcked, state: StateNotAcked, extra: "\r\n"},
		{name: "offline", reply: "XXXX", kind: smbus.ErrOffline, state: StateBridgeOffline},
		{name: "short", reply: "34", kind: smbus.ErrTimeout, state: StateTimeout},
		{name: "nothing", reply: "", kind: smbus.ErrTimeout, state: StateTimeout},
		{name: "long", reply: "3412FF", kind: smbus.ErrDesync, state: StateDesync, extra: "FF"},
		{name: "garbage", reply: "3?12", kind: smbus.ErrDesync, state: StateDesync},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := "sS12S1AsS13QRp"
			if tt.pec {
				frame = "sS12S1AsS13QQRp"
			}
			s := newSession(t, newFakePort(map[string]string{frame: tt.reply}), WithPEC(tt.pec))

			v, err := s.ReadWordData(0x09, 0x1A)
			require.ErrorIs(t, err, tt.kind)
			assert.Zero(t, v)
			assert.Equal(t, tt.state, s.LastState())

			var be *smbus.BusError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, "read_word", be.Op)
			assert.Equal(t, uint8(0x1A), be.Cmd)
			assert.Equal(t, tt.extra, be.Extra)
		})
	}
}

func TestLateReplyIsNotData(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S01sS13QRp": "BBBB"})
	s := newSession(t, port)

	_, err := s.ReadWordData(0x09, 0x00)
	require.ErrorIs(t, err, smbus.ErrTimeout)

	// The reply to the timed-out read shows up afterwards.
	port.data <- []byte("AAAA")
	require.Eventually(t, s.pending, time.Second, time.Millisecond)

	v, err := s.ReadWordData(0x09, 0x01)
	require.ErrorIs(t, err, smbus.ErrDesync)
	assert.Zero(t, v)
	assert.Equal(t, StateDesync, s.LastState())
	assert.Len(t, port.written(), 1, "frame is not sent while stale bytes are buffered")

	var be *smbus.BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "AAAA", be.Extra)
	assert.Contains(t, be.Error(), `unsolicited "AAAA"`)

	v, err = s.ReadWordData(0x09, 0x01)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBBBB), v)
}

func TestLateNackAfterWrite(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S00sS13QRp": "3412"})
	s := newSession(t, port)

	require.NoError(t, s.WriteWordData(0x09, 0x00, 0x1234))
	port.data <- []byte("N")
	require.Eventually(t, s.pending, time.Second, time.Millisecond)

	_, err := s.ReadWordData(0x09, 0x00)
	require.ErrorIs(t, err, smbus.ErrDesync)
	assert.Len(t, port.written(), 1)
	assert.False(t, s.Offline())
}

func TestLateOfflineSentinel(t *testing.T) {
	port := newFakePort(nil)
	s := newSession(t, port)

	port.data <- []byte("X")
	require.Eventually(t, s.pending, time.Second, time.Millisecond)

	err := s.WriteByteData(0x09, 0x17, 0xAB)
	require.ErrorIs(t, err, smbus.ErrOffline)
	assert.True(t, s.Offline())
	assert.Empty(t, port.written())
}

func TestOfflineLatches(t *testing.T) {
	port := newFakePort(map[string]string{"sS12S00sS13QRp": "XXXX"})
	s := newSession(t, port)

	_, err := s.ReadWordData(0x09, 0x00)
	require.ErrorIs(t, err, smbus.ErrOffline)
	assert.True(t, s.Offline())

	err = s.WriteWordData(0x09, 0x01, 0xFFFF)
	require.ErrorIs(t, err, smbus.ErrOffline)
	assert.Len(t, port.written(), 1, "no frame is sent once offline")
}

func TestWriteFrames(t *testing.T) {
	tests := []struct {
		name  string
		pec   bool
		do    func(*Session) error
		frame string
	}{
		{name: "word", do: func(s *Session) error { return s.WriteWordData(0x09, 0x00, 0x1234) }, frame: "sS12S00S34S12p"},
		{name: "word pec", pec: true, do: func(s *Session) error { return s.WriteWordData(0x09, 0x00, 0x1234) }, frame: "sS12S00S34S12S98p"},
		{name: "byte", do: func(s *Session) error { return s.WriteByteData(0x09, 0x17, 0xAB) }, frame: "sS12S17SABp"},
		{name: "send byte", do: func(s *Session) error { return s.SendByte(0x09, 0x7E) }, frame: "sS12S7Ep"},
		{name: "send byte pec", pec: true, do: func(s *Session) error { return s.SendByte(0x09, 0x7E) },
			frame: fmt.Sprintf("sS12S7ES%02Xp", smbus.PEC(0x12, 0x7E))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newFakePort(nil)
			s := newSession(t, port, WithPEC(tt.pec))

			require.NoError(t, tt.do(s))
			assert.Equal(t, []string{tt.frame}, port.written())
			assert.Equal(t, StateComplete, s.LastState())
		})
	}
}

func TestWriteReportsResponse(t *testing.T) {
	tests := []struct {
		reply string
		kind  error
	}{
		{reply: "N", kind: smbus.ErrNotAcked},
		{reply: "X", kind: smbus.ErrOffline},
		{reply: "12", kind: smbus.ErrDesync},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			port := newFakePort(map[string]string{"sS12S00S34S12p": tt.reply})
			s := newSession(t, port, WithWriteCheck(50*time.Millisecond))

			err := s.WriteWordData(0x09, 0x00, 0x1234)
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestReadByteAndReceiveByte(t *testing.T) {
	port := newFakePort(map[string]string{
		"sS12S05sS13Rp": "7F",
		"sS13QRp":       fmt.Sprintf("A5%02X", smbus.PEC(0x13, 0xA5)),
	})
	s := newSession(t, port)

	b, err := s.ReadByteData(0x09, 0x05)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), b)

	s.SetPEC(true)
	b, err = s.ReceiveByte(0x09)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xA5), b)
}

func TestAlertResponse(t *testing.T) {
	t.Run("responder", func(t *testing.T) {
		s := newSession(t, newFakePort(map[string]string{"sS19Rp": "12"}))
		addr, ok, err := s.AlertResponse()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint8(0x09), addr)
	})

	t.Run("responder with pec", func(t *testing.T) {
		reply := fmt.Sprintf("12%02X", smbus.PEC(0x19, 0x12))
		s := newSession(t, newFakePort(map[string]string{"sS19QRp": reply}), WithPEC(true))
		addr, ok, err := s.AlertResponse()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint8(0x09), addr)
	})

	t.Run("nobody", func(t *testing.T) {
		s := newSession(t, newFakePort(map[string]string{"sS19Rp": "NN"}))
		_, ok, err := s.AlertResponse()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, StateNotAcked, s.LastState())
	})

	t.Run("nobody with pec is not a pec error", func(t *testing.T) {
		s := newSession(t, newFakePort(map[string]string{"sS19QRp": "NNNN"}), WithPEC(true))
		_, ok, err := s.AlertResponse()
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBusyRejectsOverlap(t *testing.T) {
	hold := make(chan struct{})
	port := newFakePort(map[string]string{"sS12S00sS13QRp": "3412"})
	port.hold = hold
	port.entered = make(chan struct{}, 1)
	s := newSession(t, port)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReadWordData(0x09, 0x00)
		done <- err
	}()
	<-port.entered

	_, err := s.ReadWordData(0x09, 0x01)
	require.ErrorIs(t, err, smbus.ErrBusy)
	assert.Len(t, port.written(), 1, "the rejected transaction never reaches the port")

	close(hold)
	require.NoError(t, <-done)
}

func TestInvalidAddress(t *testing.T) {
	port := newFakePort(nil)
	s := newSession(t, port)

	_, err := s.ReadWordData(0x80, 0x00)
	require.Error(t, err)
	assert.Empty(t, port.written())
}

func TestHandshakeDiscardsBanner(t *testing.T) {
	port := newFakePort(map[string]string{
		strings.Repeat("\n", 10): "hello\r\n",
		"O":                      "isolated power on\r\n",
		"sS12S00sS13QRp":         "3412",
	})
	s, err := New(port,
		WithBootDelay(0),
		WithSettle(20*time.Millisecond),
		WithReadTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{strings.Repeat("\n", 10), "MI", "O"}, port.written())

	v, err := s.ReadWordData(0x09, 0x00)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestTraceEvents(t *testing.T) {
	rec := &recorder{}
	port := newFakePort(map[string]string{"sS12S00sS13QRp": "NNNN"})
	s := newSession(t, port, WithTrace(rec))

	_, err := s.ReadWordData(0x09, 0x00)
	require.Error(t, err)

	e := rec.last()
	assert.Equal(t, s.ID(), e.Session)
	assert.Equal(t, "read_word", e.Op)
	assert.Equal(t, "sS12S00sS13QRp", e.Request)
	assert.Equal(t, "NNNN", e.Response)
	assert.Equal(t, "NOT_ACKED", e.State)
	assert.True(t, e.Failed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_RESPONSE", StateAwaitingResponse.String())
	assert.Equal(t, "UNKNOWN", State(200).String())
	assert.False(t, StateFramed.Terminal())
	assert.True(t, StateDesync.Terminal())
}
