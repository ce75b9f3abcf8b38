package dc590

import "github.com/tamzrod/regbridge/internal/smbus"

// read frames a read of n data bytes, preceded by a command code when hasCmd
// is set: sS{wa}S{cmd}sS{ra}Q..Rp, or sS{ra}Q..Rp without one.
func (s *Session) read(op string, addr, cmd uint8, hasCmd bool, n int) *txn {
	t := &txn{op: op, addr: addr, cmd: cmd, hasCmd: hasCmd, n: n, pec: s.PEC()}

	f := new(frame).start()
	if hasCmd {
		t.cover = []byte{smbus.WriteAddr(addr), cmd}
		f.send(t.cover...).start()
	}
	t.cover = append(t.cover, smbus.ReadAddr(addr))
	f.send(smbus.ReadAddr(addr))
	if t.pec {
		f.read(n + 1)
	} else {
		f.read(n)
	}
	t.frame = f.stop()
	return t
}

// write frames sS{wa}[S{cmd}]S{data}..[S{pec}]p.
func (s *Session) write(op string, addr, cmd uint8, hasCmd bool, data ...byte) *txn {
	t := &txn{op: op, addr: addr, cmd: cmd, hasCmd: hasCmd, pec: s.PEC()}

	b := []byte{smbus.WriteAddr(addr)}
	if hasCmd {
		b = append(b, cmd)
	}
	b = append(b, data...)
	if t.pec {
		b = append(b, smbus.PEC(b...))
	}
	t.frame = new(frame).start().send(b...).stop()
	return t
}

// ReadWordData implements the SMBus read word protocol. The word arrives low
// byte first.
func (s *Session) ReadWordData(addr, cmd uint8) (uint16, error) {
	data, err := s.run(s.read("read_word", addr, cmd, true, 2))
	if err != nil {
		return 0, err
	}
	return smbus.Word(data[0], data[1]), nil
}

// WriteWordData implements the SMBus write word protocol.
func (s *Session) WriteWordData(addr, cmd uint8, data uint16) error {
	_, err := s.run(s.write("write_word", addr, cmd, true, byte(data), byte(data>>8)))
	return err
}

func (s *Session) ReadByteData(addr, cmd uint8) (uint8, error) {
	data, err := s.run(s.read("read_byte", addr, cmd, true, 1))
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (s *Session) WriteByteData(addr, cmd uint8, data uint8) error {
	_, err := s.run(s.write("write_byte", addr, cmd, true, data))
	return err
}

func (s *Session) ReceiveByte(addr uint8) (uint8, error) {
	data, err := s.run(s.read("receive_byte", addr, 0, false, 1))
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (s *Session) SendByte(addr uint8, data uint8) error {
	_, err := s.run(s.write("send_byte", addr, 0, false, data))
	return err
}

// AlertResponse reads one byte from the alert response address. A NACK
// there means no device is asserting SMBALERT.
func (s *Session) AlertResponse() (uint8, bool, error) {
	t := s.read("alert_response", smbus.AlertResponseAddress, 0, false, 1)
	t.alert = true

	data, err := s.run(t)
	if err != nil {
		return 0, false, err
	}
	if data == nil {
		return 0, false, nil
	}
	return data[0] >> 1, true, nil
}
