package device

import (
	"context"
	"time"

	"github.com/tamzrod/regbridge/internal/bitfield"
	"github.com/tamzrod/regbridge/internal/regmap"
)

// Snapshot is the decoded content of every readable field at one point in
// time.
type Snapshot struct {
	At      time.Time
	Address uint8

	// Fields lists the readable fields in map order. Each is in exactly one
	// of Values and Errors.
	Fields []string

	Registers map[uint8]uint16
	Values    map[string]bitfield.Value
	Errors    map[string]error
}

// Failed returns the number of fields that could not be read.
func (s *Snapshot) Failed() int { return len(s.Errors) }

// FirstError returns the error of the first failed field in map order.
func (s *Snapshot) FirstError() error {
	for _, name := range s.Fields {
		if err, ok := s.Errors[name]; ok {
			return err
		}
	}
	return nil
}

// Snapshot reads every readable register once and decodes all of its
// readable fields from that one word. A failed register marks all of its
// fields failed and the walk goes on. Once ctx is done no further
// transaction is started and the remaining fields carry ctx.Err().
func (d *Device) Snapshot(ctx context.Context) *Snapshot {
	addr := d.Address()
	s := &Snapshot{
		At:        time.Now(),
		Address:   addr,
		Registers: make(map[uint8]uint16),
		Values:    make(map[string]bitfield.Value),
		Errors:    make(map[string]error),
	}

	var cmds []uint8
	byCmd := make(map[uint8][]regmap.Field)
	for _, f := range d.m.Fields() {
		if !f.Access.Readable() {
			continue
		}
		if _, seen := byCmd[f.Command]; !seen {
			cmds = append(cmds, f.Command)
		}
		byCmd[f.Command] = append(byCmd[f.Command], f)
		s.Fields = append(s.Fields, f.Name)
	}

	for _, cmd := range cmds {
		fields := byCmd[cmd]
		if err := ctx.Err(); err != nil {
			markAll(s, fields, err)
			continue
		}
		reg, err := d.bus.ReadWordData(addr, cmd)
		if err != nil {
			d.log.Warn("register read failed", "cmd", cmd, "fields", len(fields), "err", err)
			markAll(s, fields, err)
			continue
		}
		s.Registers[cmd] = reg
		for _, f := range fields {
			v, err := d.eng.Decode(f, reg)
			if err != nil {
				s.Errors[f.Name] = err
				continue
			}
			s.Values[f.Name] = v
		}
	}
	return s
}

func markAll(s *Snapshot, fields []regmap.Field, err error) {
	for _, f := range fields {
		s.Errors[f.Name] = err
	}
}
