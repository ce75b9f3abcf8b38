// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tamzrod/regbridge/internal/poller"
)

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type modbusWriter struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &modbusWriter{
		plan:    plan,
		clients: clients,
	}
}

// Write mirrors the registers the poll managed to read. Registers that
// failed keep their previous content on the targets.
func (w *modbusWriter) Write(res poller.PollResult) error {
	if res.Err != nil || res.Snapshot == nil || len(res.Snapshot.Registers) == 0 {
		return nil
	}

	var errs []string
	blocks := Runs(res.Snapshot.Registers)

	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		for _, b := range blocks {
			dstAddr := tgt.Offset + uint16(b.Start)
			if err := cli.WriteRegisters(tgt.UnitID, dstAddr, b.Words); err != nil {
				errs = append(errs, fmt.Sprintf(
					"writer: ep=%s unit=%d cmd=0x%02X addr=%d err=%v",
					tgt.Endpoint, tgt.UnitID, b.Start, dstAddr, err,
				))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

// Run is a block of consecutive command codes.
type Run struct {
	Start uint8
	Words []uint16
}

// Runs groups register words by consecutive command code, in ascending
// order, so each group can go out as one multi-register write.
func Runs(regs map[uint8]uint16) []Run {
	cmds := make([]int, 0, len(regs))
	for cmd := range regs {
		cmds = append(cmds, int(cmd))
	}
	slices.Sort(cmds)

	var out []Run
	for i, cmd := range cmds {
		if i == 0 || cmd != cmds[i-1]+1 {
			out = append(out, Run{Start: uint8(cmd)})
		}
		last := &out[len(out)-1]
		last.Words = append(last.Words, regs[uint8(cmd)])
	}
	return out
}
