package dc590

import (
	"errors"

	"github.com/tamzrod/regbridge/internal/smbus"
)

// State is the position of a transaction in its life cycle. Every state from
// StateComplete on is terminal.
type State uint8

const (
	StateIdle State = iota
	StateFramed
	StateAwaitingResponse
	StateComplete
	StateNotAcked
	StateBridgeOffline
	StatePecMismatch
	StateDesync
	StateTimeout
	StateBusy
	StatePortError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateFramed:
		return "FRAMED"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateComplete:
		return "COMPLETE"
	case StateNotAcked:
		return "NOT_ACKED"
	case StateBridgeOffline:
		return "BRIDGE_OFFLINE"
	case StatePecMismatch:
		return "PEC_MISMATCH"
	case StateDesync:
		return "DESYNC"
	case StateTimeout:
		return "TIMEOUT"
	case StateBusy:
		return "BUSY"
	case StatePortError:
		return "PORT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends a transaction.
func (s State) Terminal() bool {
	return s >= StateComplete
}

func stateOf(err error) State {
	switch {
	case err == nil:
		return StateComplete
	case errors.Is(err, smbus.ErrNotAcked):
		return StateNotAcked
	case errors.Is(err, smbus.ErrOffline):
		return StateBridgeOffline
	case errors.Is(err, smbus.ErrPecMismatch):
		return StatePecMismatch
	case errors.Is(err, smbus.ErrDesync):
		return StateDesync
	case errors.Is(err, smbus.ErrTimeout):
		return StateTimeout
	case errors.Is(err, smbus.ErrBusy):
		return StateBusy
	default:
		return StatePortError
	}
}
