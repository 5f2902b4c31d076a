package cs43l22

import (
	"errors"
	"fmt"
)

var (
	// ErrBus indicates a failed register transaction (timeout or NACK on the control bus).
	ErrBus = errors.New("register bus transaction failed")

	// ErrInvalidConfig indicates a stream configuration that cannot produce a buffer.
	ErrInvalidConfig = errors.New("invalid stream configuration")
)

// BusError describes a single failed register transaction.
type BusError struct {
	Op  string // "write" or "read"
	Reg Register
	Val byte
	Err error
}

func (e *BusError) Error() string {
	name, ok := RegisterNames[e.Reg]
	if !ok {
		name = fmt.Sprintf("0x%02X", e.Reg)
	}

	if e.Op == "write" {
		return fmt.Sprintf("%s %s=0x%02X: %v", e.Op, name, e.Val, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, name, e.Err)
}

// Unwrap allows errors.Is(err, ErrBus) as well as matching the underlying cause.
func (e *BusError) Unwrap() []error {
	return []error{ErrBus, e.Err}
}

// InitError aggregates the register writes that failed during the power-up sequence.
// Every write of the sequence is attempted, so Steps can hold more than one failure.
type InitError struct {
	Steps []error
	Total int // Number of writes attempted.
}

func (e *InitError) Error() string {
	return fmt.Sprintf("codec init: %d of %d steps failed: %v", len(e.Steps), e.Total, errors.Join(e.Steps...))
}

func (e *InitError) Unwrap() []error {
	return e.Steps
}
