package driver

import (
	"errors"
	"fmt"
)

// ErrOperationFailed matches every error returned by a driver operation.
var ErrOperationFailed = errors.New("driver operation failed")

// Causes carried by an OperationError.
var (
	ErrTimeout       = errors.New("timed out")
	ErrDisabled      = errors.New("driver is disabled")
	ErrHomingFailed  = errors.New("homing failed")
	ErrCommunication = errors.New("communication fault")
	ErrBusy          = errors.New("head busy with an earlier call")
)

// ErrUnknownBackend is returned by New for an unregistered driver type.
var ErrUnknownBackend = errors.New("unknown driver backend")

// OperationError is the single failure type of the driver contract. Err holds
// the backend specific cause.
type OperationError struct {
	Op      string
	Backend string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrOperationFailed, e.Backend, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOperationFailed) true for any OperationError.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailed
}

// Fail wraps err in an OperationError unless it already is one.
func Fail(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Backend: backend, Err: err}
}
