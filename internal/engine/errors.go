package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned for events submitted after the loop stopped.
var ErrStopped = errors.New("engine stopped")

// CycleError reports a failed update cycle.
type CycleError struct {
	Op    Op
	Seq   int64
	Token string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle %d: %v", e.Op, e.Seq, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// IsCycleError reports whether err is or wraps a *CycleError.
func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
