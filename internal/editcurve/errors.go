package editcurve

import (
	"errors"
	"fmt"
)

// ErrCancelled matches every reason an operator gave up before touching the
// document. Use errors.Is against it; fitting failures never produce it.
var ErrCancelled = errors.New("operator cancelled")

var (
	ErrNoDocument    = fmt.Errorf("%w: no active grease pencil data", ErrCancelled)
	ErrNoActiveLayer = fmt.Errorf("%w: no active layer", ErrCancelled)
	ErrNoActiveFrame = fmt.Errorf("%w: no active frame", ErrCancelled)
)

// OpError records which operator failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}
