package resolve

import (
	"errors"
	"fmt"
)

// ErrTransient marks storage or transport failures the caller may retry.
var ErrTransient = errors.New("transient failure")

var ErrEmptySuggestion = errors.New("resolve: empty suggestion")

// TransientError carries the failed step. errors.Is(err, ErrTransient)
// holds for every TransientError.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
