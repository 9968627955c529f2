package framework

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted marks a session that ran out of attempts before
// producing a working script. It is a normal terminal outcome, not a crash,
// and is reported together with the full attempt history.
var ErrBudgetExhausted = errors.New("attempt budget exhausted")

// InfrastructureError reports that the model backend itself failed (refused
// connections, timed out, returned garbage status). It is never retried:
// regenerating code cannot fix an unreachable backend.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}
