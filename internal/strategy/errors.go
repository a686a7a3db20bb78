package strategy

import (
	"errors"
	"fmt"
)

// ErrDataGap marks a bar that is missing a required indicator value. The bar
// is skipped for decisions but still counts for day-rollover bookkeeping.
var ErrDataGap = errors.New("bar missing required indicator data")

// ErrDegenerateSetup marks an entry whose stop distance is zero or
// sign-inverted. The entry is skipped without consuming a daily trade slot.
var ErrDegenerateSetup = errors.New("degenerate setup: non-positive stop distance")

// InvariantError indicates a logic defect (adverse stop move, double entry,
// double partial exit). It is raised via panic rather than returned: data
// conditions are recoverable, broken invariants are not.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "strategy invariant violated: " + e.Msg
}

func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
	}
}
