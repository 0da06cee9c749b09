package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/reflux/internal/action"
)

// CascadeError is returned when an emitted action would exceed the engine's
// cascade limit. The action is dropped; the rest of the flow is unaffected.
//
// Hooks that emit the action that triggered them would otherwise loop
// forever.
type CascadeError struct {
	FlowToken string
	Constant  action.Constant
	Depth     int
	Limit     int
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	return fmt.Sprintf("flow %s exceeded cascade limit dispatching [%s]: depth %d > %d",
		e.FlowToken, e.Constant, e.Depth, e.Limit)
}

// IsCascadeError reports whether err is a CascadeError.
// Uses errors.As to handle wrapped errors.
func IsCascadeError(err error) bool {
	var ce *CascadeError
	return errors.As(err, &ce)
}
