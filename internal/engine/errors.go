package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/store"
)

// RuntimeError represents a dispatcher misuse detected at runtime.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlowToken identifies the affected flow, when there is one.
	FlowToken string

	// Constant identifies the rejected action, when there is one.
	Constant action.Constant
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateStore indicates a store name registered twice.
	ErrCodeDuplicateStore RuntimeErrorCode = "DUPLICATE_STORE"

	// ErrCodeInvalidStore indicates a nil store passed to Register.
	ErrCodeInvalidStore RuntimeErrorCode = "INVALID_STORE"

	// ErrCodeInvalidAction indicates an empty action constant.
	ErrCodeInvalidAction RuntimeErrorCode = "INVALID_ACTION"

	// ErrCodeReentrantDispatch indicates Dispatch called from a hook of a
	// cycle of the same engine.
	ErrCodeReentrantDispatch RuntimeErrorCode = "REENTRANT_DISPATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (flow=%s)", e.Code, e.Message, e.FlowToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsReentrantDispatch reports whether err is a reentrant dispatch error.
// Uses errors.As to handle wrapped errors.
func IsReentrantDispatch(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReentrantDispatch
	}
	return false
}

// IsDuplicateStore reports whether err is a duplicate registration error.
func IsDuplicateStore(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDuplicateStore
	}
	return false
}

// DispatchError lists the stores that settled through fail in one cycle.
// Every other store settled normally.
type DispatchError struct {
	Flow     string
	Constant action.Constant
	Failures []store.Outcome
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Store.Name(), f.Err)
	}
	return fmt.Sprintf("dispatch [%s] (flow=%s): %d store(s) failed: %s",
		e.Constant, e.Flow, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap returns the store errors, so errors.Is and errors.As see each.
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// FailedStores returns the names of the failed stores.
func (e *DispatchError) FailedStores() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Store.Name()
	}
	return names
}
