package store

import (
	"errors"
	"fmt"

	"github.com/roach88/reflux/internal/action"
)

// ErrorKind categorizes store errors.
type ErrorKind string

const (
	// KindConstruction covers invalid definitions: handler shapes, mixin
	// cycles, reserved names, duplicate constants. Always fatal to the
	// operation that raised it.
	KindConstruction ErrorKind = "CONSTRUCTION"

	// KindLookup indicates an unknown constant or method.
	KindLookup ErrorKind = "LOOKUP"

	// KindDependency indicates that an awaited store failed, or that waitFor
	// edges formed a deadlock, during a dispatch cycle.
	KindDependency ErrorKind = "DEPENDENCY"
)

// Error is the error type returned by this package.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the failing operation, e.g. "Store.getActionState".
	Op string

	// Store names the store the error belongs to, when known.
	Store string

	// Constant identifies the action involved, when there is one.
	Constant action.Constant

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (dependency errors).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConstructionError reports whether err is (or wraps) a construction error.
func IsConstructionError(err error) bool {
	return hasKind(err, KindConstruction)
}

// IsLookupError reports whether err is (or wraps) a lookup error.
func IsLookupError(err error) bool {
	return hasKind(err, KindLookup)
}

// IsDependencyError reports whether err is (or wraps) a dependency error.
func IsDependencyError(err error) bool {
	return hasKind(err, KindDependency)
}

func hasKind(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// Messages of the handler definition checks. Callers match on them.
const (
	msgDefinitionsNotArray = "handler definitions must be an array"
	msgDefinitionNotArray  = "handler definition must be an array"
	msgMissingConstant     = "handler definitions must contain a constant as the first parameter"
	msgMissingCallback     = "handler definitions must contain a callback"
	msgWaitForNotStores    = "waitFor must be an array of stores"
)

func constructionError(store, format string, args ...any) *Error {
	return &Error{
		Kind:    KindConstruction,
		Op:      "createStore",
		Store:   store,
		Message: fmt.Sprintf(format, args...),
	}
}

func handlerNotDefined(op, store string, c action.Constant) *Error {
	return &Error{
		Kind:     KindLookup,
		Op:       op,
		Store:    store,
		Constant: c,
		Message:  fmt.Sprintf("handler for constant [%s] is not defined", c),
	}
}

func newDependencyError(waiter, dep string, c action.Constant, cause error) *Error {
	return &Error{
		Kind:     KindDependency,
		Op:       "waitFor",
		Store:    waiter,
		Constant: c,
		Message:  fmt.Sprintf("store [%s] failed handling [%s]", dep, c),
		Err:      cause,
	}
}
