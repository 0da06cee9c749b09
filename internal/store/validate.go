package store

import (
	"context"
	"fmt"

	"github.com/roach88/reflux/internal/action"
)

// HandlerDefinition is one entry of the handler definitions passed to New:
// [constant, callback] or [constant, []*Store, callback].
type HandlerDefinition []any

// On builds a [constant, callback] handler definition.
func On(c action.Constant, callback any) HandlerDefinition {
	return HandlerDefinition{c, callback}
}

// OnAfter builds a [constant, waitFor, callback] handler definition.
func OnAfter(c action.Constant, waitFor []*Store, callback any) HandlerDefinition {
	return HandlerDefinition{c, waitFor, callback}
}

// handlerSpec is a validated handler definition.
type handlerSpec struct {
	constant action.Constant
	handler  ActionHandler
}

// parseHandlerDefinitions validates defs. Every entry is checked before any
// handler is registered.
func parseHandlerDefinitions(storeName string, defs any) ([]handlerSpec, error) {
	var entries []any
	switch v := defs.(type) {
	case nil:
		return nil, nil
	case []HandlerDefinition:
		for _, e := range v {
			entries = append(entries, e)
		}
	case [][]any:
		for _, e := range v {
			entries = append(entries, e)
		}
	case []any:
		entries = v
	default:
		return nil, constructionError(storeName, msgDefinitionsNotArray)
	}

	specs := make([]handlerSpec, 0, len(entries))
	for i, entry := range entries {
		spec, err := parseHandlerDefinition(storeName, entry)
		if err != nil {
			if se, ok := err.(*Error); ok {
				se.Message = fmt.Sprintf("%s (entry %d)", se.Message, i)
			}
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseHandlerDefinition(storeName string, entry any) (handlerSpec, error) {
	var parts []any
	switch v := entry.(type) {
	case HandlerDefinition:
		parts = v
	case []any:
		parts = v
	default:
		return handlerSpec{}, constructionError(storeName, msgDefinitionNotArray)
	}
	if len(parts) > 3 {
		return handlerSpec{}, constructionError(storeName, msgDefinitionNotArray)
	}
	if len(parts) == 0 {
		return handlerSpec{}, constructionError(storeName, msgMissingConstant)
	}

	c, ok := toConstant(parts[0])
	if !ok {
		return handlerSpec{}, constructionError(storeName, msgMissingConstant)
	}
	if len(parts) == 1 {
		return handlerSpec{}, constructionError(storeName, msgMissingCallback)
	}

	cb, ok := toCallback(parts[len(parts)-1])
	if !ok {
		return handlerSpec{}, constructionError(storeName, msgMissingCallback)
	}

	var waitFor []*Store
	if len(parts) == 3 {
		waitFor, ok = toStores(parts[1])
		if !ok {
			return handlerSpec{}, constructionError(storeName, msgWaitForNotStores)
		}
	}

	return handlerSpec{
		constant: c,
		handler:  ActionHandler{WaitFor: waitFor, Callback: cb},
	}, nil
}

func toConstant(v any) (action.Constant, bool) {
	switch c := v.(type) {
	case action.Constant:
		return c, !c.IsZero()
	case string:
		return action.Constant(c), c != ""
	}
	return "", false
}

func toStores(v any) ([]*Store, bool) {
	switch list := v.(type) {
	case []*Store:
		for _, s := range list {
			if s == nil {
				return nil, false
			}
		}
		return list, true
	case []any:
		out := make([]*Store, 0, len(list))
		for _, e := range list {
			s, ok := e.(*Store)
			if !ok || s == nil {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// toCallback adapts the accepted callable shapes to a Callback.
func toCallback(v any) (Callback, bool) {
	switch fn := v.(type) {
	case Callback:
		return fn, fn != nil
	case func(context.Context, *Store, action.Payload) error:
		return fn, fn != nil
	case func(action.Payload) error:
		if fn == nil {
			return nil, false
		}
		return func(_ context.Context, _ *Store, p action.Payload) error { return fn(p) }, true
	case func(action.Payload):
		if fn == nil {
			return nil, false
		}
		return func(_ context.Context, _ *Store, p action.Payload) error { fn(p); return nil }, true
	case func() error:
		if fn == nil {
			return nil, false
		}
		return func(context.Context, *Store, action.Payload) error { return fn() }, true
	case func():
		if fn == nil {
			return nil, false
		}
		return func(context.Context, *Store, action.Payload) error { fn(); return nil }, true
	}
	return nil, false
}
