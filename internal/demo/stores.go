package demo

import (
	"context"
	"fmt"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/store"
)

// userInitialState is also what LOGOUT restores.
func userInitialState() state.State {
	return state.State{
		"isAuth":      false,
		"isLoggingIn": false,
		"locked":      false,
		"data":        nil,
	}
}

// NewUserStore builds the user store.
func NewUserStore(auth Authenticator, maxAttempts int, opts ...store.Option) (*store.Store, error) {
	if auth == nil {
		auth = DefaultAuthenticator
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	def := &store.Definition{
		Name:            "user",
		Mixins:          []*store.Definition{Loading},
		GetInitialState: userInitialState,
		Methods: map[string]store.Method{
			"username": func(s *store.Store, _ ...any) (any, error) {
				return asMap(s.Get("data"))["username"], nil
			},
		},
	}

	s, err := store.New(def, []store.HandlerDefinition{
		store.On(Logout, func(_ context.Context, s *store.Store, _ action.Payload) error {
			s.Set(state.State{"isAuth": false, "data": nil, "error": nil})
			return nil
		}),
		store.On(Lock, func(_ context.Context, s *store.Store, _ action.Payload) error {
			s.Set(state.State{"locked": true})
			return nil
		}),
	}, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.AddActionHandler(Login, loginHandler(auth, maxAttempts)); err != nil {
		return nil, err
	}
	return s, nil
}

func loginHandler(auth Authenticator, maxAttempts int) store.ActionHandler {
	return store.ActionHandler{
		GetInitialState: func() state.State {
			return state.State{"attempts": 0}
		},
		Before: func(_ context.Context, s *store.Store, _ action.Payload) {
			s.Set(state.State{"isLoggingIn": true, "isLoading": true, "error": nil})
		},
		Callback: func(ctx context.Context, s *store.Store, p action.Payload) error {
			if locked, _ := s.Get("locked").(bool); locked {
				return ErrLocked
			}
			data, err := auth.Authenticate(ctx, p.String("username"), p.String("password"))
			if err != nil {
				return err
			}
			s.Set(state.State{"isAuth": true, "data": data})
			return nil
		},
		Success: func(_ context.Context, s *store.Store, _ action.Payload) {
			_ = s.ResetActionState(Login)
		},
		Fail: func(ctx context.Context, s *store.Store, p action.Payload, err error) {
			s.Set(state.State{"error": err.Error()})
			attempts, _ := s.GetActionStateValue(Login, "attempts")
			n, _ := attempts.(int)
			n++
			_ = s.SetActionState(Login, state.State{"attempts": n})
			if n == maxAttempts {
				engine.Emit(ctx, Lock, action.Payload{"username": p.String("username"), "attempts": n})
			}
		},
		After: func(_ context.Context, s *store.Store, _ action.Payload) {
			s.Set(state.State{"isLoggingIn": false, "isLoading": false})
		},
	}
}

// NewSessionStore builds the session store. Its LOGIN handler waits for
// user.
func NewSessionStore(user *store.Store, opts ...store.Option) (*store.Store, error) {
	def := &store.Definition{
		Name:   "session",
		Mixins: []*store.Definition{Loading},
		GetInitialState: func() state.State {
			return state.State{"active": false, "username": nil}
		},
	}

	return store.New(def, []store.HandlerDefinition{
		store.OnAfter(Login, []*store.Store{user}, func(_ context.Context, s *store.Store, _ action.Payload) error {
			name, err := user.Call("username")
			if err != nil {
				return err
			}
			if name == nil {
				return fmt.Errorf("user store has no authenticated user")
			}
			s.Set(state.State{"active": true, "username": name})
			return nil
		}),
		store.On(Logout, func(_ context.Context, s *store.Store, _ action.Payload) error {
			s.Set(state.State{"active": false, "username": nil})
			return nil
		}),
	}, opts...)
}

// NewAuditStore builds the audit store, which counts every action.
func NewAuditStore(opts ...store.Option) (*store.Store, error) {
	def := &store.Definition{
		Name:   "audit",
		Mixins: []*store.Definition{Counting},
	}

	defs := make([]store.HandlerDefinition, 0, len(Actions))
	for _, name := range Actions.Names() {
		c := Actions[name]
		defs = append(defs, store.On(c, func(_ context.Context, s *store.Store, _ action.Payload) error {
			increment(s, string(c))
			return nil
		}))
	}
	return store.New(def, defs, opts...)
}
