package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/store"
)

// App is the demo application: its stores registered on one engine.
type App struct {
	Engine  *engine.Engine
	User    *store.Store
	Session *store.Store
	Audit   *store.Store
}

type config struct {
	auth        Authenticator
	maxAttempts int
	logger      *slog.Logger
	engineOpts  []engine.EngineOption
}

// Option configures an App.
type Option func(*config)

// WithAuthenticator replaces DefaultAuthenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(c *config) { c.auth = a }
}

// WithMaxAttempts sets how many failed logins lock the user store.
func WithMaxAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithLogger sets the logger of the engine and every store.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEngineOptions passes options through to engine.New.
func WithEngineOptions(opts ...engine.EngineOption) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, opts...) }
}

// New builds the stores and registers them in dependency order.
func New(opts ...Option) (*App, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	storeOpts := []store.Option{store.WithLogger(cfg.logger)}

	user, err := NewUserStore(cfg.auth, cfg.maxAttempts, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("user store: %w", err)
	}
	session, err := NewSessionStore(user, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	audit, err := NewAuditStore(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	e := engine.New(append([]engine.EngineOption{engine.WithLogger(cfg.logger)}, cfg.engineOpts...)...)
	if err := e.Register(user, session, audit); err != nil {
		return nil, err
	}
	return &App{Engine: e, User: user, Session: session, Audit: audit}, nil
}

// Dispatch runs one action and every follow-up it emits. Results are in
// dispatch order; the error joins every failed cycle.
func (a *App) Dispatch(ctx context.Context, c action.Constant, p action.Payload) ([]*engine.Result, error) {
	var errs []error
	res, err := a.Engine.Dispatch(ctx, c, p)
	if err != nil {
		if res == nil {
			return nil, err
		}
		errs = append(errs, err)
	}
	results := []*engine.Result{res}

	drained, err := a.Engine.Drain(ctx)
	results = append(results, drained...)
	if err != nil {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}

// Login dispatches LOGIN with the given credentials.
func (a *App) Login(ctx context.Context, username, password string) ([]*engine.Result, error) {
	return a.Dispatch(ctx, Login, LoginPayload(username, password))
}

// Logout dispatches LOGOUT.
func (a *App) Logout(ctx context.Context) ([]*engine.Result, error) {
	return a.Dispatch(ctx, Logout, nil)
}

// Stores returns the registered stores in registration order.
func (a *App) Stores() []*store.Store {
	return a.Engine.Stores()
}

// Mount attaches a text view of the user store to w. Every change of the
// user store writes one rendered line until the returned unmount is called.
func (a *App) Mount(w io.Writer) (unmount func()) {
	view := a.User.Mixin(func(st state.State) {
		fmt.Fprintln(w, Render(st))
	})
	view.ComponentWillMount()
	view.ComponentDidMount()
	return view.ComponentWillUnmount
}

// Render renders a user store snapshot the way the login page shows it.
func Render(st state.State) string {
	if auth, _ := st["isAuth"].(bool); auth {
		return fmt.Sprintf("Hello %v!", asMap(st["data"])["username"])
	}
	if busy, _ := st["isLoggingIn"].(bool); busy {
		return "Logging in..."
	}
	if msg, ok := st["error"].(string); ok && msg != "" {
		return "LOGIN (" + msg + ")"
	}
	return "LOGIN"
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case state.State:
		return m
	case map[string]any:
		return m
	}
	return nil
}
