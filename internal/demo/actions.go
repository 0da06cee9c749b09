package demo

import (
	"context"
	"errors"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
)

// Actions are the USER action constants.
var Actions = action.MustCreateConstants([]string{"LOGIN", "LOGOUT", "LOCK"}, "USER")

var (
	Login  = Actions["LOGIN"]
	Logout = Actions["LOGOUT"]
	Lock   = Actions["LOCK"]
)

// DefaultMaxAttempts is the number of failed logins in a row that lock the
// user store.
const DefaultMaxAttempts = 3

var (
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrLocked             = errors.New("too many failed attempts, login is locked")
)

// Authenticator checks credentials and returns the user data to store.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (state.State, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, username, password string) (state.State, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, username, password string) (state.State, error) {
	return f(ctx, username, password)
}

// StaticAuthenticator accepts any non-empty username with Password.
type StaticAuthenticator struct {
	Password string
}

func (a StaticAuthenticator) Authenticate(ctx context.Context, username, password string) (state.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if username == "" || password != a.Password {
		return nil, ErrInvalidCredentials
	}
	return state.State{"username": username}, nil
}

// DefaultAuthenticator accepts the demo password.
var DefaultAuthenticator Authenticator = StaticAuthenticator{Password: "1234567"}

// LoginPayload builds the payload of a LOGIN action.
func LoginPayload(username, password string) action.Payload {
	return action.Payload{"username": username, "password": password}
}
