// Package demo is a small login application built on reflux stores.
//
// It wires three stores to one engine:
//
//   - user: authentication state (isAuth, isLoggingIn, error, data). Its
//     LOGIN handler keeps a private attempts counter and emits LOCK once
//     MaxAttempts logins in a row have failed.
//   - session: waits for user on LOGIN and opens a session for the
//     authenticated user.
//   - audit: counts every action it sees.
//
// The CLI and the scenario harness drive the application through App.
package demo
