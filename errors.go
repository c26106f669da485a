package apiconfig

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Base kind. Every other kind descends from it.
var ErrAPIConfig = errors.New("apiconfig error")

// Authentication kinds.
var (
	ErrAuthStrategy        = errors.New("auth strategy error")
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshNotSupported = errors.New("token refresh not supported")
)

// Token refresh kinds.
var (
	ErrTokenRefresh        = errors.New("token refresh failed")
	ErrTokenRefreshJSON    = errors.New("token refresh response is not valid JSON")
	ErrTokenRefreshTimeout = errors.New("token refresh timed out")
	ErrTokenRefreshNetwork = errors.New("token refresh network failure")
)

// Configuration kinds.
var (
	ErrConfig         = errors.New("config error")
	ErrConfigLoad     = errors.New("config load failed")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrMissingConfig  = errors.New("missing config")
	ErrConfigProvider = errors.New("config provider error")
	ErrConfigValue    = errors.New("invalid config value")
)

// ErrStorage covers token storage failures.
var ErrStorage = errors.New("token storage error")

var parents = map[error]error{
	ErrAuthStrategy:        ErrAPIConfig,
	ErrMissingCredentials:  ErrAuthStrategy,
	ErrInvalidCredentials:  ErrAuthStrategy,
	ErrRefreshNotSupported: ErrAuthStrategy,
	ErrTokenRefresh:        ErrAPIConfig,
	ErrTokenRefreshJSON:    ErrTokenRefresh,
	ErrTokenRefreshTimeout: ErrTokenRefresh,
	ErrTokenRefreshNetwork: ErrTokenRefresh,
	ErrConfig:              ErrAPIConfig,
	ErrConfigLoad:          ErrConfig,
	ErrInvalidConfig:       ErrConfig,
	ErrMissingConfig:       ErrConfig,
	ErrConfigProvider:      ErrConfig,
	ErrConfigValue:         ErrConfig,
	ErrStorage:             ErrAPIConfig,
}

// Error is the concrete error type returned by the library. Kind is one of
// the sentinels above and Err carries the message and any wrapped cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is e's kind or one of its ancestors.
func (e *Error) Is(target error) bool {
	for k := e.Kind; k != nil; k = parents[k] {
		if k == target {
			return true
		}
	}
	return false
}

// Errorf returns an *Error of the given kind. The format supports %w for
// chaining a cause.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap returns an *Error of the given kind with msg prefixed to cause.
// A nil cause yields an error carrying only msg.
func Wrap(kind, cause error, msg string) error {
	if cause == nil {
		return &Error{Kind: kind, Err: errors.New(msg)}
	}
	return &Error{Kind: kind, Err: fmt.Errorf("%s: %w", msg, cause)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// IsTransient reports whether err is worth retrying: network or timeout
// failures while talking to a token endpoint. Credential and response
// format errors are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenRefreshNetwork) || errors.Is(err, ErrTokenRefreshTimeout) {
		return true
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrTokenRefreshJSON) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
